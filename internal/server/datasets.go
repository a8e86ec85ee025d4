package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"pactline/internal/domain"
	"pactline/internal/engine"
	"pactline/internal/repo"
)

type datasetBody struct {
	Body domain.Dataset `json:"body"`
}

// registerDatasets wires the reference-data routes.
func registerDatasets(api huma.API, e engine.Engine) {
	datasetOut := func(ds domain.Dataset, err error) (*datasetBody, error) {
		if err != nil {
			return nil, handleError(err)
		}
		return &datasetBody{Body: ds}, nil
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-dataset",
		Method:        http.MethodPost,
		Path:          "/datasets",
		Summary:       "Create reference dataset",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateDatasetRequest `json:"body"`
	}) (*datasetBody, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return datasetOut(e.CreateDataset(ctx, engine.DatasetCreateOptions{
			Name:        input.Body.Name,
			DisplayName: input.Body.DisplayName,
			Description: input.Body.Description,
			Domain:      input.Body.Domain,
			Columns:     input.Body.Columns,
			Owners:      input.Body.Owners,
			Tags:        input.Body.Tags,
			ActorID:     actorID,
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-datasets",
		Method:      http.MethodGet,
		Path:        "/datasets",
		Summary:     "List reference datasets",
	}, func(ctx context.Context, input *struct {
		Domain string `query:"domain"`
		Status string `query:"status" enum:"draft,active,deprecated"`
	}) (*struct {
		Body []domain.Dataset `json:"body"`
	}, error) {
		items, err := e.ListDatasets(ctx, repo.DatasetFilters{
			Domain: input.Domain,
			Status: input.Status,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Dataset `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dataset-groups",
		Method:      http.MethodGet,
		Path:        "/datasets/groups",
		Summary:     "Datasets grouped by domain",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string][]domain.Dataset `json:"body"`
	}, error) {
		groups, err := e.DatasetGroups(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string][]domain.Dataset `json:"body"`
		}{Body: groups}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dataset",
		Method:      http.MethodGet,
		Path:        "/datasets/{dataset_id}",
		Summary:     "Get dataset with rows",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DatasetID         string `path:"dataset_id"`
		IncludeDeprecated bool   `query:"include_deprecated" default:"true"`
	}) (*struct {
		Body DatasetWithRows `json:"body"`
	}, error) {
		ds, err := e.GetDataset(ctx, input.DatasetID)
		if err != nil {
			return nil, handleError(err)
		}
		rows, err := e.ListRows(ctx, input.DatasetID, input.IncludeDeprecated)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DatasetWithRows `json:"body"`
		}{Body: DatasetWithRows{Dataset: ds, Rows: nonNilSlice(rows)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-dataset",
		Method:      http.MethodPatch,
		Path:        "/datasets/{dataset_id}",
		Summary:     "Update dataset",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DatasetID string               `path:"dataset_id"`
		Body      UpdateDatasetRequest `json:"body"`
	}) (*datasetBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return datasetOut(e.UpdateDataset(ctx, input.DatasetID, actorID, engine.DatasetUpdate(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-dataset",
		Method:      http.MethodDelete,
		Path:        "/datasets/{dataset_id}",
		Summary:     "Deprecate dataset",
		Description: "Soft delete. Pass purge=true to remove the dataset and its rows permanently.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DatasetID string `path:"dataset_id"`
		Purge     bool   `query:"purge"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Purge {
			if err := e.PurgeDataset(ctx, input.DatasetID, actorID); err != nil {
				return nil, handleError(err)
			}
			return &struct{}{}, nil
		}
		if _, err := e.DeprecateDataset(ctx, input.DatasetID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "publish-dataset",
		Method:      http.MethodPost,
		Path:        "/datasets/{dataset_id}/publish",
		Summary:     "Publish dataset",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DatasetID string `path:"dataset_id"`
	}) (*datasetBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return datasetOut(e.PublishDataset(ctx, input.DatasetID, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-rows",
		Method:      http.MethodGet,
		Path:        "/datasets/{dataset_id}/rows",
		Summary:     "List dataset rows",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DatasetID         string `path:"dataset_id"`
		IncludeDeprecated bool   `query:"include_deprecated" default:"true"`
	}) (*struct {
		Body []domain.ReferenceRow `json:"body"`
	}, error) {
		rows, err := e.ListRows(ctx, input.DatasetID, input.IncludeDeprecated)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ReferenceRow `json:"body"`
		}{Body: nonNilSlice(rows)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-row",
		Method:        http.MethodPost,
		Path:          "/datasets/{dataset_id}/rows",
		Summary:       "Add dataset row",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DatasetID string           `path:"dataset_id"`
		Body      UpsertRowRequest `json:"body"`
	}) (*struct {
		Body domain.ReferenceRow `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		row, err := e.AddRow(ctx, input.DatasetID, actorID, input.Body.Values)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ReferenceRow `json:"body"`
		}{Body: row}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-row",
		Method:      http.MethodPatch,
		Path:        "/datasets/{dataset_id}/rows/{row_id}",
		Summary:     "Update dataset row",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DatasetID string           `path:"dataset_id"`
		RowID     string           `path:"row_id"`
		Body      UpsertRowRequest `json:"body"`
	}) (*struct {
		Body domain.ReferenceRow `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		row, err := e.UpdateRow(ctx, input.DatasetID, input.RowID, actorID, input.Body.Values)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ReferenceRow `json:"body"`
		}{Body: row}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-row",
		Method:      http.MethodDelete,
		Path:        "/datasets/{dataset_id}/rows/{row_id}",
		Summary:     "Delete dataset row",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DatasetID string `path:"dataset_id"`
		RowID     string `path:"row_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteRow(ctx, input.DatasetID, input.RowID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "import-rows",
		Method:      http.MethodPost,
		Path:        "/datasets/{dataset_id}/import",
		Summary:     "Bulk import rows",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DatasetID string            `path:"dataset_id"`
		Body      BulkImportRequest `json:"body"`
	}) (*struct {
		Body ImportRowsResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.ImportRows(ctx, input.DatasetID, actorID, input.Body.Rows, input.Body.ReplaceAll)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ImportRowsResponse `json:"body"`
		}{Body: ImportRowsResponse(res)}, nil
	})
}
