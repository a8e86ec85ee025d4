package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"pactline/internal/domain"
	"pactline/internal/engine"
)

type sessionBody struct {
	Body domain.Session `json:"body"`
}

type idBody struct {
	Body struct {
		ID string `json:"id"`
	} `json:"body"`
}

func newIDBody(id string) *idBody {
	var out idBody
	out.Body.ID = id
	return &out
}

// registerContract wires the contract-editing routes. Every mutation returns
// the full session so clients can re-render without a second fetch.
func registerContract(api huma.API, e engine.Engine) {
	sessionOut := func(s domain.Session, err error) (*sessionBody, error) {
		if err != nil {
			return nil, handleError(err)
		}
		return &sessionBody{Body: s}, nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "update-contract-metadata",
		Method:      http.MethodPatch,
		Path:        "/sessions/{session_id}/contract",
		Summary:     "Update contract metadata",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string                `path:"session_id"`
		Body      UpdateMetadataRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.UpdateMetadata(ctx, input.SessionID, actorID, engine.MetadataUpdate(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-object",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/contract/objects",
		Summary:       "Add schema object",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		SessionID string              `path:"session_id"`
		Body      CreateObjectRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.AddObject(ctx, input.SessionID, actorID, engine.ObjectOptions(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-object",
		Method:      http.MethodPatch,
		Path:        "/sessions/{session_id}/contract/objects/{object_name}",
		Summary:     "Update schema object",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID  string              `path:"session_id"`
		ObjectName string              `path:"object_name"`
		Body       UpdateObjectRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.UpdateObject(ctx, input.SessionID, input.ObjectName, actorID, engine.ObjectUpdate(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-object",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/objects/{object_name}",
		Summary:     "Delete schema object",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID  string `path:"session_id"`
		ObjectName string `path:"object_name"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteObject(ctx, input.SessionID, input.ObjectName, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-property",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/contract/objects/{object_name}/properties",
		Summary:       "Add column",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		SessionID  string                `path:"session_id"`
		ObjectName string                `path:"object_name"`
		Body       CreatePropertyRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.AddProperty(ctx, input.SessionID, input.ObjectName, actorID, engine.PropertyOptions(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-property",
		Method:      http.MethodPatch,
		Path:        "/sessions/{session_id}/contract/objects/{object_name}/properties/{property_name}",
		Summary:     "Update column",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		SessionID    string                `path:"session_id"`
		ObjectName   string                `path:"object_name"`
		PropertyName string                `path:"property_name"`
		Body         UpdatePropertyRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.UpdateProperty(ctx, input.SessionID, input.ObjectName, input.PropertyName, actorID, engine.PropertyUpdate(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-property",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/objects/{object_name}/properties/{property_name}",
		Summary:     "Delete column",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID    string `path:"session_id"`
		ObjectName   string `path:"object_name"`
		PropertyName string `path:"property_name"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteProperty(ctx, input.SessionID, input.ObjectName, input.PropertyName, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-property",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/contract/objects/{object_name}/properties/reorder",
		Summary:     "Move a column up or down",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID  string                 `path:"session_id"`
		ObjectName string                 `path:"object_name"`
		Body       ReorderPropertyRequest `json:"body"`
	}) (*struct {
		Body ReorderPropertyResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		idx, err := e.ReorderProperty(ctx, input.SessionID, input.ObjectName, input.Body.PropertyName, input.Body.Direction, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReorderPropertyResponse `json:"body"`
		}{Body: ReorderPropertyResponse{NewIndex: idx}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-source-table",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/contract/objects/{object_name}/sources",
		Summary:       "Attach a lineage source table",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		SessionID  string                   `path:"session_id"`
		ObjectName string                   `path:"object_name"`
		Body       CreateSourceTableRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.AddSourceTable(ctx, input.SessionID, input.ObjectName, actorID, engine.SourceTableOptions(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-source-table",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/objects/{object_name}/sources/{index}",
		Summary:     "Detach a lineage source table",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID  string `path:"session_id"`
		ObjectName string `path:"object_name"`
		Index      int    `path:"index"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteSourceTable(ctx, input.SessionID, input.ObjectName, input.Index, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID: "source-columns",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/contract/objects/{object_name}/source-columns",
		Summary:     "Cached column metadata per source table",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID  string `path:"session_id"`
		ObjectName string `path:"object_name"`
	}) (*struct {
		Body map[string][]map[string]any `json:"body"`
	}, error) {
		cols, err := e.SourceColumns(ctx, input.SessionID, input.ObjectName)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string][]map[string]any `json:"body"`
		}{Body: cols}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "map-columns",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/contract/objects/{object_name}/map-columns",
		Summary:     "Batch-create columns from source columns",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID  string            `path:"session_id"`
		ObjectName string            `path:"object_name"`
		Body       MapColumnsRequest `json:"body"`
	}) (*struct {
		Body MapColumnsResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.MapColumns(ctx, input.SessionID, input.ObjectName, actorID, mapColumnMappings(input.Body.Mappings))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MapColumnsResponse `json:"body"`
		}{Body: MapColumnsResponse(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-column-source",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/contract/objects/{object_name}/properties/{property_name}/sources",
		Summary:       "Add lineage source to a column",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID    string              `path:"session_id"`
		ObjectName   string              `path:"object_name"`
		PropertyName string              `path:"property_name"`
		Body         ColumnSourceRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.AddColumnSource(ctx, input.SessionID, input.ObjectName, input.PropertyName, actorID, domain.ColumnSource(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-column-source",
		Method:      http.MethodPatch,
		Path:        "/sessions/{session_id}/contract/objects/{object_name}/properties/{property_name}/sources/{index}",
		Summary:     "Update lineage source",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID    string                    `path:"session_id"`
		ObjectName   string                    `path:"object_name"`
		PropertyName string                    `path:"property_name"`
		Index        int                       `path:"index"`
		Body         UpdateColumnSourceRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.UpdateColumnSource(ctx, input.SessionID, input.ObjectName, input.PropertyName, input.Index, actorID, engine.ColumnSourceUpdate(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-column-source",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/objects/{object_name}/properties/{property_name}/sources/{index}",
		Summary:     "Delete lineage source",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID    string `path:"session_id"`
		ObjectName   string `path:"object_name"`
		PropertyName string `path:"property_name"`
		Index        int    `path:"index"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteColumnSource(ctx, input.SessionID, input.ObjectName, input.PropertyName, input.Index, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-quality-check",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/contract/quality",
		Summary:       "Add quality rule",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string                    `path:"session_id"`
		Body      CreateQualityCheckRequest `json:"body"`
	}) (*idBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		id, err := e.AddQualityCheck(ctx, input.SessionID, actorID, domain.QualityCheck{
			Type:              input.Body.Type,
			Description:       input.Body.Description,
			Dimension:         input.Body.Dimension,
			Metric:            input.Body.Metric,
			Severity:          input.Body.Severity,
			MustBe:            input.Body.MustBe,
			MustBeGreaterThan: input.Body.MustBeGreaterThan,
			MustBeLessThan:    input.Body.MustBeLessThan,
			Schedule:          input.Body.Schedule,
			Scheduler:         input.Body.Scheduler,
			BusinessImpact:    input.Body.BusinessImpact,
			Method:            input.Body.Method,
			Column:            input.Body.Column,
			Query:             input.Body.Query,
			Engine:            input.Body.Engine,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return newIDBody(id), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-quality-check",
		Method:      http.MethodPatch,
		Path:        "/sessions/{session_id}/contract/quality/{check_id}",
		Summary:     "Update quality rule",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string                    `path:"session_id"`
		CheckID   string                    `path:"check_id"`
		Body      UpdateQualityCheckRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.UpdateQualityCheck(ctx, input.SessionID, input.CheckID, actorID, engine.QualityCheckUpdate(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-quality-check",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/quality/{check_id}",
		Summary:     "Delete quality rule",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		CheckID   string `path:"check_id"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteQualityCheck(ctx, input.SessionID, input.CheckID, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-sla",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/contract/sla",
		Summary:       "Add SLA property",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string           `path:"session_id"`
		Body      CreateSLARequest `json:"body"`
	}) (*idBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		id, err := e.AddSLA(ctx, input.SessionID, actorID, domain.SLAProperty{
			Property:    input.Body.Property,
			Value:       input.Body.Value,
			Unit:        input.Body.Unit,
			Description: input.Body.Description,
			Schedule:    input.Body.Schedule,
			Scheduler:   input.Body.Scheduler,
			Driver:      input.Body.Driver,
			Element:     input.Body.Element,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return newIDBody(id), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-sla",
		Method:      http.MethodPatch,
		Path:        "/sessions/{session_id}/contract/sla/{sla_id}",
		Summary:     "Update SLA property",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string           `path:"session_id"`
		SLAID     string           `path:"sla_id"`
		Body      UpdateSLARequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.UpdateSLA(ctx, input.SessionID, input.SLAID, actorID, engine.SLAUpdate(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-sla",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/sla/{sla_id}",
		Summary:     "Delete SLA property",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		SLAID     string `path:"sla_id"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteSLA(ctx, input.SessionID, input.SLAID, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-sla-by-index",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/sla/index/{index}",
		Summary:     "Delete SLA property by position",
		Description: "Kept for clients created before SLA entries carried IDs.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Index     int    `path:"index"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteSLAByIndex(ctx, input.SessionID, input.Index, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-team-member",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/contract/team",
		Summary:       "Add team member",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string                  `path:"session_id"`
		Body      CreateTeamMemberRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.AddTeamMember(ctx, input.SessionID, actorID, domain.TeamMember(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-team-member",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/team/{index}",
		Summary:     "Delete team member",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Index     int    `path:"index"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteTeamMember(ctx, input.SessionID, input.Index, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-server",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/contract/servers",
		Summary:       "Add server",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string              `path:"session_id"`
		Body      CreateServerRequest `json:"body"`
	}) (*idBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		id, err := e.AddServer(ctx, input.SessionID, actorID, domain.Server{
			Type:        input.Body.Type,
			Environment: input.Body.Environment,
			Account:     input.Body.Account,
			Database:    input.Body.Database,
			SchemaName:  input.Body.SchemaName,
			Host:        input.Body.Host,
			Description: input.Body.Description,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return newIDBody(id), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-server",
		Method:      http.MethodPatch,
		Path:        "/sessions/{session_id}/contract/servers/{server_id}",
		Summary:     "Update server",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string              `path:"session_id"`
		ServerID  string              `path:"server_id"`
		Body      UpdateServerRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.UpdateServer(ctx, input.SessionID, input.ServerID, actorID, engine.ServerUpdate(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-server",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/servers/{server_id}",
		Summary:     "Delete server",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		ServerID  string `path:"server_id"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteServer(ctx, input.SessionID, input.ServerID, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-role",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/contract/roles",
		Summary:       "Add access role",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string            `path:"session_id"`
		Body      CreateRoleRequest `json:"body"`
	}) (*idBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		id, err := e.AddRole(ctx, input.SessionID, actorID, domain.ContractRole{
			Role:        input.Body.Role,
			Access:      input.Body.Access,
			Approvers:   input.Body.Approvers,
			Description: input.Body.Description,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return newIDBody(id), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-role",
		Method:      http.MethodPatch,
		Path:        "/sessions/{session_id}/contract/roles/{role_id}",
		Summary:     "Update access role",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string            `path:"session_id"`
		RoleID    string            `path:"role_id"`
		Body      UpdateRoleRequest `json:"body"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.UpdateRole(ctx, input.SessionID, input.RoleID, actorID, engine.RoleUpdate(input.Body)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-role",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/roles/{role_id}",
		Summary:     "Delete access role",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		RoleID    string `path:"role_id"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteRole(ctx, input.SessionID, input.RoleID, actorID))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-custom-property",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/contract/custom-properties",
		Summary:       "Add custom property",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string                      `path:"session_id"`
		Body      CreateCustomPropertyRequest `json:"body"`
	}) (*idBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		id, err := e.AddCustomProperty(ctx, input.SessionID, actorID, input.Body.Key, input.Body.Value)
		if err != nil {
			return nil, handleError(err)
		}
		return newIDBody(id), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-custom-property",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/contract/custom-properties/{property_id}",
		Summary:     "Delete custom property",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID  string `path:"session_id"`
		PropertyID string `path:"property_id"`
	}) (*sessionBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOut(e.DeleteCustomProperty(ctx, input.SessionID, input.PropertyID, actorID))
	})
}
