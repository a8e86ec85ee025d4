package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"pactline/internal/domain"
	"pactline/internal/events"
	"pactline/internal/repo"
)

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var columnTypes = map[string]bool{
	"string": true, "integer": true, "decimal": true, "date": true, "boolean": true,
}

// DatasetCreateOptions are parameters for creating a reference dataset.
type DatasetCreateOptions struct {
	Name        string
	DisplayName string
	Description string
	Domain      string
	Columns     []domain.DatasetColumn
	Owners      []string
	Tags        []string
	ActorID     string
}

func validateColumns(cols []domain.DatasetColumn) error {
	seen := map[string]bool{}
	for _, c := range cols {
		if strings.TrimSpace(c.Name) == "" {
			return errors.New("column name is required")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column '%s'", c.Name)
		}
		seen[c.Name] = true
		if c.ColumnType != "" && !columnTypes[c.ColumnType] {
			return fmt.Errorf("invalid column_type: %s", c.ColumnType)
		}
	}
	return nil
}

func (e Engine) CreateDataset(ctx context.Context, opts DatasetCreateOptions) (domain.Dataset, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.Dataset{}, errors.New("name is required")
	}
	if !slugPattern.MatchString(name) {
		return domain.Dataset{}, fmt.Errorf("invalid dataset name '%s': must be a snake_case slug", name)
	}
	if err := validateColumns(opts.Columns); err != nil {
		return domain.Dataset{}, err
	}
	if _, err := e.Repo.GetDatasetByName(ctx, name); err == nil {
		return domain.Dataset{}, fmt.Errorf("Dataset '%s' already exists", name)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Dataset{}, err
	}
	now := e.nowString()
	for i := range opts.Columns {
		if opts.Columns[i].ColumnType == "" {
			opts.Columns[i].ColumnType = "string"
		}
	}
	ds := domain.Dataset{
		ID:          uuid.NewString(),
		Name:        name,
		DisplayName: opts.DisplayName,
		Description: opts.Description,
		Domain:      opts.Domain,
		Columns:     opts.Columns,
		Status:      domain.StatusDraft,
		Version:     "1.0",
		Owners:      opts.Owners,
		Tags:        opts.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ds.Domain == "" {
		ds.Domain = "General"
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Dataset{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertDataset(ctx, tx, ds); err != nil {
		return domain.Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeDatasetCreated, "", "dataset", ds.ID, opts.ActorID, events.EventPayload{"name": ds.Name}); err != nil {
		return domain.Dataset{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Dataset{}, err
	}
	return ds, nil
}

func (e Engine) GetDataset(ctx context.Context, id string) (domain.Dataset, error) {
	return e.Repo.GetDataset(ctx, id)
}

func (e Engine) ListDatasets(ctx context.Context, f repo.DatasetFilters) ([]domain.Dataset, error) {
	return e.Repo.ListDatasets(ctx, f)
}

// DatasetGroups returns datasets bucketed by domain.
func (e Engine) DatasetGroups(ctx context.Context) (map[string][]domain.Dataset, error) {
	all, err := e.Repo.ListDatasets(ctx, repo.DatasetFilters{})
	if err != nil {
		return nil, err
	}
	groups := map[string][]domain.Dataset{}
	for _, ds := range all {
		groups[ds.Domain] = append(groups[ds.Domain], ds)
	}
	return groups, nil
}

// DatasetUpdate holds partial dataset updates. Nil fields are left untouched.
type DatasetUpdate struct {
	DisplayName *string
	Description *string
	Domain      *string
	Columns     *[]domain.DatasetColumn
	Owners      *[]string
	Tags        *[]string
	Status      *string
	Version     *string
}

func (e Engine) UpdateDataset(ctx context.Context, id, actorID string, upd DatasetUpdate) (domain.Dataset, error) {
	if upd.Status != nil {
		switch *upd.Status {
		case domain.StatusDraft, domain.StatusActive, domain.StatusDeprecated:
		default:
			return domain.Dataset{}, fmt.Errorf("invalid status: %s", *upd.Status)
		}
	}
	if upd.Columns != nil {
		if err := validateColumns(*upd.Columns); err != nil {
			return domain.Dataset{}, err
		}
	}
	ds, err := e.Repo.GetDataset(ctx, id)
	if err != nil {
		return domain.Dataset{}, err
	}
	if upd.DisplayName != nil {
		ds.DisplayName = *upd.DisplayName
	}
	if upd.Description != nil {
		ds.Description = *upd.Description
	}
	if upd.Domain != nil {
		ds.Domain = *upd.Domain
	}
	if upd.Columns != nil {
		ds.Columns = *upd.Columns
	}
	if upd.Owners != nil {
		ds.Owners = *upd.Owners
	}
	if upd.Tags != nil {
		ds.Tags = *upd.Tags
	}
	if upd.Status != nil {
		ds.Status = *upd.Status
	}
	if upd.Version != nil {
		ds.Version = *upd.Version
	}
	ds.UpdatedAt = e.nowString()
	return ds, e.saveDataset(ctx, ds, actorID, events.TypeDatasetUpdated)
}

// DeprecateDataset soft-deletes a dataset by marking it deprecated. Rows are
// kept so the dataset can be reactivated.
func (e Engine) DeprecateDataset(ctx context.Context, id, actorID string) (domain.Dataset, error) {
	ds, err := e.Repo.GetDataset(ctx, id)
	if err != nil {
		return domain.Dataset{}, err
	}
	ds.Status = domain.StatusDeprecated
	ds.UpdatedAt = e.nowString()
	return ds, e.saveDataset(ctx, ds, actorID, events.TypeDatasetUpdated)
}

// PurgeDataset permanently removes a dataset and its rows.
func (e Engine) PurgeDataset(ctx context.Context, id, actorID string) error {
	ds, err := e.Repo.GetDataset(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteDataset(ctx, id); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, events.TypeDatasetDeleted, "", "dataset", ds.ID, actorID, events.EventPayload{"name": ds.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

// PublishDataset marks a dataset active, making it authoritative for lookups.
func (e Engine) PublishDataset(ctx context.Context, id, actorID string) (domain.Dataset, error) {
	ds, err := e.Repo.GetDataset(ctx, id)
	if err != nil {
		return domain.Dataset{}, err
	}
	ds.Status = domain.StatusActive
	ds.UpdatedAt = e.nowString()
	return ds, e.saveDataset(ctx, ds, actorID, events.TypeDatasetUpdated)
}

func (e Engine) saveDataset(ctx context.Context, ds domain.Dataset, actorID, evtType string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateDataset(ctx, tx, ds); err != nil {
		return fmt.Errorf("update dataset: %w", err)
	}
	if err := e.Events.Append(ctx, tx, evtType, "", "dataset", ds.ID, actorID, events.EventPayload{"name": ds.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

// validateRowValues checks that every value key is a defined column and that
// non-nullable columns are present.
func validateRowValues(ds domain.Dataset, values map[string]string) error {
	cols := map[string]domain.DatasetColumn{}
	for _, c := range ds.Columns {
		cols[c.Name] = c
	}
	for k := range values {
		if _, ok := cols[k]; !ok {
			return fmt.Errorf("unknown column '%s'", k)
		}
	}
	for _, c := range ds.Columns {
		if !c.IsNullable && strings.TrimSpace(values[c.Name]) == "" {
			return fmt.Errorf("column '%s' is required", c.Name)
		}
	}
	return nil
}

func (e Engine) AddRow(ctx context.Context, datasetID, actorID string, values map[string]string) (domain.ReferenceRow, error) {
	ds, err := e.Repo.GetDataset(ctx, datasetID)
	if err != nil {
		return domain.ReferenceRow{}, err
	}
	if err := validateRowValues(ds, values); err != nil {
		return domain.ReferenceRow{}, err
	}
	now := e.nowString()
	row := domain.ReferenceRow{
		ID:        uuid.NewString(),
		DatasetID: datasetID,
		Values:    values,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ReferenceRow{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertRow(ctx, tx, row); err != nil {
		return domain.ReferenceRow{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeRowsChanged, "", "dataset", datasetID, actorID, events.EventPayload{"added": 1}); err != nil {
		return domain.ReferenceRow{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ReferenceRow{}, err
	}
	return row, nil
}

func (e Engine) UpdateRow(ctx context.Context, datasetID, rowID, actorID string, values map[string]string) (domain.ReferenceRow, error) {
	ds, err := e.Repo.GetDataset(ctx, datasetID)
	if err != nil {
		return domain.ReferenceRow{}, err
	}
	if err := validateRowValues(ds, values); err != nil {
		return domain.ReferenceRow{}, err
	}
	row, err := e.Repo.GetRow(ctx, datasetID, rowID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.ReferenceRow{}, notFoundf("Row not found")
		}
		return domain.ReferenceRow{}, err
	}
	row.Values = values
	row.UpdatedAt = e.nowString()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ReferenceRow{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateRow(ctx, tx, row); err != nil {
		return domain.ReferenceRow{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeRowsChanged, "", "dataset", datasetID, actorID, events.EventPayload{"updated": 1}); err != nil {
		return domain.ReferenceRow{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ReferenceRow{}, err
	}
	return row, nil
}

func (e Engine) DeleteRow(ctx context.Context, datasetID, rowID, actorID string) error {
	if _, err := e.Repo.GetDataset(ctx, datasetID); err != nil {
		return err
	}
	if _, err := e.Repo.GetRow(ctx, datasetID, rowID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundf("Row not found")
		}
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteRow(ctx, tx, datasetID, rowID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeRowsChanged, "", "dataset", datasetID, actorID, events.EventPayload{"deleted": 1}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) ListRows(ctx context.Context, datasetID string, includeDeprecated bool) ([]domain.ReferenceRow, error) {
	if _, err := e.Repo.GetDataset(ctx, datasetID); err != nil {
		return nil, err
	}
	rows, err := e.Repo.ListRows(ctx, datasetID, 0)
	if err != nil {
		return nil, err
	}
	if includeDeprecated {
		return rows, nil
	}
	active := rows[:0]
	for _, r := range rows {
		if r.Status != domain.StatusDeprecated {
			active = append(active, r)
		}
	}
	return active, nil
}

// ImportResult summarizes a bulk row import.
type ImportResult struct {
	Imported   int  `json:"imported"`
	ReplaceAll bool `json:"replace_all"`
}

// ImportRows bulk-inserts rows from a list of value maps. With replaceAll,
// existing rows are removed first.
func (e Engine) ImportRows(ctx context.Context, datasetID, actorID string, rows []map[string]string, replaceAll bool) (ImportResult, error) {
	ds, err := e.Repo.GetDataset(ctx, datasetID)
	if err != nil {
		return ImportResult{}, err
	}
	if len(rows) == 0 {
		return ImportResult{}, errors.New("no rows provided")
	}
	for i, values := range rows {
		if err := validateRowValues(ds, values); err != nil {
			return ImportResult{}, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, err
	}
	defer tx.Rollback()
	if replaceAll {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE dataset_id = ?`, datasetID); err != nil {
			return ImportResult{}, err
		}
	}
	now := e.nowString()
	for _, values := range rows {
		row := domain.ReferenceRow{
			ID:        uuid.NewString(),
			DatasetID: datasetID,
			Values:    values,
			Status:    domain.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.Repo.InsertRow(ctx, tx, row); err != nil {
			return ImportResult{}, err
		}
	}
	payload := events.EventPayload{"imported": len(rows), "replace_all": replaceAll}
	if err := e.Events.Append(ctx, tx, events.TypeRowsChanged, "", "dataset", datasetID, actorID, payload); err != nil {
		return ImportResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Imported: len(rows), ReplaceAll: replaceAll}, nil
}
