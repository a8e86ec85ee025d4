package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"pactline/internal/domain"
)

func (r Repo) InsertDataset(ctx context.Context, tx *sql.Tx, d domain.Dataset) error {
	colsJSON, ownersJSON, tagsJSON, err := datasetJSON(d)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO datasets(id,name,display_name,description,domain,columns_json,status,version,owners_json,tags_json,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.Name, nullable(d.DisplayName), nullable(d.Description), nullable(d.Domain),
		colsJSON, d.Status, d.Version, ownersJSON, tagsJSON, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) UpdateDataset(ctx context.Context, tx *sql.Tx, d domain.Dataset) error {
	colsJSON, ownersJSON, tagsJSON, err := datasetJSON(d)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE datasets SET name=?, display_name=?, description=?, domain=?, columns_json=?, status=?, version=?, owners_json=?, tags_json=?, updated_at=? WHERE id=?`,
		d.Name, nullable(d.DisplayName), nullable(d.Description), nullable(d.Domain),
		colsJSON, d.Status, d.Version, ownersJSON, tagsJSON, d.UpdatedAt, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func datasetJSON(d domain.Dataset) (cols, owners, tags string, err error) {
	c := d.Columns
	if c == nil {
		c = []domain.DatasetColumn{}
	}
	colsB, err := json.Marshal(c)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal columns: %w", err)
	}
	o := d.Owners
	if o == nil {
		o = []string{}
	}
	ownersB, err := json.Marshal(o)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal owners: %w", err)
	}
	t := d.Tags
	if t == nil {
		t = []string{}
	}
	tagsB, err := json.Marshal(t)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(colsB), string(ownersB), string(tagsB), nil
}

const datasetColumns = `id,name,COALESCE(display_name,''),COALESCE(description,''),COALESCE(domain,''),columns_json,status,version,owners_json,tags_json,created_at,updated_at,
(SELECT COUNT(*) FROM dataset_rows dr WHERE dr.dataset_id=datasets.id) AS row_count`

func scanDataset(scan func(dest ...any) error) (domain.Dataset, error) {
	var d domain.Dataset
	var colsJSON, ownersJSON, tagsJSON string
	err := scan(&d.ID, &d.Name, &d.DisplayName, &d.Description, &d.Domain, &colsJSON, &d.Status, &d.Version, &ownersJSON, &tagsJSON, &d.CreatedAt, &d.UpdatedAt, &d.RowCount)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal([]byte(colsJSON), &d.Columns); err != nil {
		return d, fmt.Errorf("unmarshal columns: %w", err)
	}
	if err := json.Unmarshal([]byte(ownersJSON), &d.Owners); err != nil {
		return d, fmt.Errorf("unmarshal owners: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &d.Tags); err != nil {
		return d, fmt.Errorf("unmarshal tags: %w", err)
	}
	return d, nil
}

func (r Repo) GetDataset(ctx context.Context, id string) (domain.Dataset, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id=?`, id)
	return scanDataset(row.Scan)
}

func (r Repo) GetDatasetByName(ctx context.Context, name string) (domain.Dataset, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE name=?`, name)
	return scanDataset(row.Scan)
}

type DatasetFilters struct {
	Domain string
	Status string
	Limit  int
}

func (r Repo) ListDatasets(ctx context.Context, f DatasetFilters) ([]domain.Dataset, error) {
	var clauses []string
	var args []any
	if f.Domain != "" {
		clauses = append(clauses, "domain=?")
		args = append(args, f.Domain)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + datasetColumns + ` FROM datasets ` + where + ` ORDER BY name ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) DeleteDataset(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM datasets WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertRow(ctx context.Context, tx *sql.Tx, row domain.ReferenceRow) error {
	valsJSON, err := json.Marshal(row.Values)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO dataset_rows(id,dataset_id,values_json,status,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		row.ID, row.DatasetID, string(valsJSON), row.Status, row.CreatedAt, row.UpdatedAt)
	return err
}

func (r Repo) UpdateRow(ctx context.Context, tx *sql.Tx, row domain.ReferenceRow) error {
	valsJSON, err := json.Marshal(row.Values)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE dataset_rows SET values_json=?, status=?, updated_at=? WHERE id=? AND dataset_id=?`,
		string(valsJSON), row.Status, row.UpdatedAt, row.ID, row.DatasetID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetRow(ctx context.Context, datasetID, rowID string) (domain.ReferenceRow, error) {
	var row domain.ReferenceRow
	var valsJSON string
	err := r.DB.QueryRowContext(ctx, `SELECT id,dataset_id,values_json,status,created_at,updated_at FROM dataset_rows WHERE id=? AND dataset_id=?`, rowID, datasetID).
		Scan(&row.ID, &row.DatasetID, &valsJSON, &row.Status, &row.CreatedAt, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return row, ErrNotFound
	}
	if err != nil {
		return row, err
	}
	if err := json.Unmarshal([]byte(valsJSON), &row.Values); err != nil {
		return row, fmt.Errorf("unmarshal values: %w", err)
	}
	return row, nil
}

func (r Repo) ListRows(ctx context.Context, datasetID string, limit int) ([]domain.ReferenceRow, error) {
	query := `SELECT id,dataset_id,values_json,status,created_at,updated_at FROM dataset_rows WHERE dataset_id=? ORDER BY created_at ASC, id ASC`
	args := []any{datasetID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ReferenceRow
	for rows.Next() {
		var row domain.ReferenceRow
		var valsJSON string
		if err := rows.Scan(&row.ID, &row.DatasetID, &valsJSON, &row.Status, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(valsJSON), &row.Values); err != nil {
			return nil, fmt.Errorf("unmarshal values: %w", err)
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

func (r Repo) DeleteRow(ctx context.Context, tx *sql.Tx, datasetID, rowID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE id=? AND dataset_id=?`, rowID, datasetID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
