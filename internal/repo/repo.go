package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pactline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// SessionSummary is the list-view projection of a session.
type SessionSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Requester    string `json:"requester"`
	CurrentStage string `json:"current_stage"`
	ContractName string `json:"contract_name,omitempty"`
	NumObjects   int    `json:"num_objects"`
	NumComments  int    `json:"num_comments"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func (r Repo) InsertSession(ctx context.Context, tx *sql.Tx, s domain.Session) error {
	reqJSON, err := json.Marshal(s.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	conJSON, err := json.Marshal(s.Contract)
	if err != nil {
		return fmt.Errorf("marshal contract: %w", err)
	}
	parts := s.Participants
	if parts == nil {
		parts = []domain.Participant{}
	}
	partJSON, err := json.Marshal(parts)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO sessions(id,current_stage,request_json,contract_json,participants_json,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		s.ID, s.CurrentStage, string(reqJSON), string(conJSON), string(partJSON), s.CreatedAt, s.UpdatedAt)
	return err
}

// UpdateSession persists the mutable parts of a session row. Comments and
// history live in their own tables and are not touched here.
func (r Repo) UpdateSession(ctx context.Context, tx *sql.Tx, s domain.Session) error {
	conJSON, err := json.Marshal(s.Contract)
	if err != nil {
		return fmt.Errorf("marshal contract: %w", err)
	}
	reqJSON, err := json.Marshal(s.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	parts := s.Participants
	if parts == nil {
		parts = []domain.Participant{}
	}
	partJSON, err := json.Marshal(parts)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE sessions SET current_stage=?, request_json=?, contract_json=?, participants_json=?, updated_at=? WHERE id=?`,
		s.CurrentStage, string(reqJSON), string(conJSON), string(partJSON), s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) scanSession(row *sql.Row) (domain.Session, error) {
	var s domain.Session
	var reqJSON, conJSON, partJSON string
	err := row.Scan(&s.ID, &s.CurrentStage, &reqJSON, &conJSON, &partJSON, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(reqJSON), &s.Request); err != nil {
		return s, fmt.Errorf("unmarshal request: %w", err)
	}
	if err := json.Unmarshal([]byte(conJSON), &s.Contract); err != nil {
		return s, fmt.Errorf("unmarshal contract: %w", err)
	}
	if err := json.Unmarshal([]byte(partJSON), &s.Participants); err != nil {
		return s, fmt.Errorf("unmarshal participants: %w", err)
	}
	return s, nil
}

// GetSession loads a fully hydrated session including comments and history.
func (r Repo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	s, err := r.scanSession(r.DB.QueryRowContext(ctx,
		`SELECT id,current_stage,request_json,contract_json,participants_json,created_at,updated_at FROM sessions WHERE id=?`, id))
	if err != nil {
		return s, err
	}
	if s.Comments, err = r.ListComments(ctx, id); err != nil {
		return s, err
	}
	if s.History, err = r.ListTransitions(ctx, id); err != nil {
		return s, err
	}
	return s, nil
}

type SessionFilters struct {
	Stage           string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

// ListSessions returns session summaries newest first.
func (r Repo) ListSessions(ctx context.Context, f SessionFilters) ([]SessionSummary, error) {
	var clauses []string
	var args []any
	if f.Stage != "" {
		clauses = append(clauses, "s.current_stage=?")
		args = append(args, f.Stage)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(s.created_at < ? OR (s.created_at = ? AND s.id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT s.id, s.current_stage, s.request_json, s.contract_json, s.created_at, s.updated_at,
		(SELECT COUNT(*) FROM comments c WHERE c.session_id=s.id) AS num_comments
		FROM sessions s ` + where + ` ORDER BY s.created_at DESC, s.id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var reqJSON, conJSON string
		if err := rows.Scan(&sum.ID, &sum.CurrentStage, &reqJSON, &conJSON, &sum.CreatedAt, &sum.UpdatedAt, &sum.NumComments); err != nil {
			return nil, err
		}
		var req domain.ContractRequest
		if err := json.Unmarshal([]byte(reqJSON), &req); err != nil {
			return nil, fmt.Errorf("unmarshal request: %w", err)
		}
		var con domain.Contract
		if err := json.Unmarshal([]byte(conJSON), &con); err != nil {
			return nil, fmt.Errorf("unmarshal contract: %w", err)
		}
		sum.Title = req.Title
		sum.Requester = req.Requester.Name
		sum.ContractName = con.Name
		sum.NumObjects = len(con.SchemaObjects)
		res = append(res, sum)
	}
	return res, rows.Err()
}

func (r Repo) DeleteSession(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertComment(ctx context.Context, tx *sql.Tx, c domain.Comment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO comments(id,session_id,author_name,author_email,content,stage,parent_id,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.SessionID, c.Author.Name, c.Author.Email, c.Content, c.Stage, nullableStringPtr(c.ParentID), c.CreatedAt)
	return err
}

// ListComments returns a session's comments oldest first.
func (r Repo) ListComments(ctx context.Context, sessionID string) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,session_id,author_name,author_email,content,stage,parent_id,created_at FROM comments WHERE session_id=? ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var parent sql.NullString
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Author.Name, &c.Author.Email, &c.Content, &c.Stage, &parent, &c.CreatedAt); err != nil {
			return nil, err
		}
		if parent.Valid {
			c.ParentID = &parent.String
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) DeleteComment(ctx context.Context, sessionID, commentID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM comments WHERE id=? AND session_id=?`, commentID, sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertTransition(ctx context.Context, tx *sql.Tx, t domain.StageTransition) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO stage_transitions(session_id,from_stage,to_stage,by_name,by_email,reason,ts) VALUES (?,?,?,?,?,?,?)`,
		t.SessionID, t.FromStage, t.ToStage, t.TransitionedBy.Name, t.TransitionedBy.Email, nullableStringPtr(t.Reason), t.TS)
	return err
}

// ListTransitions returns a session's stage history oldest first.
func (r Repo) ListTransitions(ctx context.Context, sessionID string) ([]domain.StageTransition, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT session_id,from_stage,to_stage,by_name,by_email,reason,ts FROM stage_transitions WHERE session_id=? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StageTransition
	for rows.Next() {
		var t domain.StageTransition
		var reason sql.NullString
		if err := rows.Scan(&t.SessionID, &t.FromStage, &t.ToStage, &t.TransitionedBy.Name, &t.TransitionedBy.Email, &reason, &t.TS); err != nil {
			return nil, err
		}
		if reason.Valid {
			t.Reason = &reason.String
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) LatestEvents(ctx context.Context, limit int, sessionID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, sessionID, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, sessionID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if sessionID != "" {
		clauses = append(clauses, "session_id=?")
		args = append(args, sessionID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(session_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id,ts,type,COALESCE(session_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`
	return r.queryEvents(ctx, query, cursor, limit)
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.SessionID, &e.EntityKind, &e.EntityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// CountSessionsByStage returns session counts grouped by stage.
func (r Repo) CountSessionsByStage(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT current_stage, count(*) FROM sessions GROUP BY current_stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		res[stage] = count
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
