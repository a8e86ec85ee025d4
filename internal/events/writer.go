package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types appended by the engine.
const (
	TypeSessionCreated  = "session.created"
	TypeSessionDeleted  = "session.deleted"
	TypeStageAdvanced   = "session.stage_advanced"
	TypeContractUpdated = "contract.updated"
	TypeCommentAdded    = "comment.added"
	TypeCommentDeleted  = "comment.deleted"
	TypeDatasetCreated  = "dataset.created"
	TypeDatasetUpdated  = "dataset.updated"
	TypeDatasetDeleted  = "dataset.deleted"
	TypeRowsChanged     = "dataset.rows_changed"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, sessionID, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,session_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evtType, nullable(sessionID), entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
