package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pactline/internal/config"
	"pactline/internal/domain"
	"pactline/internal/events"
	"pactline/internal/lifecycle"
	"pactline/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

var urgencies = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}

// SessionCreateOptions are parameters for opening a new contract session.
type SessionCreateOptions struct {
	Title           string
	Description     string
	BusinessContext string
	TargetUseCase   string
	Urgency         string
	RequesterName   string
	RequesterEmail  string
	Domain          string
	DataProduct     string
	DesiredFields   []string
	ActorID         string
}

// CreateSession opens a session in the request stage and seeds the contract
// from the request.
func (e Engine) CreateSession(ctx context.Context, opts SessionCreateOptions) (domain.Session, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Session{}, errors.New("title is required")
	}
	if strings.TrimSpace(opts.RequesterName) == "" {
		return domain.Session{}, errors.New("requester_name is required")
	}
	if opts.Urgency == "" {
		opts.Urgency = "medium"
	}
	if !urgencies[opts.Urgency] {
		return domain.Session{}, fmt.Errorf("invalid urgency: %s", opts.Urgency)
	}

	now := e.nowString()
	requester := domain.Participant{Name: opts.RequesterName, Email: opts.RequesterEmail}

	apiVersion := "v3.1.0"
	kind := "DataContract"
	version := "0.1.0"
	if e.Config != nil {
		if e.Config.Contract.APIVersion != "" {
			apiVersion = e.Config.Contract.APIVersion
		}
		if e.Config.Contract.Kind != "" {
			kind = e.Config.Contract.Kind
		}
		if e.Config.Contract.InitialVersion != "" {
			version = e.Config.Contract.InitialVersion
		}
	}

	s := domain.Session{
		ID:           uuid.NewString(),
		CurrentStage: domain.StageRequest,
		Request: domain.ContractRequest{
			ID:              uuid.NewString(),
			Title:           opts.Title,
			Description:     opts.Description,
			BusinessContext: opts.BusinessContext,
			TargetUseCase:   opts.TargetUseCase,
			Urgency:         opts.Urgency,
			Requester:       requester,
			Domain:          opts.Domain,
			DataProduct:     opts.DataProduct,
			DesiredFields:   opts.DesiredFields,
			CreatedAt:       now,
		},
		Contract: domain.Contract{
			APIVersion:         apiVersion,
			Kind:               kind,
			ID:                 uuid.NewString(),
			Name:               opts.Title,
			Version:            version,
			Status:             domain.StatusProposed,
			Domain:             opts.Domain,
			DataProduct:        opts.DataProduct,
			DescriptionPurpose: opts.Description,
		},
		Participants: []domain.Participant{requester},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if e.Config != nil && e.Config.Workspace.Tenant != "" {
		s.Contract.Tenant = e.Config.Workspace.Tenant
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertSession(ctx, tx, s); err != nil {
		return domain.Session{}, fmt.Errorf("insert session: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeSessionCreated, s.ID, "session", s.ID, opts.ActorID, events.EventPayload{"title": opts.Title}); err != nil {
		return domain.Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

func (e Engine) GetSession(ctx context.Context, id string) (domain.Session, error) {
	return e.Repo.GetSession(ctx, id)
}

func (e Engine) ListSessions(ctx context.Context, f repo.SessionFilters) ([]repo.SessionSummary, error) {
	if f.Stage != "" && !lifecycle.IsStage(f.Stage) {
		return nil, fmt.Errorf("invalid stage: %s", f.Stage)
	}
	return e.Repo.ListSessions(ctx, f)
}

func (e Engine) DeleteSession(ctx context.Context, id, actorID string) error {
	if err := e.Repo.DeleteSession(ctx, id); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, events.TypeSessionDeleted, id, "session", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// StageAdvanceOptions are parameters for a stage transition.
type StageAdvanceOptions struct {
	SessionID   string
	TargetStage string
	ActorName   string
	ActorEmail  string
	Reason      string
	ActorID     string
}

// AdvanceStage validates and applies a stage transition. On success the
// transition is recorded, the session stage moves, and the contract status
// follows the stage mapping, all in one transaction.
func (e Engine) AdvanceStage(ctx context.Context, opts StageAdvanceOptions) (domain.Session, error) {
	if strings.TrimSpace(opts.TargetStage) == "" {
		return domain.Session{}, errors.New("target_stage is required")
	}
	s, err := e.Repo.GetSession(ctx, opts.SessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if !lifecycle.IsStage(opts.TargetStage) {
		return domain.Session{}, fmt.Errorf("invalid stage: %s", opts.TargetStage)
	}
	if err := lifecycle.ValidateTransition(&s, opts.TargetStage); err != nil {
		return domain.Session{}, err
	}

	by := domain.Participant{Name: opts.ActorName, Email: opts.ActorEmail}
	if by.Name == "" {
		if len(s.Participants) > 0 {
			by = s.Participants[0]
		} else {
			by = domain.Participant{Name: "System"}
		}
	}
	now := e.nowString()
	transition := domain.StageTransition{
		SessionID:      s.ID,
		FromStage:      s.CurrentStage,
		ToStage:        opts.TargetStage,
		TransitionedBy: by,
		TS:             now,
	}
	if opts.Reason != "" {
		transition.Reason = &opts.Reason
	}

	fromStage := s.CurrentStage
	s.CurrentStage = opts.TargetStage
	if status, ok := lifecycle.StatusForStage(opts.TargetStage); ok {
		s.Contract.Status = status
	}
	s.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTransition(ctx, tx, transition); err != nil {
		return domain.Session{}, fmt.Errorf("insert transition: %w", err)
	}
	if err := e.Repo.UpdateSession(ctx, tx, s); err != nil {
		return domain.Session{}, fmt.Errorf("update session: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeStageAdvanced, s.ID, "session", s.ID, opts.ActorID, events.EventPayload{
		"from_stage": fromStage,
		"to_stage":   opts.TargetStage,
	}); err != nil {
		return domain.Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, err
	}
	s.History = append(s.History, transition)
	return s, nil
}

// CommentOptions are parameters for posting a comment.
type CommentOptions struct {
	SessionID   string
	AuthorName  string
	AuthorEmail string
	Content     string
	ParentID    string
	ActorID     string
}

// AddComment posts a comment tagged with the session's current stage.
func (e Engine) AddComment(ctx context.Context, opts CommentOptions) (domain.Comment, error) {
	if strings.TrimSpace(opts.Content) == "" {
		return domain.Comment{}, errors.New("content is required")
	}
	s, err := e.Repo.GetSession(ctx, opts.SessionID)
	if err != nil {
		return domain.Comment{}, err
	}
	c := domain.Comment{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		Author:    domain.Participant{Name: opts.AuthorName, Email: opts.AuthorEmail},
		Content:   opts.Content,
		Stage:     s.CurrentStage,
		CreatedAt: e.nowString(),
	}
	if opts.ParentID != "" {
		c.ParentID = &opts.ParentID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Comment{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertComment(ctx, tx, c); err != nil {
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeCommentAdded, s.ID, "comment", c.ID, opts.ActorID, events.EventPayload{"stage": c.Stage}); err != nil {
		return domain.Comment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Comment{}, err
	}
	return c, nil
}

// DeleteComment removes a comment from a session.
func (e Engine) DeleteComment(ctx context.Context, sessionID, commentID, actorID string) error {
	if _, err := e.Repo.GetSession(ctx, sessionID); err != nil {
		return err
	}
	if err := e.Repo.DeleteComment(ctx, sessionID, commentID); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, events.TypeCommentDeleted, sessionID, "comment", commentID, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// ListComments returns a session's comments, optionally filtered by stage.
func (e Engine) ListComments(ctx context.Context, sessionID, stage string) ([]domain.Comment, error) {
	if _, err := e.Repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	all, err := e.Repo.ListComments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stage == "" {
		return all, nil
	}
	var res []domain.Comment
	for _, c := range all {
		if c.Stage == stage {
			res = append(res, c)
		}
	}
	return res, nil
}
