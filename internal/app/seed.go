package app

import (
	"context"
	"fmt"

	"pactline/internal/domain"
	"pactline/internal/engine"
)

const seedActor = "demo-user"

// Seed populates a workspace with demo sessions at different stages and a
// couple of reference datasets. Intended for local evaluation only.
func Seed(ctx context.Context, eng engine.Engine) error {
	if err := seedSessions(ctx, eng); err != nil {
		return err
	}
	return seedDatasets(ctx, eng)
}

func seedSessions(ctx context.Context, eng engine.Engine) error {
	// A brand-new request, untouched.
	if _, err := eng.CreateSession(ctx, engine.SessionCreateOptions{
		Title:           "Marketing Attribution Feed",
		Description:     "Channel-level attribution for campaign reporting",
		BusinessContext: "Marketing wants to reconcile spend against conversions",
		Urgency:         "medium",
		RequesterName:   "Priya Shah",
		RequesterEmail:  "priya@example.com",
		Domain:          "marketing",
		DesiredFields:   []string{"campaign_id", "channel", "spend", "conversions"},
		ActorID:         seedActor,
	}); err != nil {
		return fmt.Errorf("seed marketing session: %w", err)
	}

	// A session mid-flight in specification with a sketched schema.
	spec, err := eng.CreateSession(ctx, engine.SessionCreateOptions{
		Title:          "Customer Orders",
		Description:    "Daily order snapshot for the analytics team",
		Urgency:        "high",
		RequesterName:  "Dana Webb",
		RequesterEmail: "dana@example.com",
		Domain:         "sales",
		DataProduct:    "orders",
		ActorID:        seedActor,
	})
	if err != nil {
		return fmt.Errorf("seed orders session: %w", err)
	}
	if err := driveToSpecification(ctx, eng, spec.ID, "Dana Webb"); err != nil {
		return err
	}
	if _, err := eng.AddObject(ctx, spec.ID, seedActor, engine.ObjectOptions{
		Name:         "orders",
		PhysicalName: "fct_orders",
		Description:  "One row per order",
	}); err != nil {
		return err
	}
	for _, p := range []engine.PropertyOptions{
		{Name: "order_id", LogicalType: "string", Required: true, PrimaryKey: true},
		{Name: "customer_id", LogicalType: "string", Required: true},
		{Name: "order_total", LogicalType: "number"},
		{Name: "ordered_at", LogicalType: "timestamp", Required: true},
	} {
		if _, err := eng.AddProperty(ctx, spec.ID, "orders", seedActor, p); err != nil {
			return err
		}
	}

	// A fully approved contract.
	active, err := eng.CreateSession(ctx, engine.SessionCreateOptions{
		Title:         "Currency Rates",
		Description:   "Daily FX rates from treasury",
		Urgency:       "low",
		RequesterName: "Marco Lenz",
		Domain:        "finance",
		ActorID:       seedActor,
	})
	if err != nil {
		return fmt.Errorf("seed currency session: %w", err)
	}
	if err := driveToSpecification(ctx, eng, active.ID, "Marco Lenz"); err != nil {
		return err
	}
	if _, err := eng.AddObject(ctx, active.ID, seedActor, engine.ObjectOptions{Name: "rates"}); err != nil {
		return err
	}
	if _, err := eng.AddProperty(ctx, active.ID, "rates", seedActor, engine.PropertyOptions{
		Name: "currency", LogicalType: "string", Required: true, PrimaryKey: true,
	}); err != nil {
		return err
	}
	if _, err := eng.AddProperty(ctx, active.ID, "rates", seedActor, engine.PropertyOptions{
		Name: "rate", LogicalType: "number", Required: true,
	}); err != nil {
		return err
	}
	if err := advance(ctx, eng, active.ID, "review", "Marco Lenz"); err != nil {
		return err
	}
	if _, err := eng.AddComment(ctx, engine.CommentOptions{
		SessionID:  active.ID,
		AuthorName: "Ana Reviewer",
		Content:    "Schema looks complete, approving.",
		ActorID:    seedActor,
	}); err != nil {
		return err
	}
	if err := advance(ctx, eng, active.ID, "approval", "Ana Reviewer"); err != nil {
		return err
	}
	return advance(ctx, eng, active.ID, "active", "Ana Reviewer")
}

func driveToSpecification(ctx context.Context, eng engine.Engine, sessionID, actor string) error {
	if err := advance(ctx, eng, sessionID, "discovery", actor); err != nil {
		return err
	}
	if _, err := eng.AddComment(ctx, engine.CommentOptions{
		SessionID:  sessionID,
		AuthorName: actor,
		Content:    "Source systems identified, moving to schema design.",
		ActorID:    seedActor,
	}); err != nil {
		return err
	}
	return advance(ctx, eng, sessionID, "specification", actor)
}

func advance(ctx context.Context, eng engine.Engine, sessionID, target, actor string) error {
	_, err := eng.AdvanceStage(ctx, engine.StageAdvanceOptions{
		SessionID:   sessionID,
		TargetStage: target,
		ActorName:   actor,
		ActorID:     seedActor,
	})
	if err != nil {
		return fmt.Errorf("advance %s to %s: %w", sessionID, target, err)
	}
	return nil
}

func seedDatasets(ctx context.Context, eng engine.Engine) error {
	countries, err := eng.CreateDataset(ctx, engine.DatasetCreateOptions{
		Name:        "country_codes",
		DisplayName: "Country Codes",
		Description: "ISO 3166-1 alpha-2 codes",
		Domain:      "General",
		Columns: []domain.DatasetColumn{
			{Name: "code", ColumnType: "string", IsPrimaryKey: true},
			{Name: "name", ColumnType: "string"},
		},
		Owners:  []string{"data-platform"},
		ActorID: seedActor,
	})
	if err != nil {
		return fmt.Errorf("seed country_codes: %w", err)
	}
	for _, row := range []map[string]string{
		{"code": "US", "name": "United States"},
		{"code": "DE", "name": "Germany"},
		{"code": "JP", "name": "Japan"},
	} {
		if _, err := eng.AddRow(ctx, countries.ID, seedActor, row); err != nil {
			return err
		}
	}
	if _, err := eng.PublishDataset(ctx, countries.ID, seedActor); err != nil {
		return err
	}

	_, err = eng.CreateDataset(ctx, engine.DatasetCreateOptions{
		Name:        "currency_codes",
		DisplayName: "Currency Codes",
		Description: "ISO 4217 currency codes",
		Domain:      "finance",
		Columns: []domain.DatasetColumn{
			{Name: "code", ColumnType: "string", IsPrimaryKey: true},
			{Name: "name", ColumnType: "string"},
			{Name: "minor_units", ColumnType: "integer", IsNullable: true},
		},
		ActorID: seedActor,
	})
	if err != nil {
		return fmt.Errorf("seed currency_codes: %w", err)
	}
	return nil
}
