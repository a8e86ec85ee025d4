package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"pactline/internal/config"
	"pactline/internal/db"
	"pactline/internal/domain"
	"pactline/internal/engine"
	"pactline/internal/migrate"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("testspace")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func newSession(t *testing.T, env testEnv) domain.Session {
	t.Helper()
	s, err := env.Engine.CreateSession(env.Ctx, engine.SessionCreateOptions{
		Title:         "Customer Orders",
		Description:   "Orders for the analytics team",
		RequesterName: "Dana",
		ActorID:       "tester",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func advance(t *testing.T, env testEnv, s domain.Session, target string) domain.Session {
	t.Helper()
	s, err := env.Engine.AdvanceStage(env.Ctx, engine.StageAdvanceOptions{
		SessionID: s.ID, TargetStage: target, ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("advance to %s: %v", target, err)
	}
	return s
}

func TestCreateSessionSeedsContract(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	if s.CurrentStage != domain.StageRequest {
		t.Fatalf("expected request stage, got %s", s.CurrentStage)
	}
	if s.Contract.Name != "Customer Orders" {
		t.Fatalf("contract name not seeded: %q", s.Contract.Name)
	}
	if s.Contract.DescriptionPurpose != "Orders for the analytics team" {
		t.Fatalf("purpose not seeded: %q", s.Contract.DescriptionPurpose)
	}
	if s.Contract.Status != domain.StatusProposed {
		t.Fatalf("expected proposed status, got %s", s.Contract.Status)
	}
	if len(s.Participants) != 1 || s.Participants[0].Name != "Dana" {
		t.Fatalf("requester not a participant: %+v", s.Participants)
	}
}

func TestCreateSessionRequiresTitleAndRequester(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateSession(env.Ctx, engine.SessionCreateOptions{RequesterName: "Dana"}); err == nil {
		t.Fatalf("expected title error")
	}
	if _, err := env.Engine.CreateSession(env.Ctx, engine.SessionCreateOptions{Title: "x"}); err == nil {
		t.Fatalf("expected requester error")
	}
}

func TestFullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)

	s = advance(t, env, s, domain.StageDiscovery)
	if s.Contract.Status != domain.StatusProposed {
		t.Fatalf("discovery should keep proposed, got %s", s.Contract.Status)
	}

	// specification gate needs a discovery comment
	if _, err := env.Engine.AdvanceStage(env.Ctx, engine.StageAdvanceOptions{SessionID: s.ID, TargetStage: domain.StageSpecification}); err == nil {
		t.Fatalf("expected discovery comment gate")
	}
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{
		SessionID: s.ID, AuthorName: "Dana", Content: "source is the orders service", ActorID: "tester",
	}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	s = advance(t, env, s, domain.StageSpecification)
	if s.Contract.Status != domain.StatusDraft {
		t.Fatalf("specification should set draft, got %s", s.Contract.Status)
	}

	// review gate needs a table with columns
	if _, err := env.Engine.AdvanceStage(env.Ctx, engine.StageAdvanceOptions{SessionID: s.ID, TargetStage: domain.StageReview}); err == nil {
		t.Fatalf("expected schema gate")
	}
	if _, err := env.Engine.AddObject(env.Ctx, s.ID, "tester", engine.ObjectOptions{Name: "orders"}); err != nil {
		t.Fatalf("add object: %v", err)
	}
	if _, err := env.Engine.AddProperty(env.Ctx, s.ID, "orders", "tester", engine.PropertyOptions{Name: "order_id", LogicalType: "string", PrimaryKey: true}); err != nil {
		t.Fatalf("add property: %v", err)
	}
	s = advance(t, env, s, domain.StageReview)

	// approval gate needs a review comment
	if _, err := env.Engine.AdvanceStage(env.Ctx, engine.StageAdvanceOptions{SessionID: s.ID, TargetStage: domain.StageApproval}); err == nil {
		t.Fatalf("expected review comment gate")
	}
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{
		SessionID: s.ID, AuthorName: "Rex", Content: "looks good", ActorID: "tester",
	}); err != nil {
		t.Fatalf("review comment: %v", err)
	}
	s = advance(t, env, s, domain.StageApproval)

	s = advance(t, env, s, domain.StageActive)
	if s.Contract.Status != domain.StatusActive {
		t.Fatalf("activation should set active, got %s", s.Contract.Status)
	}
	if len(s.History) != 5 {
		t.Fatalf("expected 5 transitions, got %d", len(s.History))
	}

	// active is terminal
	if _, err := env.Engine.AdvanceStage(env.Ctx, engine.StageAdvanceOptions{SessionID: s.ID, TargetStage: domain.StageRejected}); err == nil {
		t.Fatalf("expected terminal stage error")
	}
}

func TestRejectSkipsGatesAndKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	s = advance(t, env, s, domain.StageDiscovery)
	s = advance(t, env, s, domain.StageRejected)
	if s.CurrentStage != domain.StageRejected {
		t.Fatalf("expected rejected, got %s", s.CurrentStage)
	}
	if s.Contract.Status != domain.StatusProposed {
		t.Fatalf("rejection must not change status, got %s", s.Contract.Status)
	}
}

func TestAdvanceRecordsTransition(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	s = advance(t, env, s, domain.StageDiscovery)
	got, err := env.Engine.GetSession(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.History) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(got.History))
	}
	tr := got.History[0]
	if tr.FromStage != domain.StageRequest || tr.ToStage != domain.StageDiscovery {
		t.Fatalf("bad transition: %+v", tr)
	}
	// no actor given falls back to the first participant
	if tr.TransitionedBy.Name != "Dana" {
		t.Fatalf("expected requester attribution, got %q", tr.TransitionedBy.Name)
	}
}

func TestCommentsTaggedWithCurrentStage(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	s = advance(t, env, s, domain.StageDiscovery)
	c, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{
		SessionID: s.ID, AuthorName: "Dana", Content: "note", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Stage != domain.StageDiscovery {
		t.Fatalf("expected discovery tag, got %s", c.Stage)
	}
	comments, err := env.Engine.ListComments(env.Ctx, s.ID, domain.StageDiscovery)
	if err != nil || len(comments) != 1 {
		t.Fatalf("list by stage: %v (%d)", err, len(comments))
	}
	comments, err = env.Engine.ListComments(env.Ctx, s.ID, domain.StageReview)
	if err != nil || len(comments) != 0 {
		t.Fatalf("expected no review comments: %v (%d)", err, len(comments))
	}
}

func TestObjectAndPropertyConflicts(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	if _, err := env.Engine.AddObject(env.Ctx, s.ID, "tester", engine.ObjectOptions{Name: "orders"}); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.AddObject(env.Ctx, s.ID, "tester", engine.ObjectOptions{Name: "orders"})
	if err == nil || err.Error() != "Object 'orders' already exists" {
		t.Fatalf("expected object conflict, got %v", err)
	}
	if _, err := env.Engine.AddProperty(env.Ctx, s.ID, "orders", "tester", engine.PropertyOptions{Name: "id"}); err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.AddProperty(env.Ctx, s.ID, "orders", "tester", engine.PropertyOptions{Name: "id"})
	if err == nil || err.Error() != "Property 'id' already exists in 'orders'" {
		t.Fatalf("expected property conflict, got %v", err)
	}
	_, err = env.Engine.AddProperty(env.Ctx, s.ID, "missing", "tester", engine.PropertyOptions{Name: "x"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected object not found, got %v", err)
	}
}

func TestPropertyRename(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	_, _ = env.Engine.AddObject(env.Ctx, s.ID, "tester", engine.ObjectOptions{Name: "orders"})
	_, _ = env.Engine.AddProperty(env.Ctx, s.ID, "orders", "tester", engine.PropertyOptions{Name: "a"})
	_, _ = env.Engine.AddProperty(env.Ctx, s.ID, "orders", "tester", engine.PropertyOptions{Name: "b"})

	name := "b"
	if _, err := env.Engine.UpdateProperty(env.Ctx, s.ID, "orders", "a", "tester", engine.PropertyUpdate{Name: &name}); err == nil {
		t.Fatalf("expected rename conflict")
	}
	empty := "  "
	if _, err := env.Engine.UpdateProperty(env.Ctx, s.ID, "orders", "a", "tester", engine.PropertyUpdate{Name: &empty}); err == nil {
		t.Fatalf("expected empty name error")
	}
	name = "order_key"
	got, err := env.Engine.UpdateProperty(env.Ctx, s.ID, "orders", "a", "tester", engine.PropertyUpdate{Name: &name})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got.Contract.SchemaObjects[0].Properties[0].Name != "order_key" {
		t.Fatalf("rename not applied: %+v", got.Contract.SchemaObjects[0].Properties)
	}
}

func TestReorderProperty(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	_, _ = env.Engine.AddObject(env.Ctx, s.ID, "tester", engine.ObjectOptions{Name: "orders"})
	for _, n := range []string{"a", "b", "c"} {
		_, _ = env.Engine.AddProperty(env.Ctx, s.ID, "orders", "tester", engine.PropertyOptions{Name: n})
	}
	idx, err := env.Engine.ReorderProperty(env.Ctx, s.ID, "orders", "c", "up", "tester")
	if err != nil || idx != 1 {
		t.Fatalf("move up: idx=%d err=%v", idx, err)
	}
	// moving the first column up is a no-op
	idx, err = env.Engine.ReorderProperty(env.Ctx, s.ID, "orders", "a", "up", "tester")
	if err != nil || idx != 0 {
		t.Fatalf("edge move: idx=%d err=%v", idx, err)
	}
	if _, err := env.Engine.ReorderProperty(env.Ctx, s.ID, "orders", "a", "sideways", "tester"); err == nil {
		t.Fatalf("expected direction error")
	}
}

func TestMapColumns(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	_, _ = env.Engine.AddObject(env.Ctx, s.ID, "tester", engine.ObjectOptions{Name: "orders"})
	_, _ = env.Engine.AddProperty(env.Ctx, s.ID, "orders", "tester", engine.PropertyOptions{Name: "existing"})

	res, err := env.Engine.MapColumns(env.Ctx, s.ID, "orders", "tester", []engine.ColumnMapping{
		{SourceTable: "RAW.ORDERS", SourceColumn: "ORDER_ID", TargetColumnName: "order_id", LogicalType: "STRING", IsPrimary: true},
		{SourceTable: "RAW.ORDERS", SourceColumn: "AMT", TargetColumnName: "existing"},
		{SourceTable: "RAW.ORDERS", SourceColumn: "QTY", LogicalType: "unknown"},
	})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if res.Added != 2 || res.Skipped != 1 || res.TotalColumns != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	got, _ := env.Engine.GetSession(env.Ctx, s.ID)
	props := got.Contract.SchemaObjects[0].Properties
	if props[1].Name != "order_id" || !props[1].PrimaryKey || !props[1].Required {
		t.Fatalf("primary mapping wrong: %+v", props[1])
	}
	// unmapped logical types fall back to string
	if props[2].Name != "QTY" || props[2].LogicalType != "string" {
		t.Fatalf("fallback mapping wrong: %+v", props[2])
	}
	// existing target gained a lineage source
	if len(props[0].Sources) != 1 || props[0].Sources[0].SourceColumn != "AMT" {
		t.Fatalf("lineage append wrong: %+v", props[0].Sources)
	}

	if _, err := env.Engine.MapColumns(env.Ctx, s.ID, "orders", "tester", nil); err == nil {
		t.Fatalf("expected empty mappings error")
	}
}

func TestSourceTableDeduplication(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	_, _ = env.Engine.AddObject(env.Ctx, s.ID, "tester", engine.ObjectOptions{Name: "orders"})
	opts := engine.SourceTableOptions{Name: "ORDERS", QualifiedName: "db/RAW/ORDERS"}
	if _, err := env.Engine.AddSourceTable(env.Ctx, s.ID, "orders", "tester", opts); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.AddSourceTable(env.Ctx, s.ID, "orders", "tester", opts)
	if err == nil || err.Error() != "Source 'ORDERS' already added" {
		t.Fatalf("expected duplicate source error, got %v", err)
	}
}

func TestQualitySlaServerRoleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)

	qID, err := env.Engine.AddQualityCheck(env.Ctx, s.ID, "tester", domain.QualityCheck{Description: "no dupes"})
	if err != nil {
		t.Fatalf("quality add: %v", err)
	}
	sev := "high"
	if _, err := env.Engine.UpdateQualityCheck(env.Ctx, s.ID, qID, "tester", engine.QualityCheckUpdate{Severity: &sev}); err != nil {
		t.Fatalf("quality update: %v", err)
	}
	if _, err := env.Engine.DeleteQualityCheck(env.Ctx, s.ID, "nope", "tester"); err == nil {
		t.Fatalf("expected quality not found")
	}

	slaID, err := env.Engine.AddSLA(env.Ctx, s.ID, "tester", domain.SLAProperty{Property: "latency", Value: "4", Unit: "h"})
	if err != nil {
		t.Fatalf("sla add: %v", err)
	}
	if _, err := env.Engine.DeleteSLA(env.Ctx, s.ID, slaID, "tester"); err != nil {
		t.Fatalf("sla delete: %v", err)
	}

	srvID, err := env.Engine.AddServer(env.Ctx, s.ID, "tester", domain.Server{Account: "acme"})
	if err != nil {
		t.Fatalf("server add: %v", err)
	}
	got, _ := env.Engine.GetSession(env.Ctx, s.ID)
	if got.Contract.Servers[0].Type != "snowflake" || got.Contract.Servers[0].Environment != "prod" {
		t.Fatalf("server defaults wrong: %+v", got.Contract.Servers[0])
	}
	if _, err := env.Engine.DeleteServer(env.Ctx, s.ID, srvID, "tester"); err != nil {
		t.Fatalf("server delete: %v", err)
	}
	if _, err := env.Engine.AddServer(env.Ctx, s.ID, "tester", domain.Server{Type: "oracle"}); err == nil {
		t.Fatalf("expected server type error")
	}

	roleID, err := env.Engine.AddRole(env.Ctx, s.ID, "tester", domain.ContractRole{Role: "analyst"})
	if err != nil {
		t.Fatalf("role add: %v", err)
	}
	got, _ = env.Engine.GetSession(env.Ctx, s.ID)
	if got.Contract.Roles[0].Access != "read" {
		t.Fatalf("role default wrong: %+v", got.Contract.Roles[0])
	}
	if _, err := env.Engine.DeleteRole(env.Ctx, s.ID, roleID, "tester"); err != nil {
		t.Fatalf("role delete: %v", err)
	}
}

func TestContractYAML(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	fname, text, err := env.Engine.ContractYAML(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if fname != "customer_orders.odcs.yaml" {
		t.Fatalf("unexpected filename %q", fname)
	}
	if !strings.HasPrefix(text, "apiVersion: v3.1.0\n") {
		t.Fatalf("unexpected yaml head: %q", text[:40])
	}
	if !strings.Contains(text, "kind: DataContract") {
		t.Fatalf("missing kind")
	}
}

func TestDatasetLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ds, err := env.Engine.CreateDataset(env.Ctx, engine.DatasetCreateOptions{
		Name:        "country_codes",
		DisplayName: "Country Codes",
		Domain:      "Global",
		Columns: []domain.DatasetColumn{
			{Name: "iso_alpha3", DisplayName: "ISO Alpha-3", IsPrimaryKey: true},
			{Name: "label", IsNullable: true},
		},
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	if ds.Status != domain.StatusDraft || ds.Version != "1.0" {
		t.Fatalf("dataset defaults wrong: %+v", ds)
	}

	_, err = env.Engine.CreateDataset(env.Ctx, engine.DatasetCreateOptions{Name: "country_codes", ActorID: "tester"})
	if err == nil || err.Error() != "Dataset 'country_codes' already exists" {
		t.Fatalf("expected slug conflict, got %v", err)
	}
	if _, err := env.Engine.CreateDataset(env.Ctx, engine.DatasetCreateOptions{Name: "Bad Name", ActorID: "tester"}); err == nil {
		t.Fatalf("expected slug validation error")
	}

	row, err := env.Engine.AddRow(env.Ctx, ds.ID, "tester", map[string]string{"iso_alpha3": "FRA", "label": "France"})
	if err != nil {
		t.Fatalf("add row: %v", err)
	}
	if _, err := env.Engine.AddRow(env.Ctx, ds.ID, "tester", map[string]string{"bogus": "x"}); err == nil {
		t.Fatalf("expected unknown column error")
	}
	if _, err := env.Engine.AddRow(env.Ctx, ds.ID, "tester", map[string]string{"label": "no key"}); err == nil {
		t.Fatalf("expected required column error")
	}

	res, err := env.Engine.ImportRows(env.Ctx, ds.ID, "tester", []map[string]string{
		{"iso_alpha3": "DEU", "label": "Germany"},
		{"iso_alpha3": "ITA", "label": "Italy"},
	}, false)
	if err != nil || res.Imported != 2 {
		t.Fatalf("import: %+v %v", res, err)
	}
	rows, err := env.Engine.ListRows(env.Ctx, ds.ID, true)
	if err != nil || len(rows) != 3 {
		t.Fatalf("list rows: %v (%d)", err, len(rows))
	}

	res, err = env.Engine.ImportRows(env.Ctx, ds.ID, "tester", []map[string]string{
		{"iso_alpha3": "ESP"},
	}, true)
	if err != nil || res.Imported != 1 {
		t.Fatalf("replace import: %+v %v", res, err)
	}
	rows, _ = env.Engine.ListRows(env.Ctx, ds.ID, true)
	if len(rows) != 1 {
		t.Fatalf("replace_all should wipe rows, got %d", len(rows))
	}

	if err := env.Engine.DeleteRow(env.Ctx, ds.ID, row.ID, "tester"); err == nil {
		t.Fatalf("expected row gone after replace_all")
	}

	ds, err = env.Engine.PublishDataset(env.Ctx, ds.ID, "tester")
	if err != nil || ds.Status != domain.StatusActive {
		t.Fatalf("publish: %+v %v", ds, err)
	}
	ds, err = env.Engine.DeprecateDataset(env.Ctx, ds.ID, "tester")
	if err != nil || ds.Status != domain.StatusDeprecated {
		t.Fatalf("deprecate: %+v %v", ds, err)
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(t, env)
	_, _ = env.Engine.AddObject(env.Ctx, s.ID, "tester", engine.ObjectOptions{Name: "orders"})
	_, _ = env.Engine.AddProperty(env.Ctx, s.ID, "orders", "tester", engine.PropertyOptions{Name: "id"})
	_, _ = env.Engine.AddComment(env.Ctx, engine.CommentOptions{SessionID: s.ID, AuthorName: "Dana", Content: "hi", ActorID: "tester"})
	rows, err := env.Engine.DB.QueryContext(env.Ctx, `SELECT type FROM events WHERE session_id=?`, s.ID)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count < 4 {
		t.Fatalf("expected events for each change, got %d", count)
	}
}
