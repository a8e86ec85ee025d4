package lifecycle_test

import (
	"testing"

	"pactline/internal/domain"
	"pactline/internal/lifecycle"
)

func sessionAt(stage string) *domain.Session {
	return &domain.Session{ID: "s-1", CurrentStage: stage}
}

func withComment(s *domain.Session, stage string) *domain.Session {
	s.Comments = append(s.Comments, domain.Comment{ID: "c", Content: "note", Stage: stage})
	return s
}

func withTable(s *domain.Session, cols int) *domain.Session {
	obj := domain.SchemaObject{Name: "orders"}
	for i := 0; i < cols; i++ {
		obj.Properties = append(obj.Properties, domain.Property{Name: "col", LogicalType: "string"})
	}
	s.Contract.SchemaObjects = append(s.Contract.SchemaObjects, obj)
	return s
}

func TestAdvanceOneStage(t *testing.T) {
	if err := lifecycle.ValidateTransition(sessionAt("request"), "discovery"); err != nil {
		t.Fatalf("request -> discovery: %v", err)
	}
	s := withComment(sessionAt("discovery"), "discovery")
	if err := lifecycle.ValidateTransition(s, "specification"); err != nil {
		t.Fatalf("discovery -> specification: %v", err)
	}
}

func TestSkipStageRejected(t *testing.T) {
	err := lifecycle.ValidateTransition(sessionAt("request"), "specification")
	if err == nil {
		t.Fatalf("expected skip error")
	}
	want := "Can only advance one stage at a time. Current: request, requested: specification"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestBackwardRejected(t *testing.T) {
	err := lifecycle.ValidateTransition(sessionAt("review"), "discovery")
	if err == nil {
		t.Fatalf("expected backward error")
	}
}

func TestSameStageRejected(t *testing.T) {
	if err := lifecycle.ValidateTransition(sessionAt("discovery"), "discovery"); err == nil {
		t.Fatalf("expected no-op transition error")
	}
}

func TestTerminalStages(t *testing.T) {
	for _, stage := range []string{"active", "rejected"} {
		err := lifecycle.ValidateTransition(sessionAt(stage), "rejected")
		if err == nil {
			t.Fatalf("expected terminal error from %s", stage)
		}
		want := "Cannot transition from terminal stage '" + stage + "'"
		if err.Error() != want {
			t.Fatalf("got %q, want %q", err.Error(), want)
		}
	}
}

func TestRejectFromAnyNonTerminal(t *testing.T) {
	for _, stage := range []string{"request", "discovery", "specification", "review", "approval"} {
		if err := lifecycle.ValidateTransition(sessionAt(stage), "rejected"); err != nil {
			t.Fatalf("reject from %s: %v", stage, err)
		}
	}
}

func TestRejectBypassesGates(t *testing.T) {
	// no discovery comments, no tables, reject still allowed
	if err := lifecycle.ValidateTransition(sessionAt("discovery"), "rejected"); err != nil {
		t.Fatalf("reject should skip gate checks: %v", err)
	}
}

func TestUnknownStage(t *testing.T) {
	err := lifecycle.ValidateTransition(sessionAt("request"), "archived")
	if err == nil {
		t.Fatalf("expected invalid stage error")
	}
	want := "Invalid transition: request -> archived"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestSpecificationGate(t *testing.T) {
	err := lifecycle.ValidateTransition(sessionAt("discovery"), "specification")
	if err == nil {
		t.Fatalf("expected discovery comment gate")
	}
	want := "At least one discovery comment is required before moving to specification"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
	// a comment from another stage does not satisfy the gate
	s := withComment(sessionAt("discovery"), "request")
	if err := lifecycle.ValidateTransition(s, "specification"); err == nil {
		t.Fatalf("request-stage comment should not open the gate")
	}
	s = withComment(sessionAt("discovery"), "discovery")
	if err := lifecycle.ValidateTransition(s, "specification"); err != nil {
		t.Fatalf("gate should open with discovery comment: %v", err)
	}
}

func TestReviewGate(t *testing.T) {
	err := lifecycle.ValidateTransition(sessionAt("specification"), "review")
	if err == nil {
		t.Fatalf("expected schema gate")
	}
	want := "At least one table with one or more columns is required before review"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
	// a table with zero columns does not count
	s := withTable(sessionAt("specification"), 0)
	if err := lifecycle.ValidateTransition(s, "review"); err == nil {
		t.Fatalf("empty table should not open the gate")
	}
	s = withTable(sessionAt("specification"), 1)
	if err := lifecycle.ValidateTransition(s, "review"); err != nil {
		t.Fatalf("gate should open with a populated table: %v", err)
	}
}

func TestApprovalGate(t *testing.T) {
	err := lifecycle.ValidateTransition(sessionAt("review"), "approval")
	if err == nil {
		t.Fatalf("expected review comment gate")
	}
	want := "At least one review comment is required before approval"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
	s := withComment(sessionAt("review"), "review")
	if err := lifecycle.ValidateTransition(s, "approval"); err != nil {
		t.Fatalf("gate should open with review comment: %v", err)
	}
}

func TestActivationHasNoGate(t *testing.T) {
	if err := lifecycle.ValidateTransition(sessionAt("approval"), "active"); err != nil {
		t.Fatalf("approval -> active: %v", err)
	}
}

func TestStatusForStage(t *testing.T) {
	cases := map[string]string{
		"request":       "proposed",
		"discovery":     "proposed",
		"specification": "draft",
		"review":        "draft",
		"approval":      "draft",
		"active":        "active",
	}
	for stage, want := range cases {
		got, ok := lifecycle.StatusForStage(stage)
		if !ok || got != want {
			t.Fatalf("status for %s: got %q ok=%v, want %q", stage, got, ok, want)
		}
	}
	if _, ok := lifecycle.StatusForStage("rejected"); ok {
		t.Fatalf("rejected should have no status mapping")
	}
}

func TestIsStage(t *testing.T) {
	for _, s := range []string{"request", "active", "rejected"} {
		if !lifecycle.IsStage(s) {
			t.Fatalf("expected %s to be a stage", s)
		}
	}
	if lifecycle.IsStage("archived") {
		t.Fatalf("archived is not a stage")
	}
}
