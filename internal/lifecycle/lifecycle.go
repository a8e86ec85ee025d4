// Package lifecycle implements the stage progression rules for contract
// sessions: one stage forward at a time, gate checks per stage, and the
// mapping from stage to ODCS contract status.
package lifecycle

import (
	"fmt"

	"pactline/internal/domain"
)

// StageOrder is the ordered list of non-terminal stages.
var StageOrder = []string{
	domain.StageRequest,
	domain.StageDiscovery,
	domain.StageSpecification,
	domain.StageReview,
	domain.StageApproval,
	domain.StageActive,
}

var stageToStatus = map[string]string{
	domain.StageRequest:       domain.StatusProposed,
	domain.StageDiscovery:     domain.StatusProposed,
	domain.StageSpecification: domain.StatusDraft,
	domain.StageReview:        domain.StatusDraft,
	domain.StageApproval:      domain.StatusDraft,
	domain.StageActive:        domain.StatusActive,
}

// IsStage reports whether s names a known lifecycle stage.
func IsStage(s string) bool {
	if s == domain.StageRejected {
		return true
	}
	return stageIndex(s) >= 0
}

// IsTerminal reports whether no further transitions are allowed from s.
func IsTerminal(s string) bool {
	return s == domain.StageActive || s == domain.StageRejected
}

// StatusForStage returns the ODCS contract status a contract should carry
// once its session enters the given stage. The second return is false for
// stages with no status mapping (rejected), in which case the status is
// left unchanged.
func StatusForStage(stage string) (string, bool) {
	st, ok := stageToStatus[stage]
	return st, ok
}

func stageIndex(s string) int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// ValidateTransition checks whether the session may move to the target
// stage. A nil return means the transition is allowed. Rejection is always
// allowed from any non-terminal stage; forward movement is one stage at a
// time and gated on per-stage entry criteria.
func ValidateTransition(s *domain.Session, target string) error {
	current := s.CurrentStage

	if IsTerminal(current) {
		return fmt.Errorf("Cannot transition from terminal stage '%s'", current)
	}

	if target == domain.StageRejected {
		return nil
	}

	curIdx := stageIndex(current)
	tgtIdx := stageIndex(target)
	if curIdx < 0 || tgtIdx < 0 {
		return fmt.Errorf("Invalid transition: %s -> %s", current, target)
	}

	if tgtIdx != curIdx+1 {
		return fmt.Errorf("Can only advance one stage at a time. Current: %s, requested: %s", current, target)
	}

	switch target {
	case domain.StageSpecification:
		if countStageComments(s, domain.StageDiscovery) == 0 {
			return fmt.Errorf("At least one discovery comment is required before moving to specification")
		}
	case domain.StageReview:
		if !hasTableWithColumns(&s.Contract) {
			return fmt.Errorf("At least one table with one or more columns is required before review")
		}
	case domain.StageApproval:
		if countStageComments(s, domain.StageReview) == 0 {
			return fmt.Errorf("At least one review comment is required before approval")
		}
	}

	return nil
}

func countStageComments(s *domain.Session, stage string) int {
	n := 0
	for _, c := range s.Comments {
		if c.Stage == stage {
			n++
		}
	}
	return n
}

func hasTableWithColumns(c *domain.Contract) bool {
	for _, obj := range c.SchemaObjects {
		if len(obj.Properties) > 0 {
			return true
		}
	}
	return false
}
