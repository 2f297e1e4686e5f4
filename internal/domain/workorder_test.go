package domain_test

import (
	"testing"

	"github.com/fieldflow/fieldflow/internal/domain"
)

func TestNewWorkOrder_InitialState(t *testing.T) {
	wo := domain.NewWorkOrder("wo-1", "t-1", "Leaking faucet")

	if wo.Status != domain.StatusReported {
		t.Errorf("Status = %q, want %q", wo.Status, domain.StatusReported)
	}
	if wo.Priority != domain.PriorityMedium {
		t.Errorf("Priority = %q, want %q", wo.Priority, domain.PriorityMedium)
	}
	if wo.Version != 1 {
		t.Errorf("Version = %d, want 1", wo.Version)
	}
	if wo.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
	if wo.CompletedAt != nil {
		t.Error("CompletedAt should be nil on a new work order")
	}
}

func TestTransitions_NoEdgesOutOfTerminalStates(t *testing.T) {
	for _, tr := range domain.Transitions {
		if tr.Src.IsTerminal() {
			t.Errorf("transition %q leaves terminal state %q", tr.Action, tr.Src)
		}
	}
}

func TestTransitions_OnHoldReachableFromEveryActiveState(t *testing.T) {
	active := []domain.Status{
		domain.StatusReported,
		domain.StatusAssessment,
		domain.StatusEstimatePending,
		domain.StatusApproved,
		domain.StatusInProgress,
	}

	for _, s := range active {
		if _, ok := domain.FindTransition(s, domain.StatusOnHold); !ok {
			t.Errorf("no hold edge from %q", s)
		}
		if _, ok := domain.FindTransition(domain.StatusOnHold, s); !ok {
			t.Errorf("no resume edge back to %q", s)
		}
		if _, ok := domain.FindTransition(s, domain.StatusCancelled); !ok {
			t.Errorf("no cancel edge from %q", s)
		}
	}
}

func TestFindTransition_UnknownEdge(t *testing.T) {
	if _, ok := domain.FindTransition(domain.StatusReported, domain.StatusCompleted); ok {
		t.Error("reported → completed should not be a valid edge")
	}
	if _, ok := domain.FindTransition(domain.StatusCompleted, domain.StatusReported); ok {
		t.Error("completed is terminal; no outgoing edges")
	}
}

func TestActionFor_EdgeActions(t *testing.T) {
	cases := []struct {
		src, dst domain.Status
		want     domain.Action
	}{
		{domain.StatusReported, domain.StatusAssessment, domain.ActionStartAssessment},
		{domain.StatusAssessment, domain.StatusEstimatePending, domain.ActionRequestEstimate},
		{domain.StatusEstimatePending, domain.StatusApproved, domain.ActionApprove},
		{domain.StatusApproved, domain.StatusInProgress, domain.ActionStartWork},
		{domain.StatusInProgress, domain.StatusCompleted, domain.ActionCompleteWork},
		{domain.StatusApproved, domain.StatusOnHold, domain.ActionHold},
		{domain.StatusOnHold, domain.StatusApproved, domain.ActionResume},
		{domain.StatusAssessment, domain.StatusCancelled, domain.ActionCancel},
	}

	for _, c := range cases {
		got, ok := domain.ActionFor(c.src, c.dst)
		if !ok {
			t.Errorf("ActionFor(%q, %q) not found", c.src, c.dst)
			continue
		}
		if got != c.want {
			t.Errorf("ActionFor(%q, %q) = %q, want %q", c.src, c.dst, got, c.want)
		}
	}
}

func TestActionFor_OutOfGraphStillNamesAction(t *testing.T) {
	// reported → in_progress is not an edge, but the attempted action is
	// still start_work so authorization can be checked first.
	got, ok := domain.ActionFor(domain.StatusReported, domain.StatusInProgress)
	if !ok {
		t.Fatal("expected an action for destination in_progress")
	}
	if got != domain.ActionStartWork {
		t.Errorf("action = %q, want %q", got, domain.ActionStartWork)
	}
}

func TestHasAttachment(t *testing.T) {
	wo := domain.NewWorkOrder("wo-1", "t-1", "X")
	if wo.HasAttachment(domain.AttachmentBefore) {
		t.Error("new work order should have no attachments")
	}

	wo.Attachments = append(wo.Attachments, domain.Attachment{
		Category: domain.AttachmentBefore,
		URL:      "https://cdn.example/1.jpg",
	})
	if !wo.HasAttachment(domain.AttachmentBefore) {
		t.Error("expected a before attachment")
	}
	if wo.HasAttachment(domain.AttachmentAfter) {
		t.Error("did not expect an after attachment")
	}
}

func TestCandidate_SkillOverlap(t *testing.T) {
	c := domain.AssignmentCandidate{
		ID:     "tech-1",
		Skills: []string{"plumbing", "electrical"},
	}

	if got := c.MatchedSkills([]string{"plumbing", "hvac"}); got != 1 {
		t.Errorf("MatchedSkills = %d, want 1", got)
	}
	if !c.HasSkillOverlap([]string{"electrical"}) {
		t.Error("expected overlap on electrical")
	}
	if c.HasSkillOverlap([]string{"hvac"}) {
		t.Error("did not expect overlap on hvac")
	}
	if !c.HasSkillOverlap(nil) {
		t.Error("empty requirement list should match everyone")
	}
}
