package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/fieldflow/fieldflow/internal/domain"
)

// FlagAutoAssign gates the auto-assignment engine. When the flag is off
// the engine short-circuits before touching the candidate directory so
// callers can fall back to manual assignment cheaply.
const FlagAutoAssign = "work_order_auto_assign"

// RoutingMode is the strategy the auto-assignment engine resolved for a
// call. Modeled as a variant so future strategies (e.g. learned
// routing) are additive.
type RoutingMode string

const (
	RoutingDisabled  RoutingMode = "disabled"
	RoutingHeuristic RoutingMode = "heuristic"
)

// AutoAssignResult is the outcome of an auto-assignment attempt.
// "Disabled" and "no eligible candidates" are expected business
// outcomes, not errors: Success is false and Error carries the reason.
type AutoAssignResult struct {
	Success     bool
	Error       string
	Assignee    *domain.AssignmentCandidate
	RoutingMode RoutingMode
}

// Scoring weights for the heuristic router. Skill coverage dominates,
// then availability, spare capacity, and external rating. They sum to
// 1.0 so scores stay comparable if a term is ever re-weighted.
const (
	weightSkillMatch   = 0.40
	weightAvailability = 0.25
	weightCapacity     = 0.20
	weightRating       = 0.15
)

// availabilityBonus per state; offline candidates never reach scoring.
const (
	bonusAvailable = 1.0
	bonusBusy      = 0.3
)

const maxRating = 5.0

// AutoAssign scores the eligible candidate pool for a work order and
// commits the winner into its assignment.
func (s *WorkOrderService) AutoAssign(ctx context.Context, actor domain.Actor, id string) (AutoAssignResult, error) {
	tc, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return AutoAssignResult{}, err
	}
	wo, err := s.repo.GetByID(ctx, tc, id)
	if err != nil {
		return AutoAssignResult{}, err
	}
	if !s.oracle.Can(ctx, actor, domain.ActionAutoAssign, wo) {
		return AutoAssignResult{}, &domain.ForbiddenError{Action: domain.ActionAutoAssign}
	}

	mode := RoutingHeuristic
	if !s.flags.IsEnabled(FlagAutoAssign) {
		mode = RoutingDisabled
	}
	if mode == RoutingDisabled {
		return AutoAssignResult{
			Success:     false,
			Error:       "Auto-assignment is disabled",
			RoutingMode: RoutingDisabled,
		}, nil
	}

	if wo.Status.IsTerminal() {
		return AutoAssignResult{}, &domain.ValidationError{
			Required: "status",
			Message:  fmt.Sprintf("work order is %s and can no longer be assigned", wo.Status),
		}
	}

	pool, err := s.directory.ListEligible(ctx, wo.TenantID, wo.RequiredSkills)
	if err != nil {
		return AutoAssignResult{}, fmt.Errorf("listing candidates: %w", err)
	}

	ranked := rankCandidates(pool, wo.RequiredSkills)
	if len(ranked) == 0 {
		return AutoAssignResult{
			Success:     false,
			Error:       "No eligible candidates",
			RoutingMode: RoutingHeuristic,
		}, nil
	}
	winner := ranked[0]

	expected := wo.Version
	wo.Assignment = &domain.Assignment{AssigneeType: winner.Type, AssigneeID: winner.ID}
	wo.UpdatedAt = s.now()
	wo.Version = expected + 1

	if err := s.repo.Update(ctx, wo, expected); err != nil {
		return AutoAssignResult{}, err
	}
	if err := s.recordAndPublish(ctx, actor, domain.ActionAutoAssign, wo, wo.Status, wo.Status, "auto-assigned"); err != nil {
		return AutoAssignResult{}, err
	}

	return AutoAssignResult{
		Success:     true,
		Assignee:    &winner,
		RoutingMode: RoutingHeuristic,
	}, nil
}

// rankCandidates scores the pool and orders it best-first. Offline
// candidates and candidates without skill overlap are dropped even if
// the directory returned them. Ties break on lower current workload,
// then lexicographically smaller id, so ranking is deterministic.
func rankCandidates(pool []domain.AssignmentCandidate, required []string) []domain.AssignmentCandidate {
	ranked := make([]domain.AssignmentCandidate, 0, len(pool))
	for _, c := range pool {
		if c.Availability == domain.AvailabilityOffline {
			continue
		}
		if !c.HasSkillOverlap(required) {
			continue
		}
		ranked = append(ranked, score(c, required))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.CurrentWorkload != b.CurrentWorkload {
			return a.CurrentWorkload < b.CurrentWorkload
		}
		return a.ID < b.ID
	})
	return ranked
}

// score computes the weighted heuristic score for one candidate and
// fills Reasons with the terms that contributed, for operator
// explainability only.
func score(c domain.AssignmentCandidate, required []string) domain.AssignmentCandidate {
	skillRatio := 1.0
	if len(required) > 0 {
		matched := c.MatchedSkills(required)
		skillRatio = float64(matched) / float64(len(required))
		c.Reasons = append(c.Reasons, fmt.Sprintf("Skill match: %d/%d", matched, len(required)))
	}

	availability := bonusBusy
	if c.Availability == domain.AvailabilityAvailable {
		availability = bonusAvailable
		c.Reasons = append(c.Reasons, "Available")
	} else {
		c.Reasons = append(c.Reasons, "Busy")
	}

	spare := 0.0
	if c.MaxWorkload > 0 {
		spare = 1.0 - float64(c.CurrentWorkload)/float64(c.MaxWorkload)
		if spare < 0 {
			spare = 0
		}
		if spare > 1 {
			spare = 1
		}
		c.Reasons = append(c.Reasons, fmt.Sprintf("Spare capacity: %d%%", int(spare*100)))
	}

	rating := 0.0
	if c.Rating > 0 {
		rating = c.Rating / maxRating
		c.Reasons = append(c.Reasons, fmt.Sprintf("Rating: %.1f/%.0f", c.Rating, maxRating))
	}

	c.Score = weightSkillMatch*skillRatio +
		weightAvailability*availability +
		weightCapacity*spare +
		weightRating*rating
	return c
}
