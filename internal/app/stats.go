package app

import (
	"context"
	"time"

	"github.com/fieldflow/fieldflow/internal/domain"
)

// Stats computes the dashboard KPIs for the actor's tenant: counts by
// status, overdue count, mean completion time, and SLA compliance.
// Read-only; the optional filter restricts the window by creation time.
func (s *WorkOrderService) Stats(ctx context.Context, actor domain.Actor, filter domain.ListFilter) (domain.WorkOrderStats, error) {
	tc, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return domain.WorkOrderStats{}, err
	}
	if !s.oracle.Can(ctx, actor, domain.ActionViewStats, domain.WorkOrder{TenantID: tc.TenantID}) {
		return domain.WorkOrderStats{}, &domain.ForbiddenError{Action: domain.ActionViewStats}
	}

	orders, err := s.repo.List(ctx, tc, filter)
	if err != nil {
		return domain.WorkOrderStats{}, err
	}
	return aggregate(orders, s.now()), nil
}

func aggregate(orders []domain.WorkOrder, now time.Time) domain.WorkOrderStats {
	stats := domain.WorkOrderStats{
		StatusCounts: make(map[domain.Status]int),
	}

	var (
		completed  int
		totalTime  time.Duration
		slaDefined int
		slaMet     int
	)

	for _, wo := range orders {
		stats.Total++
		stats.StatusCounts[wo.Status]++

		if wo.SLADueAt != nil && wo.SLADueAt.Before(now) && !wo.Status.IsTerminal() {
			stats.OverdueCount++
		}

		if wo.Status == domain.StatusCompleted && wo.CompletedAt != nil {
			completed++
			totalTime += wo.CompletedAt.Sub(wo.CreatedAt)
			if wo.SLADueAt != nil {
				slaDefined++
				if !wo.CompletedAt.After(*wo.SLADueAt) {
					slaMet++
				}
			}
		}
	}

	// Zero denominators leave the metric nil rather than reporting 0,
	// which would read as "instant completion" / "no compliance".
	if completed > 0 {
		avg := totalTime / time.Duration(completed)
		stats.AvgCompletionTime = &avg
	}
	if slaDefined > 0 {
		rate := float64(slaMet) / float64(slaDefined)
		stats.SLAComplianceRate = &rate
	}
	return stats
}
