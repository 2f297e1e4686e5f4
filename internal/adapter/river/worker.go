package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// WorkOrderEventWorker processes work order event jobs from the River
// queue. For now it logs the event; future versions will dispatch to
// webhooks, SLA monitors, or notification systems.
type WorkOrderEventWorker struct {
	river.WorkerDefaults[WorkOrderEventJobArgs]
}

// Work processes a single work order event job.
func (w *WorkOrderEventWorker) Work(ctx context.Context, job *river.Job[WorkOrderEventJobArgs]) error {
	slog.InfoContext(ctx, "processing work order event",
		"action", job.Args.Action,
		"work_order_id", job.Args.WorkOrderID,
		"tenant_id", job.Args.TenantID,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
