package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/fieldflow/fieldflow/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// WorkOrderEventJobArgs carries the data needed to process a work order
// event asynchronously. River serializes this as JSON into its job queue
// table. It includes a snapshot of the work order at the time the event
// was published, so the worker never needs to query the database.
type WorkOrderEventJobArgs struct {
	Action      string `json:"action"`
	WorkOrderID string `json:"work_order_id"`
	TenantID    string `json:"tenant_id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	AssigneeID  string `json:"assignee_id,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (WorkOrderEventJobArgs) Kind() string { return "work_order.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a work order event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, action domain.Action, wo domain.WorkOrder) error {
	args := WorkOrderEventJobArgs{
		Action:      string(action),
		WorkOrderID: wo.ID,
		TenantID:    wo.TenantID,
		Title:       wo.Title,
		Status:      string(wo.Status),
		Priority:    string(wo.Priority),
	}
	if wo.Assignment != nil {
		args.AssigneeID = wo.Assignment.AssigneeID
	}

	_, err := p.client.Insert(ctx, args, nil)
	if err != nil {
		return fmt.Errorf("enqueuing work order event job: %w", err)
	}
	return nil
}
