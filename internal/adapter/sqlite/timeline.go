package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldflow/fieldflow/internal/domain"
)

// TimelineStore implements domain.TimelineRecorder on the shared
// SQLite database. Entries are append-only; there is no update path.
type TimelineStore struct {
	db *sql.DB
}

// NewTimelineStore wraps the database connection owned by the work
// order repository.
func NewTimelineStore(db *sql.DB) *TimelineStore {
	return &TimelineStore{db: db}
}

func (s *TimelineStore) Append(ctx context.Context, entry domain.TimelineEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO work_order_timeline (id, work_order_id, from_status, to_status, actor_id, note, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.WorkOrderID, string(entry.FromStatus), string(entry.ToStatus),
		entry.ActorID, entry.Note, entry.OccurredAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting timeline entry: %w", err)
	}
	return nil
}

// ListByWorkOrder returns entries in the order they occurred. The
// rowid tiebreaker keeps entries written within the same second in
// insertion order.
func (s *TimelineStore) ListByWorkOrder(ctx context.Context, workOrderID string) ([]domain.TimelineEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, work_order_id, from_status, to_status, actor_id, note, occurred_at
		 FROM work_order_timeline WHERE work_order_id = ?
		 ORDER BY occurred_at, rowid`, workOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing timeline: %w", err)
	}
	defer rows.Close()

	var entries []domain.TimelineEntry
	for rows.Next() {
		var e domain.TimelineEntry
		var fromStatus, toStatus, occurredAt string
		if err := rows.Scan(&e.ID, &e.WorkOrderID, &fromStatus, &toStatus, &e.ActorID, &e.Note, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning timeline entry: %w", err)
		}
		e.FromStatus = domain.Status(fromStatus)
		e.ToStatus = domain.Status(toStatus)
		e.OccurredAt, _ = time.Parse(timeFormat, occurredAt)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
