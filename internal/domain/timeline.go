package domain

import "time"

// TimelineEntry is an immutable audit record of an accepted transition
// or assignment. Entries are only ever appended, never mutated or
// deleted.
type TimelineEntry struct {
	ID          string
	WorkOrderID string
	FromStatus  Status
	ToStatus    Status
	ActorID     string
	Note        string
	OccurredAt  time.Time
}
