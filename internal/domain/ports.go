package domain

import (
	"context"
	"time"
)

// WorkOrderRepository defines the persistence contract for work orders.
// Update is a compare-and-swap keyed on the version last read by the
// caller; a version mismatch surfaces as *ConflictError.
type WorkOrderRepository interface {
	Create(ctx context.Context, wo WorkOrder) error
	GetByID(ctx context.Context, tc TenantContext, id string) (WorkOrder, error)
	List(ctx context.Context, tc TenantContext, filter ListFilter) ([]WorkOrder, error)
	Update(ctx context.Context, wo WorkOrder, expectedVersion int64) error
	AppendAttachment(ctx context.Context, workOrderID string, att Attachment) error
}

// ListFilter holds optional criteria for listing work orders.
type ListFilter struct {
	Status      *Status
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TimelineRecorder is the append-only audit log of accepted transitions.
type TimelineRecorder interface {
	Append(ctx context.Context, entry TimelineEntry) error
	ListByWorkOrder(ctx context.Context, workOrderID string) ([]TimelineEntry, error)
}

// CandidateDirectory is the registry of technicians and vendors the
// auto-assignment engine draws from. ListEligible excludes offline
// candidates and those with no skill overlap.
type CandidateDirectory interface {
	ListEligible(ctx context.Context, tenantID string, requiredSkills []string) ([]AssignmentCandidate, error)
	Register(ctx context.Context, tenantID string, c AssignmentCandidate) error
}

// TransitionValidator checks a requested edge against the transition
// graph and returns the action bound to it.
type TransitionValidator interface {
	Apply(ctx context.Context, current, to Status) (Action, error)
}

// AbilityOracle answers "can this actor perform this action on this
// work order", including business-rule denials such as a technician who
// is not the assignee attempting start_work.
type AbilityOracle interface {
	Can(ctx context.Context, actor Actor, action Action, wo WorkOrder) bool
}

// TenantResolver derives the acting tenant from the authenticated
// actor. Platform administrators resolve to a cross-tenant context.
type TenantResolver interface {
	Resolve(ctx context.Context, actor Actor) (TenantContext, error)
}

// FlagSource answers feature-flag lookups, consulted once per call.
type FlagSource interface {
	IsEnabled(name string) bool
}

// EventPublisher defines the contract for emitting work order events.
type EventPublisher interface {
	Publish(ctx context.Context, action Action, wo WorkOrder) error
}
