package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldflow/fieldflow/internal/domain"
)

// WorkOrderService orchestrates the work order lifecycle: guarded
// transitions, attachment intake, assignment, and KPI aggregation.
// It is stateless between calls; all durable state lives behind the
// repository port.
type WorkOrderService struct {
	repo      domain.WorkOrderRepository
	timeline  domain.TimelineRecorder
	directory domain.CandidateDirectory
	validator domain.TransitionValidator
	oracle    domain.AbilityOracle
	resolver  domain.TenantResolver
	flags     domain.FlagSource
	publisher domain.EventPublisher
	clock     func() time.Time
}

// Deps holds the adapters a WorkOrderService is built from.
type Deps struct {
	Repo      domain.WorkOrderRepository
	Timeline  domain.TimelineRecorder
	Directory domain.CandidateDirectory
	Validator domain.TransitionValidator
	Oracle    domain.AbilityOracle
	Resolver  domain.TenantResolver
	Flags     domain.FlagSource
	Publisher domain.EventPublisher
	Now       func() time.Time // defaults to time.Now
}

// NewWorkOrderService creates a service with the given adapters.
func NewWorkOrderService(d Deps) *WorkOrderService {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &WorkOrderService{
		repo:      d.Repo,
		timeline:  d.Timeline,
		directory: d.Directory,
		validator: d.Validator,
		oracle:    d.Oracle,
		resolver:  d.Resolver,
		flags:     d.Flags,
		publisher: d.Publisher,
		clock:     d.Now,
	}
}

func (s *WorkOrderService) now() time.Time {
	return s.clock().UTC()
}

// CreateParams are the intake fields for a new work order.
type CreateParams struct {
	Title          string
	Description    string
	Category       string
	Priority       domain.Priority
	RequiredSkills []string
	SLADueAt       *time.Time
}

// Create registers a newly reported work order and publishes a report
// event. Subsequent status changes go through Transition only.
func (s *WorkOrderService) Create(ctx context.Context, actor domain.Actor, p CreateParams) (domain.WorkOrder, error) {
	tc, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if !s.oracle.Can(ctx, actor, domain.ActionReport, domain.WorkOrder{TenantID: tc.TenantID}) {
		return domain.WorkOrder{}, &domain.ForbiddenError{Action: domain.ActionReport}
	}
	if p.Title == "" {
		return domain.WorkOrder{}, &domain.ValidationError{Required: "title", Message: "title is required"}
	}
	if tc.TenantID == "" {
		return domain.WorkOrder{}, &domain.ValidationError{Required: "tenant", Message: "a tenant is required to report a work order"}
	}

	wo := domain.NewWorkOrder(uuid.NewString(), tc.TenantID, p.Title)
	wo.Description = p.Description
	wo.Category = p.Category
	if p.Priority != "" {
		wo.Priority = p.Priority
	}
	wo.RequiredSkills = p.RequiredSkills
	wo.SLADueAt = p.SLADueAt

	if err := s.repo.Create(ctx, wo); err != nil {
		return domain.WorkOrder{}, fmt.Errorf("creating work order: %w", err)
	}
	if err := s.publisher.Publish(ctx, domain.ActionReport, wo); err != nil {
		return domain.WorkOrder{}, fmt.Errorf("publishing report event: %w", err)
	}
	return wo, nil
}

// GetByID returns a work order visible to the actor's tenant.
func (s *WorkOrderService) GetByID(ctx context.Context, actor domain.Actor, id string) (domain.WorkOrder, error) {
	tc, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	return s.repo.GetByID(ctx, tc, id)
}

// List returns work orders matching the filter, scoped to the actor's
// tenant.
func (s *WorkOrderService) List(ctx context.Context, actor domain.Actor, filter domain.ListFilter) ([]domain.WorkOrder, error) {
	tc, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, tc, filter)
}

// Timeline returns the audit trail of a work order, oldest first.
func (s *WorkOrderService) Timeline(ctx context.Context, actor domain.Actor, id string) ([]domain.TimelineEntry, error) {
	tc, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	// Visibility check; hidden orders read as not found.
	if _, err := s.repo.GetByID(ctx, tc, id); err != nil {
		return nil, err
	}
	return s.timeline.ListByWorkOrder(ctx, id)
}

// Transition applies a guarded state change to a work order.
//
// Order of checks: tenant visibility, ability (by the action bound to
// the requested edge), transition graph, transition guards. The write
// is a compare-and-swap on the version read here; a losing writer gets
// *ConflictError and may retry.
func (s *WorkOrderService) Transition(ctx context.Context, actor domain.Actor, id string, to domain.Status, note string) (domain.WorkOrder, error) {
	tc, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	wo, err := s.repo.GetByID(ctx, tc, id)
	if err != nil {
		return domain.WorkOrder{}, err
	}

	action, ok := domain.ActionFor(wo.Status, to)
	if !ok {
		return domain.WorkOrder{}, &domain.TransitionError{From: wo.Status, To: to}
	}
	if !s.oracle.Can(ctx, actor, action, wo) {
		return domain.WorkOrder{}, &domain.ForbiddenError{Action: action}
	}
	if _, err := s.validator.Apply(ctx, wo.Status, to); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := transitionGuards(wo, action, to); err != nil {
		return domain.WorkOrder{}, err
	}

	from := wo.Status
	expected := wo.Version
	now := s.now()

	wo.Status = to
	switch {
	case to == domain.StatusOnHold:
		wo.HeldFrom = from
	case action == domain.ActionResume:
		wo.HeldFrom = ""
	}
	if to == domain.StatusCompleted && wo.CompletedAt == nil {
		completed := now
		wo.CompletedAt = &completed
	}
	wo.UpdatedAt = now
	wo.Version = expected + 1

	if err := s.repo.Update(ctx, wo, expected); err != nil {
		return domain.WorkOrder{}, err
	}

	if err := s.recordAndPublish(ctx, actor, action, wo, from, to, note); err != nil {
		return domain.WorkOrder{}, err
	}
	return wo, nil
}

// transitionGuards evaluates the guards for an edge, first failure
// wins: media completeness, then assignment presence, then the
// resume-to-held-from rule. Terminal states are unreachable here
// because they have no outgoing edges.
func transitionGuards(wo domain.WorkOrder, action domain.Action, to domain.Status) error {
	switch action {
	case domain.ActionRequestEstimate:
		if !wo.HasAttachment(domain.AttachmentBefore) {
			return missingAttachment(domain.AttachmentBefore)
		}
	case domain.ActionCompleteWork:
		if !wo.HasAttachment(domain.AttachmentAfter) {
			return missingAttachment(domain.AttachmentAfter)
		}
	case domain.ActionStartWork:
		if wo.Assignment == nil {
			return &domain.ValidationError{
				Required: "assignment",
				Message:  "work order has no assignment; assign a technician or vendor before starting work",
			}
		}
	case domain.ActionResume:
		if to != wo.HeldFrom {
			return &domain.ValidationError{
				Required: "resume:" + string(wo.HeldFrom),
				Message:  fmt.Sprintf("work order was held from %q and must resume there", wo.HeldFrom),
			}
		}
	}
	return nil
}

func missingAttachment(c domain.AttachmentCategory) error {
	return &domain.ValidationError{
		Required: "attachment:" + domain.UpperCategory(c),
		Message:  "Missing required attachment category: " + domain.UpperCategory(c),
	}
}

// AddAttachment appends a media item to a work order. The list is
// append-only; duplicates are permitted.
func (s *WorkOrderService) AddAttachment(ctx context.Context, actor domain.Actor, id string, category domain.AttachmentCategory, url string) ([]domain.Attachment, error) {
	tc, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	wo, err := s.repo.GetByID(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	if !s.oracle.Can(ctx, actor, domain.ActionAttachMedia, wo) {
		return nil, &domain.ForbiddenError{Action: domain.ActionAttachMedia}
	}

	switch category {
	case domain.AttachmentBefore, domain.AttachmentAfter, domain.AttachmentOther:
	default:
		return nil, &domain.ValidationError{
			Required: "category",
			Message:  fmt.Sprintf("unknown attachment category %q", category),
		}
	}
	if url == "" {
		return nil, &domain.ValidationError{Required: "url", Message: "attachment url is required"}
	}

	att := domain.Attachment{Category: category, URL: url, UploadedAt: s.now()}
	if err := s.repo.AppendAttachment(ctx, wo.ID, att); err != nil {
		return nil, fmt.Errorf("appending attachment: %w", err)
	}
	return append(wo.Attachments, att), nil
}

// Assign manually dispatches a work order to a technician or vendor.
func (s *WorkOrderService) Assign(ctx context.Context, actor domain.Actor, id string, assigneeType domain.AssigneeType, assigneeID string) (domain.WorkOrder, error) {
	tc, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	wo, err := s.repo.GetByID(ctx, tc, id)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if !s.oracle.Can(ctx, actor, domain.ActionAssign, wo) {
		return domain.WorkOrder{}, &domain.ForbiddenError{Action: domain.ActionAssign}
	}
	if wo.Status.IsTerminal() {
		return domain.WorkOrder{}, &domain.ValidationError{
			Required: "status",
			Message:  fmt.Sprintf("work order is %s and can no longer be assigned", wo.Status),
		}
	}
	if assigneeID == "" {
		return domain.WorkOrder{}, &domain.ValidationError{Required: "assignee", Message: "assignee id is required"}
	}

	expected := wo.Version
	wo.Assignment = &domain.Assignment{AssigneeType: assigneeType, AssigneeID: assigneeID}
	wo.UpdatedAt = s.now()
	wo.Version = expected + 1

	if err := s.repo.Update(ctx, wo, expected); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := s.recordAndPublish(ctx, actor, domain.ActionAssign, wo, wo.Status, wo.Status, "assigned"); err != nil {
		return domain.WorkOrder{}, err
	}
	return wo, nil
}

// RegisterAssignee upserts a technician or vendor into the candidate
// directory the auto-assignment engine draws from.
func (s *WorkOrderService) RegisterAssignee(ctx context.Context, actor domain.Actor, c domain.AssignmentCandidate) (domain.AssignmentCandidate, error) {
	tc, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return domain.AssignmentCandidate{}, err
	}
	if !s.oracle.Can(ctx, actor, domain.ActionRegisterAssignee, domain.WorkOrder{TenantID: tc.TenantID}) {
		return domain.AssignmentCandidate{}, &domain.ForbiddenError{Action: domain.ActionRegisterAssignee}
	}
	if tc.TenantID == "" {
		return domain.AssignmentCandidate{}, &domain.ValidationError{Required: "tenant", Message: "a tenant is required to register an assignee"}
	}
	if c.Name == "" {
		return domain.AssignmentCandidate{}, &domain.ValidationError{Required: "name", Message: "assignee name is required"}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Availability == "" {
		c.Availability = domain.AvailabilityAvailable
	}
	if err := s.directory.Register(ctx, tc.TenantID, c); err != nil {
		return domain.AssignmentCandidate{}, fmt.Errorf("registering assignee: %w", err)
	}
	return c, nil
}

// recordAndPublish appends the timeline entry and emits the event for
// an accepted write. The state change is already durable at this point.
func (s *WorkOrderService) recordAndPublish(ctx context.Context, actor domain.Actor, action domain.Action, wo domain.WorkOrder, from, to domain.Status, note string) error {
	entry := domain.TimelineEntry{
		ID:          uuid.NewString(),
		WorkOrderID: wo.ID,
		FromStatus:  from,
		ToStatus:    to,
		ActorID:     actor.ID,
		Note:        note,
		OccurredAt:  s.now(),
	}
	if err := s.timeline.Append(ctx, entry); err != nil {
		return fmt.Errorf("recording timeline entry: %w", err)
	}
	if err := s.publisher.Publish(ctx, action, wo); err != nil {
		return fmt.Errorf("publishing %q event: %w", action, err)
	}
	return nil
}
