package domain

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a work order.
type Status string

const (
	StatusReported        Status = "reported"
	StatusAssessment      Status = "assessment"
	StatusEstimatePending Status = "estimate_pending"
	StatusApproved        Status = "approved"
	StatusInProgress      Status = "in_progress"
	StatusCompleted       Status = "completed"
	StatusOnHold          Status = "on_hold"
	StatusCancelled       Status = "cancelled"
)

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Action is the authorization-relevant label bound to a transition edge
// (or to a non-transition operation such as attach_media).
type Action string

const (
	ActionStartAssessment Action = "start_assessment"
	ActionRequestEstimate Action = "request_estimate"
	ActionApprove         Action = "approve"
	ActionStartWork       Action = "start_work"
	ActionCompleteWork    Action = "complete_work"
	ActionHold            Action = "hold"
	ActionResume          Action = "resume"
	ActionCancel          Action = "cancel"

	// Non-transition actions, still gated by the ability oracle.
	ActionReport           Action = "report"
	ActionAssign           Action = "assign"
	ActionAutoAssign       Action = "auto_assign"
	ActionAttachMedia      Action = "attach_media"
	ActionViewStats        Action = "view_stats"
	ActionRegisterAssignee Action = "register_assignee"
)

// Transition defines a valid state change: an action moves a work order
// from Src to Dst.
type Transition struct {
	Action Action
	Src    Status
	Dst    Status
}

// activeStatuses are the non-terminal, non-held states a work order can
// be paused or cancelled from.
var activeStatuses = []Status{
	StatusReported,
	StatusAssessment,
	StatusEstimatePending,
	StatusApproved,
	StatusInProgress,
}

// Transitions defines all valid state changes in the work order
// lifecycle. This is domain knowledge consumed by the FSM adapter.
// on_hold is reachable from every active state and resumes back to the
// state that was paused; cancelled is a terminal sink reachable from
// any non-terminal state.
var Transitions = buildTransitions()

func buildTransitions() []Transition {
	out := []Transition{
		{Action: ActionStartAssessment, Src: StatusReported, Dst: StatusAssessment},
		{Action: ActionRequestEstimate, Src: StatusAssessment, Dst: StatusEstimatePending},
		{Action: ActionApprove, Src: StatusEstimatePending, Dst: StatusApproved},
		{Action: ActionStartWork, Src: StatusApproved, Dst: StatusInProgress},
		{Action: ActionCompleteWork, Src: StatusInProgress, Dst: StatusCompleted},
	}
	for _, s := range activeStatuses {
		out = append(out, Transition{Action: ActionHold, Src: s, Dst: StatusOnHold})
		out = append(out, Transition{Action: ActionResume, Src: StatusOnHold, Dst: s})
		out = append(out, Transition{Action: ActionCancel, Src: s, Dst: StatusCancelled})
	}
	out = append(out, Transition{Action: ActionCancel, Src: StatusOnHold, Dst: StatusCancelled})
	return out
}

// FindTransition returns the edge from src to dst, if one exists.
func FindTransition(src, dst Status) (Transition, bool) {
	for _, t := range Transitions {
		if t.Src == src && t.Dst == dst {
			return t, true
		}
	}
	return Transition{}, false
}

// actionByDestination binds forward actions to their target state, used
// when no edge exists so the ability check still names the action the
// caller attempted.
var actionByDestination = map[Status]Action{
	StatusAssessment:      ActionStartAssessment,
	StatusEstimatePending: ActionRequestEstimate,
	StatusApproved:        ActionApprove,
	StatusInProgress:      ActionStartWork,
	StatusCompleted:       ActionCompleteWork,
	StatusOnHold:          ActionHold,
	StatusCancelled:       ActionCancel,
}

// ActionFor returns the action bound to the transition from src to dst.
// When the edge is not in the graph it falls back to the action implied
// by the destination, so authorization is decided before graph
// validation and a denied actor learns nothing about the current state.
func ActionFor(src, dst Status) (Action, bool) {
	if t, ok := FindTransition(src, dst); ok {
		return t.Action, true
	}
	if src == StatusOnHold {
		return ActionResume, true
	}
	a, ok := actionByDestination[dst]
	return a, ok
}

// AttachmentCategory classifies a media item on a work order.
type AttachmentCategory string

const (
	AttachmentBefore AttachmentCategory = "before"
	AttachmentAfter  AttachmentCategory = "after"
	AttachmentOther  AttachmentCategory = "other"
)

// Attachment is a media item recorded against a work order. The list is
// append-only; the engine never deletes entries.
type Attachment struct {
	Category   AttachmentCategory
	URL        string
	UploadedAt time.Time
}

// AssigneeType distinguishes in-house technicians from vendor partners.
type AssigneeType string

const (
	AssigneeUser   AssigneeType = "user"
	AssigneeVendor AssigneeType = "vendor"
)

// Assignment records who a work order is dispatched to.
type Assignment struct {
	AssigneeType AssigneeType
	AssigneeID   string
}

// Priority of a work order, from the intake form.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// WorkOrder is the aggregate root for a maintenance job. Status changes
// only through the lifecycle engine's guarded transition; Version backs
// the compare-and-swap on every write.
type WorkOrder struct {
	ID             string
	TenantID       string
	Title          string
	Description    string
	Category       string
	Priority       Priority
	Status         Status
	HeldFrom       Status // set while on hold; resume returns here
	RequiredSkills []string
	Attachments    []Attachment
	Assignment     *Assignment
	SLADueAt       *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
}

// NewWorkOrder creates a work order in the initial "reported" state.
func NewWorkOrder(id, tenantID, title string) WorkOrder {
	now := time.Now().UTC()
	return WorkOrder{
		ID:        id,
		TenantID:  tenantID,
		Title:     title,
		Priority:  PriorityMedium,
		Status:    StatusReported,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// HasAttachment reports whether at least one attachment of the given
// category has been recorded.
func (w WorkOrder) HasAttachment(category AttachmentCategory) bool {
	for _, a := range w.Attachments {
		if a.Category == category {
			return true
		}
	}
	return false
}

// UpperCategory is the wire form used in guard failure messages
// ("Missing required attachment category: BEFORE").
func UpperCategory(c AttachmentCategory) string {
	return strings.ToUpper(string(c))
}
