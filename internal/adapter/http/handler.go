package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fieldflow/fieldflow/internal/app"
	"github.com/fieldflow/fieldflow/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// ActorParams identifies the caller. Authentication happens upstream
// (gateway or reverse proxy); these headers carry the verified identity.
type ActorParams struct {
	ActorID   string `header:"X-Actor-Id" doc:"Authenticated actor ID"`
	ActorRole string `header:"X-Actor-Role" doc:"Actor role" enum:"platform_admin,admin,manager,technician,vendor,requester"`
	TenantID  string `header:"X-Tenant-Id" required:"false" doc:"Acting tenant; optional for platform admins"`
}

func (p ActorParams) actor() domain.Actor {
	return domain.Actor{
		ID:       p.ActorID,
		Role:     domain.Role(p.ActorRole),
		TenantID: p.TenantID,
	}
}

// WorkOrderResponse is the API representation of a work order.
type WorkOrderResponse struct {
	ID             string               `json:"id" doc:"Unique identifier"`
	TenantID       string               `json:"tenant_id" doc:"Owning tenant"`
	Title          string               `json:"title" doc:"Short summary"`
	Description    string               `json:"description,omitempty" doc:"Free-form details"`
	Category       string               `json:"category,omitempty" doc:"Maintenance category"`
	Priority       string               `json:"priority" doc:"Priority level"`
	Status         string               `json:"status" doc:"Lifecycle state"`
	HeldFrom       string               `json:"held_from,omitempty" doc:"State the order was paused from, while on hold"`
	RequiredSkills []string             `json:"required_skills,omitempty" doc:"Skills needed to execute"`
	Attachments    []AttachmentResponse `json:"attachments,omitempty" doc:"Recorded media"`
	Assignment     *AssignmentResponse  `json:"assignment,omitempty" doc:"Current assignee, if dispatched"`
	SLADueAt       string               `json:"sla_due_at,omitempty" doc:"SLA deadline (ISO 8601)"`
	CompletedAt    string               `json:"completed_at,omitempty" doc:"Completion timestamp (ISO 8601)"`
	CreatedAt      string               `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt      string               `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
	Version        int64                `json:"version" doc:"Optimistic concurrency version"`
}

// AttachmentResponse is the API representation of a media item.
type AttachmentResponse struct {
	Category   string `json:"category" doc:"Attachment category"`
	URL        string `json:"url" doc:"Media location"`
	UploadedAt string `json:"uploaded_at" doc:"Upload timestamp (ISO 8601)"`
}

// AssignmentResponse is the API representation of an assignment.
type AssignmentResponse struct {
	AssigneeType string `json:"assignee_type" doc:"user or vendor"`
	AssigneeID   string `json:"assignee_id" doc:"Assignee identifier"`
}

func toWorkOrderResponse(wo domain.WorkOrder) WorkOrderResponse {
	resp := WorkOrderResponse{
		ID:             wo.ID,
		TenantID:       wo.TenantID,
		Title:          wo.Title,
		Description:    wo.Description,
		Category:       wo.Category,
		Priority:       string(wo.Priority),
		Status:         string(wo.Status),
		HeldFrom:       string(wo.HeldFrom),
		RequiredSkills: wo.RequiredSkills,
		CreatedAt:      wo.CreatedAt.Format(timeFormat),
		UpdatedAt:      wo.UpdatedAt.Format(timeFormat),
		Version:        wo.Version,
	}
	for _, att := range wo.Attachments {
		resp.Attachments = append(resp.Attachments, toAttachmentResponse(att))
	}
	if wo.Assignment != nil {
		resp.Assignment = &AssignmentResponse{
			AssigneeType: string(wo.Assignment.AssigneeType),
			AssigneeID:   wo.Assignment.AssigneeID,
		}
	}
	if wo.SLADueAt != nil {
		resp.SLADueAt = wo.SLADueAt.Format(timeFormat)
	}
	if wo.CompletedAt != nil {
		resp.CompletedAt = wo.CompletedAt.Format(timeFormat)
	}
	return resp
}

func toAttachmentResponse(att domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		Category:   string(att.Category),
		URL:        att.URL,
		UploadedAt: att.UploadedAt.Format(timeFormat),
	}
}

// --- Create work order ---

type CreateWorkOrderInput struct {
	ActorParams
	Body struct {
		Title          string   `json:"title" minLength:"1" maxLength:"255" doc:"Short summary"`
		Description    string   `json:"description,omitempty" doc:"Free-form details"`
		Category       string   `json:"category,omitempty" doc:"Maintenance category"`
		Priority       string   `json:"priority,omitempty" required:"false" enum:"low,medium,high,urgent" doc:"Priority level (default medium)"`
		RequiredSkills []string `json:"required_skills,omitempty" doc:"Skills needed to execute"`
		SLADueAt       string   `json:"sla_due_at,omitempty" doc:"SLA deadline (ISO 8601)"`
	}
}

type CreateWorkOrderOutput struct {
	Status int
	Body   WorkOrderResponse
}

// --- Get work order ---

type GetWorkOrderInput struct {
	ActorParams
	ID string `path:"id" doc:"Work order ID"`
}

type GetWorkOrderOutput struct {
	Body WorkOrderResponse
}

// --- List work orders ---

type ListWorkOrdersInput struct {
	ActorParams
	Status string `query:"status" required:"false" doc:"Filter by status"`
	From   string `query:"created_from" required:"false" doc:"Creation window start (ISO 8601)"`
	To     string `query:"created_to" required:"false" doc:"Creation window end (ISO 8601)"`
	Limit  int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListWorkOrdersOutput struct {
	Body []WorkOrderResponse
}

// --- Transition ---

type TransitionInput struct {
	ActorParams
	ID   string `path:"id" doc:"Work order ID"`
	Body struct {
		To   string `json:"to" doc:"Target lifecycle state" enum:"reported,assessment,estimate_pending,approved,in_progress,completed,on_hold,cancelled"`
		Note string `json:"note,omitempty" doc:"Optional note for the timeline"`
	}
}

type TransitionOutput struct {
	Body WorkOrderResponse
}

// --- Assign ---

type AssignInput struct {
	ActorParams
	ID   string `path:"id" doc:"Work order ID"`
	Body struct {
		AssigneeType string `json:"assignee_type" enum:"user,vendor" doc:"user or vendor"`
		AssigneeID   string `json:"assignee_id" minLength:"1" doc:"Assignee identifier"`
	}
}

type AssignOutput struct {
	Body WorkOrderResponse
}

// --- Auto-assign ---

type AutoAssignInput struct {
	ActorParams
	ID string `path:"id" doc:"Work order ID"`
}

// CandidateResponse is the API representation of a scored candidate.
type CandidateResponse struct {
	ID      string   `json:"id" doc:"Candidate identifier"`
	Type    string   `json:"type" doc:"user or vendor"`
	Name    string   `json:"name,omitempty" doc:"Display name"`
	Score   float64  `json:"score" doc:"Heuristic score"`
	Reasons []string `json:"reasons,omitempty" doc:"Scoring terms that contributed"`
}

type AutoAssignOutput struct {
	Body struct {
		Success     bool               `json:"success" doc:"Whether an assignee was committed"`
		Error       string             `json:"error,omitempty" doc:"Reason when no assignee was committed"`
		Assignee    *CandidateResponse `json:"assignee,omitempty" doc:"The winning candidate"`
		RoutingMode string             `json:"routing_mode,omitempty" doc:"Strategy used"`
	}
}

// --- Attachments ---

type AddAttachmentInput struct {
	ActorParams
	ID   string `path:"id" doc:"Work order ID"`
	Body struct {
		Category string `json:"category" enum:"before,after,other" doc:"Attachment category"`
		URL      string `json:"url" minLength:"1" doc:"Media location"`
	}
}

type AddAttachmentOutput struct {
	Status int
	Body   struct {
		Attachments []AttachmentResponse `json:"attachments" doc:"All recorded media, oldest first"`
	}
}

// --- Timeline ---

type TimelineInput struct {
	ActorParams
	ID string `path:"id" doc:"Work order ID"`
}

// TimelineEntryResponse is the API representation of an audit record.
type TimelineEntryResponse struct {
	ID         string `json:"id" doc:"Entry identifier"`
	FromStatus string `json:"from_status" doc:"State before"`
	ToStatus   string `json:"to_status" doc:"State after"`
	ActorID    string `json:"actor_id" doc:"Who performed the change"`
	Note       string `json:"note,omitempty" doc:"Optional note"`
	OccurredAt string `json:"occurred_at" doc:"When the change happened (ISO 8601)"`
}

type TimelineOutput struct {
	Body []TimelineEntryResponse
}

// --- Stats ---

type StatsInput struct {
	ActorParams
	From string `query:"created_from" required:"false" doc:"Window start (ISO 8601)"`
	To   string `query:"created_to" required:"false" doc:"Window end (ISO 8601)"`
}

type StatsOutput struct {
	Body struct {
		Total             int            `json:"total" doc:"Work orders in scope"`
		StatusCounts      map[string]int `json:"status_counts" doc:"Count per lifecycle state"`
		OverdueCount      int            `json:"overdue_count" doc:"Open orders past their SLA"`
		AvgCompletionTime string         `json:"avg_completion_time,omitempty" doc:"Mean creation-to-completion, Go duration format"`
		SLAComplianceRate *float64       `json:"sla_compliance_rate,omitempty" doc:"Fraction of SLA-bearing completions that met the deadline"`
	}
}

// --- Register assignee ---

type RegisterAssigneeInput struct {
	ActorParams
	Body struct {
		ID           string   `json:"id,omitempty" doc:"Assignee identifier (generated when empty)"`
		Type         string   `json:"type" enum:"user,vendor" doc:"user or vendor"`
		Name         string   `json:"name" minLength:"1" doc:"Display name"`
		Skills       []string `json:"skills,omitempty" doc:"Skills the assignee covers"`
		Availability string   `json:"availability,omitempty" required:"false" enum:"available,busy,offline" doc:"Current availability (default available)"`
		MaxWorkload  int      `json:"max_workload,omitempty" doc:"Concurrent order capacity"`
		Rating       float64  `json:"rating,omitempty" minimum:"0" maximum:"5" doc:"External rating, 0-5"`
	}
}

type RegisterAssigneeOutput struct {
	Status int
	Body   struct {
		ID           string `json:"id" doc:"Assignee identifier"`
		Type         string `json:"type" doc:"user or vendor"`
		Name         string `json:"name" doc:"Display name"`
		Availability string `json:"availability" doc:"Current availability"`
	}
}

// Register adds all work order API routes to the Huma API.
func Register(api huma.API, svc *app.WorkOrderService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-work-order",
		Method:        http.MethodPost,
		Path:          "/api/v1/work-orders",
		Summary:       "Report a new work order",
		Tags:          []string{"WorkOrders"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateWorkOrderInput) (*CreateWorkOrderOutput, error) {
		params := app.CreateParams{
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Category:       input.Body.Category,
			Priority:       domain.Priority(input.Body.Priority),
			RequiredSkills: input.Body.RequiredSkills,
		}
		if input.Body.SLADueAt != "" {
			due, err := time.Parse(time.RFC3339, input.Body.SLADueAt)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity("invalid sla_due_at timestamp")
			}
			params.SLADueAt = &due
		}

		wo, err := svc.Create(ctx, input.actor(), params)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateWorkOrderOutput{Status: http.StatusCreated, Body: toWorkOrderResponse(wo)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-work-order-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/work-orders/stats",
		Summary:     "Work order KPI statistics",
		Tags:        []string{"WorkOrders"},
	}, func(ctx context.Context, input *StatsInput) (*StatsOutput, error) {
		filter, err := windowFilter(input.From, input.To)
		if err != nil {
			return nil, err
		}

		stats, err := svc.Stats(ctx, input.actor(), filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &StatsOutput{}
		out.Body.Total = stats.Total
		out.Body.StatusCounts = make(map[string]int, len(stats.StatusCounts))
		for status, n := range stats.StatusCounts {
			out.Body.StatusCounts[string(status)] = n
		}
		out.Body.OverdueCount = stats.OverdueCount
		if stats.AvgCompletionTime != nil {
			out.Body.AvgCompletionTime = stats.AvgCompletionTime.String()
		}
		out.Body.SLAComplianceRate = stats.SLAComplianceRate
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-work-order",
		Method:      http.MethodGet,
		Path:        "/api/v1/work-orders/{id}",
		Summary:     "Get a work order by ID",
		Tags:        []string{"WorkOrders"},
	}, func(ctx context.Context, input *GetWorkOrderInput) (*GetWorkOrderOutput, error) {
		wo, err := svc.GetByID(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetWorkOrderOutput{Body: toWorkOrderResponse(wo)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-work-orders",
		Method:      http.MethodGet,
		Path:        "/api/v1/work-orders",
		Summary:     "List work orders",
		Tags:        []string{"WorkOrders"},
	}, func(ctx context.Context, input *ListWorkOrdersInput) (*ListWorkOrdersOutput, error) {
		filter, err := windowFilter(input.From, input.To)
		if err != nil {
			return nil, err
		}
		filter.Limit = input.Limit
		filter.Offset = input.Offset
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		orders, err := svc.List(ctx, input.actor(), filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]WorkOrderResponse, len(orders))
		for i, wo := range orders {
			resp[i] = toWorkOrderResponse(wo)
		}
		return &ListWorkOrdersOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-work-order",
		Method:      http.MethodPost,
		Path:        "/api/v1/work-orders/{id}/transition",
		Summary:     "Apply a lifecycle transition",
		Tags:        []string{"WorkOrders"},
	}, func(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
		wo, err := svc.Transition(ctx, input.actor(), input.ID, domain.Status(input.Body.To), input.Body.Note)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionOutput{Body: toWorkOrderResponse(wo)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-work-order",
		Method:      http.MethodPost,
		Path:        "/api/v1/work-orders/{id}/assign",
		Summary:     "Assign a technician or vendor",
		Tags:        []string{"WorkOrders"},
	}, func(ctx context.Context, input *AssignInput) (*AssignOutput, error) {
		wo, err := svc.Assign(ctx, input.actor(), input.ID,
			domain.AssigneeType(input.Body.AssigneeType), input.Body.AssigneeID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AssignOutput{Body: toWorkOrderResponse(wo)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auto-assign-work-order",
		Method:      http.MethodPost,
		Path:        "/api/v1/work-orders/{id}/auto-assign",
		Summary:     "Auto-assign the best eligible candidate",
		Tags:        []string{"WorkOrders"},
	}, func(ctx context.Context, input *AutoAssignInput) (*AutoAssignOutput, error) {
		res, err := svc.AutoAssign(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &AutoAssignOutput{}
		out.Body.Success = res.Success
		out.Body.Error = res.Error
		out.Body.RoutingMode = string(res.RoutingMode)
		if res.Assignee != nil {
			out.Body.Assignee = &CandidateResponse{
				ID:      res.Assignee.ID,
				Type:    string(res.Assignee.Type),
				Name:    res.Assignee.Name,
				Score:   res.Assignee.Score,
				Reasons: res.Assignee.Reasons,
			}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-work-order-attachment",
		Method:        http.MethodPost,
		Path:          "/api/v1/work-orders/{id}/attachments",
		Summary:       "Record a media attachment",
		Tags:          []string{"WorkOrders"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AddAttachmentInput) (*AddAttachmentOutput, error) {
		attachments, err := svc.AddAttachment(ctx, input.actor(), input.ID,
			domain.AttachmentCategory(input.Body.Category), input.Body.URL)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &AddAttachmentOutput{Status: http.StatusCreated}
		for _, att := range attachments {
			out.Body.Attachments = append(out.Body.Attachments, toAttachmentResponse(att))
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-work-order-timeline",
		Method:      http.MethodGet,
		Path:        "/api/v1/work-orders/{id}/timeline",
		Summary:     "Audit trail of a work order",
		Tags:        []string{"WorkOrders"},
	}, func(ctx context.Context, input *TimelineInput) (*TimelineOutput, error) {
		entries, err := svc.Timeline(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TimelineEntryResponse, len(entries))
		for i, e := range entries {
			resp[i] = TimelineEntryResponse{
				ID:         e.ID,
				FromStatus: string(e.FromStatus),
				ToStatus:   string(e.ToStatus),
				ActorID:    e.ActorID,
				Note:       e.Note,
				OccurredAt: e.OccurredAt.Format(timeFormat),
			}
		}
		return &TimelineOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-assignee",
		Method:        http.MethodPost,
		Path:          "/api/v1/assignees",
		Summary:       "Register a technician or vendor",
		Tags:          []string{"Assignees"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *RegisterAssigneeInput) (*RegisterAssigneeOutput, error) {
		c, err := svc.RegisterAssignee(ctx, input.actor(), domain.AssignmentCandidate{
			ID:           input.Body.ID,
			Type:         domain.AssigneeType(input.Body.Type),
			Name:         input.Body.Name,
			Skills:       input.Body.Skills,
			Availability: domain.Availability(input.Body.Availability),
			MaxWorkload:  input.Body.MaxWorkload,
			Rating:       input.Body.Rating,
		})
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &RegisterAssigneeOutput{Status: http.StatusCreated}
		out.Body.ID = c.ID
		out.Body.Type = string(c.Type)
		out.Body.Name = c.Name
		out.Body.Availability = string(c.Availability)
		return out, nil
	})
}

// windowFilter parses the optional created_from/created_to query range.
func windowFilter(from, to string) (domain.ListFilter, error) {
	var filter domain.ListFilter
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, huma.Error422UnprocessableEntity("invalid created_from timestamp")
		}
		filter.CreatedFrom = &t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, huma.Error422UnprocessableEntity("invalid created_to timestamp")
		}
		filter.CreatedTo = &t
	}
	return filter, nil
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrWorkOrderNotFound) {
		return huma.Error404NotFound("work order not found")
	}

	var fErr *domain.ForbiddenError
	if errors.As(err, &fErr) {
		return huma.Error403Forbidden(fErr.Error())
	}

	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		// Carry the missing precondition so callers can branch on it
		// instead of parsing the message.
		return huma.Error422UnprocessableEntity(vErr.Message, &huma.ErrorDetail{
			Message:  vErr.Message,
			Location: "required",
			Value:    vErr.Required,
		})
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var cErr *domain.ConflictError
	if errors.As(err, &cErr) {
		return huma.Error409Conflict(cErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
