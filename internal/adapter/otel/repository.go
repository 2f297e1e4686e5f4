package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldflow/fieldflow/internal/domain"
)

const tracerName = "github.com/fieldflow/fieldflow/internal/adapter/otel"

// TracingRepository wraps a domain.WorkOrderRepository with OpenTelemetry
// tracing. Each method creates a span with semantic attributes and
// records errors.
type TracingRepository struct {
	next   domain.WorkOrderRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.WorkOrderRepository.
var _ domain.WorkOrderRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.WorkOrderRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, wo domain.WorkOrder) error {
	ctx, span := r.tracer.Start(ctx, "WorkOrderRepository.Create",
		trace.WithAttributes(
			attribute.String("work_order.id", wo.ID),
			attribute.String("work_order.tenant_id", wo.TenantID),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, wo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, tc domain.TenantContext, id string) (domain.WorkOrder, error) {
	ctx, span := r.tracer.Start(ctx, "WorkOrderRepository.GetByID",
		trace.WithAttributes(
			attribute.String("work_order.id", id),
			attribute.Bool("tenant.cross_tenant", tc.CrossTenant),
		),
	)
	defer span.End()

	wo, err := r.next.GetByID(ctx, tc, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return wo, err
}

func (r *TracingRepository) List(ctx context.Context, tc domain.TenantContext, filter domain.ListFilter) ([]domain.WorkOrder, error) {
	ctx, span := r.tracer.Start(ctx, "WorkOrderRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
			attribute.Bool("tenant.cross_tenant", tc.CrossTenant),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	orders, err := r.next.List(ctx, tc, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(orders)))
	}
	return orders, err
}

func (r *TracingRepository) Update(ctx context.Context, wo domain.WorkOrder, expectedVersion int64) error {
	ctx, span := r.tracer.Start(ctx, "WorkOrderRepository.Update",
		trace.WithAttributes(
			attribute.String("work_order.id", wo.ID),
			attribute.String("work_order.status", string(wo.Status)),
			attribute.Int64("work_order.expected_version", expectedVersion),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, wo, expectedVersion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) AppendAttachment(ctx context.Context, workOrderID string, att domain.Attachment) error {
	ctx, span := r.tracer.Start(ctx, "WorkOrderRepository.AppendAttachment",
		trace.WithAttributes(
			attribute.String("work_order.id", workOrderID),
			attribute.String("attachment.category", string(att.Category)),
		),
	)
	defer span.End()

	err := r.next.AppendAttachment(ctx, workOrderID, att)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
