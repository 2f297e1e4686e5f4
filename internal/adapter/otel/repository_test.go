package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	adapter "github.com/fieldflow/fieldflow/internal/adapter/otel"
	"github.com/fieldflow/fieldflow/internal/domain"
)

// --- Test tracer setup ---

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

// --- Mock repository ---

type mockRepo struct {
	orders map[string]domain.WorkOrder
}

func newMockRepo() *mockRepo {
	return &mockRepo{orders: make(map[string]domain.WorkOrder)}
}

func (m *mockRepo) Create(_ context.Context, wo domain.WorkOrder) error {
	m.orders[wo.ID] = wo
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, tc domain.TenantContext, id string) (domain.WorkOrder, error) {
	wo, ok := m.orders[id]
	if !ok || !tc.Visible(wo.TenantID) {
		return domain.WorkOrder{}, domain.ErrWorkOrderNotFound
	}
	return wo, nil
}

func (m *mockRepo) List(_ context.Context, tc domain.TenantContext, _ domain.ListFilter) ([]domain.WorkOrder, error) {
	var out []domain.WorkOrder
	for _, wo := range m.orders {
		if tc.Visible(wo.TenantID) {
			out = append(out, wo)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, wo domain.WorkOrder, expectedVersion int64) error {
	current, ok := m.orders[wo.ID]
	if !ok {
		return domain.ErrWorkOrderNotFound
	}
	if current.Version != expectedVersion {
		return &domain.ConflictError{WorkOrderID: wo.ID}
	}
	m.orders[wo.ID] = wo
	return nil
}

func (m *mockRepo) AppendAttachment(_ context.Context, workOrderID string, att domain.Attachment) error {
	wo, ok := m.orders[workOrderID]
	if !ok {
		return domain.ErrWorkOrderNotFound
	}
	wo.Attachments = append(wo.Attachments, att)
	m.orders[workOrderID] = wo
	return nil
}

// --- Tests ---

func TestTracingRepository_Create_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	wo := domain.NewWorkOrder("wo-1", "t-1", "Leaky faucet")
	if err := repo.Create(context.Background(), wo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "WorkOrderRepository.Create" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "WorkOrderRepository.Create")
	}

	assertAttribute(t, spans[0], "work_order.id", "wo-1")
	assertAttribute(t, spans[0], "work_order.tenant_id", "t-1")
}

func TestTracingRepository_GetByID_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.orders["wo-1"] = domain.NewWorkOrder("wo-1", "t-1", "X")

	got, err := repo.GetByID(context.Background(), domain.TenantContext{TenantID: "t-1"}, "wo-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "wo-1" {
		t.Errorf("ID = %q, want %q", got.ID, "wo-1")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "WorkOrderRepository.GetByID" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "WorkOrderRepository.GetByID")
	}
}

func TestTracingRepository_GetByID_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	_, err := repo.GetByID(context.Background(), domain.TenantContext{TenantID: "t-1"}, "nonexistent")
	if !errors.Is(err, domain.ErrWorkOrderNotFound) {
		t.Fatalf("expected ErrWorkOrderNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}

	if len(spans[0].Events) == 0 {
		t.Error("expected error event on span")
	}
}

func TestTracingRepository_List_RecordsResultCount(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.orders["wo-1"] = domain.NewWorkOrder("wo-1", "t-1", "A")
	inner.orders["wo-2"] = domain.NewWorkOrder("wo-2", "t-1", "B")

	orders, err := repo.List(context.Background(), domain.TenantContext{TenantID: "t-1"}, domain.ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("got %d orders, want 2", len(orders))
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	assertAttribute(t, spans[0], "result.count", "2")
}

func TestTracingRepository_Update_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	wo := domain.NewWorkOrder("wo-1", "t-1", "X")
	inner.orders["wo-1"] = wo

	wo.Status = domain.StatusAssessment
	wo.Version = 2
	if err := repo.Update(context.Background(), wo, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "WorkOrderRepository.Update" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "WorkOrderRepository.Update")
	}

	assertAttribute(t, spans[0], "work_order.status", "assessment")
	assertAttribute(t, spans[0], "work_order.expected_version", "1")
}

func TestTracingRepository_AppendAttachment_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.orders["wo-1"] = domain.NewWorkOrder("wo-1", "t-1", "X")

	att := domain.Attachment{Category: domain.AttachmentBefore, URL: "https://cdn/b.jpg"}
	if err := repo.AppendAttachment(context.Background(), "wo-1", att); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	assertAttribute(t, spans[0], "attachment.category", "before")
}

// assertAttribute checks that a span has an attribute with the given key and string value.
func assertAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			got := attr.Value.Emit()
			if got != want {
				t.Errorf("attribute %q = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found on span %q", key, span.Name)
}
