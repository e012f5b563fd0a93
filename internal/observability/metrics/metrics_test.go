package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("org_id", "123"),
		attribute.String("employee_id", "456"),
		attribute.String("reason", "role_blocked"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "org_id" && attrs[1].Key != "org_id" {
		t.Fatalf("expected org_id to be retained")
	}
	if attrs[0].Key != "reason" && attrs[1].Key != "reason" {
		t.Fatalf("expected reason to be retained")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordAccessAllowed(ctx, "salary", "create")
	m.RecordAccessDenied(ctx, "salary", "create", "not_a_member")
	m.RecordSalaryGenerated(ctx, "1")
	m.RecordSalaryReversed(ctx, "1")
	m.RecordAdvanceDeduction(ctx, "1", 100)
}

func TestNewRegistersInstruments(t *testing.T) {
	m, err := New(Config{ServiceName: "paybook-test"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m == nil {
		t.Fatal("expected metrics instance")
	}
	m.RecordAccessAllowed(context.Background(), "employee", "view")
}
