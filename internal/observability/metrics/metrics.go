package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	accessAllowed    metric.Int64Counter
	accessDenied     metric.Int64Counter
	salaryGenerated  metric.Int64Counter
	salaryReversed   metric.Int64Counter
	advanceConsumed  metric.Int64Counter
	advanceConsumedV metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "paybook"
	}
	meter := provider.Meter(name)

	accessAllowed, err := meter.Int64Counter("paybook_access_allowed_total")
	if err != nil {
		return nil, err
	}
	accessDenied, err := meter.Int64Counter("paybook_access_denied_total")
	if err != nil {
		return nil, err
	}
	salaryGenerated, err := meter.Int64Counter("paybook_salary_generated_total")
	if err != nil {
		return nil, err
	}
	salaryReversed, err := meter.Int64Counter("paybook_salary_reversed_total")
	if err != nil {
		return nil, err
	}
	advanceConsumed, err := meter.Int64Counter("paybook_advance_deductions_total")
	if err != nil {
		return nil, err
	}
	advanceConsumedV, err := meter.Int64Counter("paybook_advance_deducted_minor_units_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		accessAllowed:    accessAllowed,
		accessDenied:     accessDenied,
		salaryGenerated:  salaryGenerated,
		salaryReversed:   salaryReversed,
		advanceConsumed:  advanceConsumed,
		advanceConsumedV: advanceConsumedV,
	}, nil
}

// RecordAccessAllowed increments allow counts for one check.
func (m *Metrics) RecordAccessAllowed(ctx context.Context, module, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("module", strings.TrimSpace(module)),
		attribute.String("action", strings.TrimSpace(action)),
	)
	m.accessAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAccessDenied increments deny counts keyed by reason.
func (m *Metrics) RecordAccessDenied(ctx context.Context, module, action, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("module", strings.TrimSpace(module)),
		attribute.String("action", strings.TrimSpace(action)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.accessDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSalaryGenerated increments generated salary record counts.
func (m *Metrics) RecordSalaryGenerated(ctx context.Context, orgID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.salaryGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSalaryReversed increments deleted-and-reversed salary record counts.
func (m *Metrics) RecordSalaryReversed(ctx context.Context, orgID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.salaryReversed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAdvanceDeduction counts one advance consumption and its amount.
func (m *Metrics) RecordAdvanceDeduction(ctx context.Context, orgID string, amount int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.advanceConsumed.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.advanceConsumedV.Add(ctx, amount, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"org_id":      {},
	"module":      {},
	"action":      {},
	"reason":      {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
