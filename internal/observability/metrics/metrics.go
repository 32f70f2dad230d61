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
	healthScores       metric.Int64Counter
	healthScoreValue   metric.Float64Histogram
	healthSweepFailed  metric.Int64Counter
	subscriptionWrites metric.Int64Counter
	invoicesIssued     metric.Int64Counter
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
		name = "schoolgle"
	}
	meter := provider.Meter(name)

	healthScores, err := meter.Int64Counter("schoolgle_health_scores_computed_total",
		metric.WithDescription("Health scores persisted, by resulting status."))
	if err != nil {
		return nil, err
	}
	healthScoreValue, err := meter.Float64Histogram("schoolgle_health_score",
		metric.WithDescription("Distribution of computed overall health scores."),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100))
	if err != nil {
		return nil, err
	}
	healthSweepFailed, err := meter.Int64Counter("schoolgle_health_sweep_failures_total",
		metric.WithDescription("Organizations skipped by a sweep because scoring failed."))
	if err != nil {
		return nil, err
	}
	subscriptionWrites, err := meter.Int64Counter("schoolgle_subscription_changes_total",
		metric.WithDescription("Subscription mutations, by action."))
	if err != nil {
		return nil, err
	}
	invoicesIssued, err := meter.Int64Counter("schoolgle_invoices_issued_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		healthScores:       healthScores,
		healthScoreValue:   healthScoreValue,
		healthSweepFailed:  healthSweepFailed,
		subscriptionWrites: subscriptionWrites,
		invoicesIssued:     invoicesIssued,
	}, nil
}

// RecordHealthScore records one persisted score.
func (m *Metrics) RecordHealthScore(ctx context.Context, status string, score int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("status", strings.TrimSpace(status)))...)
	m.healthScores.Add(ctx, 1, attrs)
	m.healthScoreValue.Record(ctx, float64(score), attrs)
}

func (m *Metrics) RecordHealthSweepFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.healthSweepFailed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSubscriptionChange counts create and update actions against subscriptions.
func (m *Metrics) RecordSubscriptionChange(ctx context.Context, action, plan string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("action", strings.TrimSpace(action)),
		attribute.String("plan", strings.TrimSpace(plan)),
	)
	m.subscriptionWrites.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordInvoiceIssued(ctx context.Context, plan string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("plan", strings.TrimSpace(plan)))
	m.invoicesIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
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

// org_id is deliberately absent: the customer base is unbounded.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"status":      {},
	"plan":        {},
	"action":      {},
	"route":       {},
	"method":      {},
	"status_code": {},
	"reason":      {},
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
