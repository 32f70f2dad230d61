package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("status", "healthy"),
		attribute.String("org_id", "456"),
		attribute.String("plan", "core"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.ElementsMatch(t, []attribute.Key{"status", "plan"}, keys)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordHealthScore(ctx, "healthy", 90)
		m.RecordHealthSweepFailure(ctx, "query")
		m.RecordSubscriptionChange(ctx, "upgrade", "enterprise")
		m.RecordInvoiceIssued(ctx, "core")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordHealthScore(context.Background(), "critical", 0)
	})
}
