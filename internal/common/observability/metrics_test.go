package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestObservability_RecordQuery(t *testing.T) {
	reader := metric.NewManualReader()
	obs := newWithProvider(metric.NewMeterProvider(metric.WithReader(reader)), "test")
	defer obs.Shutdown()

	ctx := context.Background()
	obs.RecordQuery(ctx, "rest", 12*time.Millisecond, "ok")
	obs.RecordQuery(ctx, "rest", 30*time.Millisecond, "error")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
		if m.Name == "search.query.count" {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			assert.Equal(t, int64(2), total)
		}
	}
	assert.True(t, names["search.query.count"])
	assert.True(t, names["search.query.duration"])
}

func TestObservability_NoopDoesNotPanic(t *testing.T) {
	obs := NewNoop()
	obs.RecordQuery(context.Background(), "rest", time.Millisecond, "ok")
	obs.Shutdown()
}
