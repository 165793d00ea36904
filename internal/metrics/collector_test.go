package metrics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func find(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return metricdata.Metrics{}
}

func TestOTelCollector_RecordDuration(t *testing.T) {
	reader, provider := newReader()
	c := NewOTelCollector(provider.Meter("test"))

	c.RecordDuration("posts_handler_seconds", 150*time.Millisecond, map[string]string{"endpoint": "list_posts"})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	hist, ok := find(t, rm, "posts_handler_seconds").Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.15, hist.DataPoints[0].Sum, 0.001)

	expected := attribute.NewSet(attribute.String("endpoint", "list_posts"))
	assert.True(t, hist.DataPoints[0].Attributes.Equals(&expected))
}

func TestOTelCollector_IncrementCounter(t *testing.T) {
	reader, provider := newReader()
	c := NewOTelCollector(provider.Meter("test"))

	labels := map[string]string{"endpoint": "get_post", "result": "ok"}
	c.IncrementCounter("posts_responses_total", labels)
	c.IncrementCounter("posts_responses_total", labels)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sum, ok := find(t, rm, "posts_responses_total").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func TestObserveDBStats(t *testing.T) {
	reader, provider := newReader()

	_, err := ObserveDBStats(provider.Meter("test"), "postgres", func() sql.DBStats {
		return sql.DBStats{OpenConnections: 5, Idle: 3}
	})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	open, ok := find(t, rm, "posts_db_connections").Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, open.DataPoints, 1)
	assert.Equal(t, int64(5), open.DataPoints[0].Value)

	idle, ok := find(t, rm, "posts_db_connections_idle").Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(3), idle.DataPoints[0].Value)
}
