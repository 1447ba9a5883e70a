package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the spec §4.10 instrument set: "request counters by
// endpoint and status, per-stage latency histograms, cache hit rate gauge,
// vector count gauge, active connections gauge." Instruments are created
// lazily against the global MeterProvider, the same pattern
// internal/llmprovider uses for its token/latency instruments, so callers
// that never touch telemetry never pay instrument-creation cost.
type Metrics struct {
	once sync.Once

	requests     metric.Int64Counter
	stageLatency metric.Float64Histogram
	cacheHitRate metric.Float64Gauge
	vectorCount  metric.Int64Gauge
	activeConns  metric.Int64Gauge
}

func (m *Metrics) init() {
	m.once.Do(func() {
		meter := otel.Meter("github.com/agentmem/agentmem/observability")
		m.requests, _ = meter.Int64Counter("agentmem.requests",
			metric.WithDescription("requests by endpoint and status"), metric.WithUnit("{request}"))
		m.stageLatency, _ = meter.Float64Histogram("agentmem.stage.latency",
			metric.WithDescription("per-pipeline-stage latency"), metric.WithUnit("ms"))
		m.cacheHitRate, _ = meter.Float64Gauge("agentmem.cache.hit_rate",
			metric.WithDescription("L1 cache hit rate"), metric.WithUnit("1"))
		m.vectorCount, _ = meter.Int64Gauge("agentmem.vector.count",
			metric.WithDescription("vectors held by the vector index"), metric.WithUnit("{vector}"))
		m.activeConns, _ = meter.Int64Gauge("agentmem.repository.active_connections",
			metric.WithDescription("open repository connections"), metric.WithUnit("{connection}"))
	})
}

// RecordRequest increments the request counter for one endpoint/status pair.
func (m *Metrics) RecordRequest(ctx context.Context, endpoint, status string) {
	m.init()
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attrEndpoint(endpoint), attrStatus(status),
	))
}

// RecordStageLatency records one pipeline stage's duration.
func (m *Metrics) RecordStageLatency(ctx context.Context, stage string, d time.Duration) {
	m.init()
	m.stageLatency.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(attrStage(stage)))
}

// RecordCacheHitRate reports the current L1 cache hit rate in [0,1].
func (m *Metrics) RecordCacheHitRate(ctx context.Context, rate float64) {
	m.init()
	m.cacheHitRate.Record(ctx, rate)
}

// RecordVectorCount reports the current vector index size.
func (m *Metrics) RecordVectorCount(ctx context.Context, count int64) {
	m.init()
	m.vectorCount.Record(ctx, count)
}

// RecordActiveConnections reports the current repository connection count.
func (m *Metrics) RecordActiveConnections(ctx context.Context, count int64) {
	m.init()
	m.activeConns.Record(ctx, count)
}
