// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommentsAnalyzed prometheus.Counter
	ToxicDetected    prometheus.Counter
	AnalysisFailures prometheus.Counter
	PersistFailures  prometheus.Counter
	BroadcastEvents  prometheus.Counter
	PollCycles       *prometheus.CounterVec

	// Histograms (seconds)
	AnalyzeDuration prometheus.Observer

	// Gauges
	SubscribersGauge    prometheus.Gauge
	ActiveSessionsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommentsAnalyzed = promauto.NewCounter(prometheus.CounterOpts{Name: "hatewatch_comments_analyzed_total", Help: "Number of comments scored and persisted"})
		ToxicDetected = promauto.NewCounter(prometheus.CounterOpts{Name: "hatewatch_toxic_comments_total", Help: "Number of comments classified toxic"})
		AnalysisFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "hatewatch_analysis_failures_total", Help: "Number of per-comment analysis failures (item skipped)"})
		PersistFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "hatewatch_persist_failures_total", Help: "Number of per-comment persistence failures (item skipped)"})
		BroadcastEvents = promauto.NewCounter(prometheus.CounterOpts{Name: "hatewatch_broadcast_events_total", Help: "Number of fan-out publishes"})
		PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{Name: "hatewatch_poll_cycles_total", Help: "Number of successful upstream poll fetches by mode"}, []string{"mode"})
		AnalyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "hatewatch_analyze_duration_seconds", Help: "Toxicity analysis duration seconds", Buckets: prometheus.DefBuckets})
		SubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "hatewatch_subscribers", Help: "Current number of broadcast subscribers"})
		ActiveSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "hatewatch_active_sessions", Help: "Current number of running ingestion sessions"})
	})
}

// IncAnalyzed records one scored comment, counting toxic classifications separately.
func IncAnalyzed(toxic bool) {
	if CommentsAnalyzed != nil {
		CommentsAnalyzed.Inc()
	}
	if toxic && ToxicDetected != nil {
		ToxicDetected.Inc()
	}
}

// IncAnalysisFailed records one skipped comment due to an analysis error.
func IncAnalysisFailed() {
	if AnalysisFailures != nil {
		AnalysisFailures.Inc()
	}
}

// IncPersistFailed records one skipped comment due to a persistence error.
func IncPersistFailed() {
	if PersistFailures != nil {
		PersistFailures.Inc()
	}
}

// IncBroadcast records one fan-out publish.
func IncBroadcast() {
	if BroadcastEvents != nil {
		BroadcastEvents.Inc()
	}
}

// IncPollCycle records one successful upstream fetch for a polling mode.
func IncPollCycle(mode string) {
	if PollCycles != nil {
		PollCycles.WithLabelValues(mode).Inc()
	}
}

// SetSubscribers records the current broadcast subscriber count.
func SetSubscribers(n int) {
	if SubscribersGauge != nil {
		SubscribersGauge.Set(float64(n))
	}
}

// SetActiveSessions records the current running session count.
func SetActiveSessions(n int) {
	if ActiveSessionsGauge != nil {
		ActiveSessionsGauge.Set(float64(n))
	}
}

// TimeAnalyze measures the duration of one analysis call and records it in the
// histogram if registered.
func TimeAnalyze(fn func() (float64, error)) (float64, error) {
	start := time.Now()
	v, err := fn()
	if AnalyzeDuration != nil {
		AnalyzeDuration.Observe(time.Since(start).Seconds())
	}
	return v, err
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
