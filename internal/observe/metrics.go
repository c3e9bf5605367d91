// Package observe provides application-wide observability primitives for
// intentd: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all intentd metrics.
const meterName = "github.com/verbao/intentd"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ClassifyDuration tracks classification latency. Use with attribute:
	//   attribute.String("modality", "embedding"|"text"|"hybrid")
	ClassifyDuration metric.Float64Histogram

	// StoreDuration tracks similarity-store operation latency. Use with
	// attributes:
	//   attribute.String("backend", ...), attribute.String("op", ...)
	StoreDuration metric.Float64Histogram

	// --- Counters ---

	// Classifications counts classification requests. Use with attributes:
	//   attribute.String("modality", ...), attribute.String("intent", ...),
	//   attribute.String("status", ...)
	Classifications metric.Int64Counter

	// TrainingSamples counts embeddings accepted as training samples. Use
	// with attributes:
	//   attribute.String("intent", ...), attribute.String("source", "batch"|"confirmation")
	TrainingSamples metric.Int64Counter

	// Confirmations counts confirmation outcomes. Use with attribute:
	//   attribute.String("status", "trained"|"rejected"|"expired")
	Confirmations metric.Int64Counter

	// PendingEvictions counts embeddings dropped from the pending queue to
	// make room for newer ones.
	PendingEvictions metric.Int64Counter

	// --- Error counters ---

	// StoreErrors counts similarity-store failures. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("op", ...)
	StoreErrors metric.Int64Counter

	// --- Gauges ---

	// PendingEmbeddings tracks the number of embeddings currently awaiting
	// confirmation.
	PendingEmbeddings metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for classification latencies, which are dominated by vector search.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ClassifyDuration, err = m.Float64Histogram("intentd.classify.duration",
		metric.WithDescription("Latency of intent classification by modality."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StoreDuration, err = m.Float64Histogram("intentd.store.duration",
		metric.WithDescription("Latency of similarity-store operations by backend and op."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Classifications, err = m.Int64Counter("intentd.classifications",
		metric.WithDescription("Total classification requests by modality, intent, and status."),
	); err != nil {
		return nil, err
	}
	if met.TrainingSamples, err = m.Int64Counter("intentd.training.samples",
		metric.WithDescription("Total embeddings accepted as training samples by intent and source."),
	); err != nil {
		return nil, err
	}
	if met.Confirmations, err = m.Int64Counter("intentd.confirmations",
		metric.WithDescription("Total confirmation outcomes by status."),
	); err != nil {
		return nil, err
	}
	if met.PendingEvictions, err = m.Int64Counter("intentd.pending.evictions",
		metric.WithDescription("Total pending embeddings evicted to make room."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.StoreErrors, err = m.Int64Counter("intentd.store.errors",
		metric.WithDescription("Total similarity-store errors by backend and op."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.PendingEmbeddings, err = m.Int64UpDownCounter("intentd.pending.embeddings",
		metric.WithDescription("Number of embeddings currently awaiting confirmation."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("intentd.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordClassification records one classification together with its latency.
func (m *Metrics) RecordClassification(ctx context.Context, modality, intentLabel, status string, seconds float64) {
	m.Classifications.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("modality", modality),
			attribute.String("intent", intentLabel),
			attribute.String("status", status),
		),
	)
	m.ClassifyDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("modality", modality)),
	)
}

// RecordTraining records accepted training samples for an intent.
func (m *Metrics) RecordTraining(ctx context.Context, intentLabel, source string, count int64) {
	m.TrainingSamples.Add(ctx, count,
		metric.WithAttributes(
			attribute.String("intent", intentLabel),
			attribute.String("source", source),
		),
	)
}

// RecordConfirmation records a confirmation outcome.
func (m *Metrics) RecordConfirmation(ctx context.Context, status string) {
	m.Confirmations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordStoreOp records the latency of one similarity-store operation.
func (m *Metrics) RecordStoreOp(ctx context.Context, backend, op string, seconds float64) {
	m.StoreDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("op", op),
		),
	)
}

// RecordStoreError records a similarity-store failure.
func (m *Metrics) RecordStoreError(ctx context.Context, backend, op string) {
	m.StoreErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("op", op),
		),
	)
}
