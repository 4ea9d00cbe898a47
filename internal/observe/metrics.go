// Package observe provides the observability primitives of lingograde:
// OpenTelemetry metrics, tracing, trace-aware logging and the HTTP middleware
// that ties them together.
//
// Instruments are created through the OpenTelemetry Metrics API and exported
// to Prometheus by [InitProvider]. Tests should build their own [Metrics]
// with [NewMetrics] and a ManualReader instead of using [DefaultMetrics].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope of every lingograde instrument.
const meterName = "github.com/MrWong99/lingograde"

// Outcome labels used with the grade counter.
const (
	OutcomePass  = "pass"
	OutcomeFail  = "fail"
	OutcomeError = "error"

	// OutcomeScored is used by tracks that produce a score without a
	// pass/fail decision, such as pronunciation.
	OutcomeScored = "scored"
)

// Metrics holds the OpenTelemetry instruments of the grading service.
type Metrics struct {
	// GradeRequests counts graded items. Attributes: track, outcome.
	GradeRequests metric.Int64Counter

	// GradeDuration is the time spent grading one item, cache lookup
	// included. Attributes: track.
	GradeDuration metric.Float64Histogram

	// PhoneticPenalty is the distribution of pronunciation penalties.
	PhoneticPenalty metric.Float64Histogram

	// CacheLookups counts result cache lookups. Attributes: result
	// ("hit", "miss" or "error").
	CacheLookups metric.Int64Counter

	// Corrections counts pre-pass corrections. Attributes: method.
	Corrections metric.Int64Counter

	// HTTPRequestDuration is recorded by [Middleware]. Attributes: method,
	// route, status.
	HTTPRequestDuration metric.Float64Histogram
}

// gradeBuckets are histogram boundaries (seconds) for in-process grading,
// which is sub-millisecond unless the postgres cache is involved.
var gradeBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5,
}

// penaltyBuckets cover the capped penalty range.
var penaltyBuckets = []float64{0, 0.02, 0.04, 0.08, 0.12, 0.16, 0.2, 0.25, 0.3, 0.5, 1}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GradeRequests, err = m.Int64Counter("lingograde.grade.requests",
		metric.WithDescription("Graded items by track and outcome."),
	); err != nil {
		return nil, err
	}
	if met.GradeDuration, err = m.Float64Histogram("lingograde.grade.duration",
		metric.WithDescription("Latency of grading a single item."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(gradeBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PhoneticPenalty, err = m.Float64Histogram("lingograde.phonetic.penalty",
		metric.WithDescription("Pronunciation penalty applied to the accuracy score."),
		metric.WithExplicitBucketBoundaries(penaltyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("lingograde.cache.lookups",
		metric.WithDescription("Result cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.Corrections, err = m.Int64Counter("lingograde.transcript.corrections",
		metric.WithDescription("Hypothesis corrections applied by the pre-pass, by method."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("lingograde.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level [Metrics] built on
// [otel.GetMeterProvider] at first use. It panics if an instrument cannot be
// created.
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

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGrade counts one graded item and records how long it took.
func (m *Metrics) RecordGrade(ctx context.Context, track, outcome string, elapsed time.Duration) {
	m.GradeRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("track", track),
			attribute.String("outcome", outcome),
		),
	)
	m.GradeDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("track", track)),
	)
}

// RecordPenalty records a pronunciation penalty.
func (m *Metrics) RecordPenalty(ctx context.Context, penalty float64) {
	m.PhoneticPenalty.Record(ctx, penalty)
}

// RecordCacheLookup counts a cache lookup with the given result.
func (m *Metrics) RecordCacheLookup(ctx context.Context, result string) {
	m.CacheLookups.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordCorrection counts one pre-pass correction.
func (m *Metrics) RecordCorrection(ctx context.Context, method string) {
	m.Corrections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", method)),
	)
}
