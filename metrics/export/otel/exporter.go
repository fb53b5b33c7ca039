package otel

import (
	"context"
	"errors"
	"fmt"

	goPermit "github.com/MrEthical07/goPermit"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when the exporter is constructed without a meter.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when the exporter is constructed without a
	// metrics source.
	ErrNilSource = errors.New("nil metrics source")
)

// metricsSource is the slice of the Engine surface the exporter reads.
type metricsSource interface {
	MetricsSnapshot() goPermit.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   goPermit.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{goPermit.MetricCheckGranted, "gopermit_check_granted_total", "Checks resolved to the granted handler."},
	{goPermit.MetricCheckDenied, "gopermit_check_denied_total", "Checks resolved to the denied handler."},
	{goPermit.MetricCheckCancelled, "gopermit_check_cancelled_total", "Cancellation outcomes surfaced to the caller."},
	{goPermit.MetricCheckCancelRecovered, "gopermit_check_cancel_recovered_total", "Cancellation outcomes absorbed by the cancelled handler."},
	{goPermit.MetricCheckError, "gopermit_check_error_total", "Operation errors surfaced to the caller."},
	{goPermit.MetricCheckErrorRecovered, "gopermit_check_error_recovered_total", "Operation errors absorbed by the error handler."},
	{goPermit.MetricCheckConfigRejected, "gopermit_check_config_rejected_total", "Execute calls refused by a configuration error."},
}

const latencyMetricName = "gopermit_check_latency"

// Bucket upper-bound suffixes; must match the histogram layout of the root
// package (8 buckets, last is +inf).
var latencyBoundSuffix = [8]string{"1ms", "2ms", "5ms", "10ms", "25ms", "50ms", "100ms", "inf"}

type observedCounter struct {
	id         goPermit.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter republishes the engine's decision counters and latency histogram
// as OpenTelemetry observable instruments. Collection reads a snapshot, so
// registering an exporter adds no cost to the check path.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	latencyGauge [len(latencyBoundSuffix)]metric.Int64ObservableGauge
	latencyCount metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers the engine's metrics on meter.
func NewExporter(meter metric.Meter, engine *goPermit.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers any snapshot source on meter. Exists so
// tests and wrappers can substitute the engine.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs)+len(latencyBoundSuffix)+2)

	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	for i := range latencyBoundSuffix {
		name := latencyMetricName + "_bucket_le_" + latencyBoundSuffix[i]
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
		}
		exporter.latencyGauge[i] = ins
		observables = append(observables, ins)
	}

	countIns, err := meter.Int64ObservableGauge(
		latencyMetricName+"_count",
		metric.WithDescription("Histogram total sample count."),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram count gauge: %w", err)
	}
	exporter.latencyCount = countIns
	observables = append(observables, countIns)

	auditDropped, err := meter.Int64ObservableCounter(
		"gopermit_audit_dropped_total",
		metric.WithDescription("Dropped decision events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		cumulative := cumulativeBuckets(snapshot.Histograms[goPermit.MetricCheckLatency])
		for i := range exporter.latencyGauge {
			observer.ObserveInt64(exporter.latencyGauge[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(exporter.latencyCount, int64(cumulative[len(cumulative)-1]))
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration

	return exporter, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

// cumulativeBuckets converts per-bucket counts to cumulative le-counts,
// padding or truncating to the fixed bucket layout.
func cumulativeBuckets(buckets []uint64) [len(latencyBoundSuffix)]uint64 {
	var out [len(latencyBoundSuffix)]uint64
	var running uint64
	for i := 0; i < len(out); i++ {
		if i < len(buckets) {
			running += buckets[i]
		}
		out[i] = running
	}
	return out
}
