package goPermit

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one decision counter or histogram.
type MetricID uint8

const (
	// MetricCheckGranted counts checks dispatched to the granted handler
	// whose outcome stood (no post-dispatch cancellation).
	MetricCheckGranted MetricID = iota
	// MetricCheckDenied counts checks dispatched to the denied handler
	// whose outcome stood.
	MetricCheckDenied
	// MetricCheckCancelled counts cancellation outcomes surfaced to the
	// caller (no OnCancelled handler, or the handler itself failed).
	MetricCheckCancelled
	// MetricCheckCancelRecovered counts cancellation outcomes absorbed by a
	// configured OnCancelled handler.
	MetricCheckCancelRecovered
	// MetricCheckError counts operation errors surfaced to the caller.
	MetricCheckError
	// MetricCheckErrorRecovered counts operation errors absorbed by a
	// configured OnError handler.
	MetricCheckErrorRecovered
	// MetricCheckConfigRejected counts Execute calls refused by a
	// configuration error (duplicate slot, missing slots, reused check).
	MetricCheckConfigRejected
	// MetricCheckLatency is the check-latency histogram, observed once per
	// Execute that reaches an outcome.
	MetricCheckLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's lock-free decision counters. All methods are
// safe for concurrent use; a nil or disabled Metrics is inert.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram,
// consumed by the metrics/export packages.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics store honoring cfg. Latency observation
// requires both Enabled and EnableLatencyHistogram.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistogram,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments the counter for id. No-op when disabled or out of range.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample into the MetricCheckLatency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricCheckLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of the counter for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram. Disabled metrics snapshot to
// empty maps, never nil.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricCheckLatency].buckets[i])
		}
		s.Histograms[MetricCheckLatency] = buckets
	}

	return s
}

// Bucket upper bounds: 1ms, 2ms, 5ms, 10ms, 25ms, 50ms, 100ms, +inf.
func bucketIndex(d time.Duration) int {
	switch {
	case d < time.Millisecond:
		return 0
	case d < 2*time.Millisecond:
		return 1
	case d < 5*time.Millisecond:
		return 2
	case d < 10*time.Millisecond:
		return 3
	case d < 25*time.Millisecond:
		return 4
	case d < 50*time.Millisecond:
		return 5
	case d < 100*time.Millisecond:
		return 6
	default:
		return 7
	}
}
