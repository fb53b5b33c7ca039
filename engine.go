package goPermit

import (
	"context"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// Engine is the factory for permission checks. It binds the authority, audit
// dispatcher, metrics, and logger; all of them are fixed at Build and shared
// by every Check the engine creates.
//
// Engine methods are safe for concurrent use.
type Engine struct {
	config    Config
	authority Authority
	audit     *auditDispatcher
	metrics   *Metrics
	log       logr.Logger
}

// Check creates a one-shot decision context for the subject. The subject and
// the authority binding are fixed; everything else is configured through the
// Check's one-time setters.
func (e *Engine) Check(subjectID uuid.UUID) *Check {
	return &Check{
		engine:    e,
		subjectID: subjectID,
	}
}

// Allowed is the plain boolean query: it asks the authority directly, with no
// handlers, no outcome dispatch, and no audit record. Useful for callers that
// only branch on the answer.
func (e *Engine) Allowed(ctx context.Context, subjectID uuid.UUID, permission string) (bool, error) {
	if e == nil || e.authority == nil {
		return false, ErrEngineNotReady
	}
	if strings.TrimSpace(permission) == "" {
		return false, &ConfigError{Slot: slotRequiredPermission, Reason: "permission name must not be blank"}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return e.authority.Verify(ctx, subjectID, permission)
}

// Close drains and stops the audit dispatcher. Safe to call more than once;
// checks executed after Close lose their audit events but otherwise behave
// normally.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// MetricsSnapshot returns a point-in-time copy of the decision counters and
// the latency histogram.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many decision events the dispatcher discarded
// under DropIfFull pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeLatency(d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(MetricCheckLatency, d)
}

// auditDecision emits the per-check audit record. The event must survive a
// cancelled caller context, so emission uses a non-cancellable derivation.
func (e *Engine) auditDecision(ctx context.Context, c *Check, outcome DecisionOutcome, recovered bool, cause error) {
	if e == nil || e.audit == nil {
		return
	}
	event := DecisionEvent{
		Timestamp:  time.Now().UTC(),
		SubjectID:  c.subjectID.String(),
		Permission: c.permission,
		Outcome:    outcome,
		Recovered:  recovered,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(context.WithoutCancel(ctx), event)
}
