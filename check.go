package goPermit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Handler is the shape of the granted, denied, and cancelled slots. It
// receives the caller's context (the cancellation signal); the subject is
// available to the caller by closure. A non-nil return from the granted or
// denied handler is classified as an operation error (or a cancellation, if
// the context is done by then).
type Handler func(ctx context.Context) error

// ErrorHandler is the shape of the OnError slot. It receives the original,
// unwrapped error from the authority query or from the granted/denied
// handler. A non-nil return propagates to the Execute caller.
type ErrorHandler func(ctx context.Context, err error) error

// Check is a one-shot permission decision context bound to a subject and the
// engine's authority. Configure it through the chained one-time setters, then
// call Execute exactly once.
//
// A Check is a single-owner object: it must not be configured or executed
// concurrently, and it is not reusable after Execute.
type Check struct {
	engine    *Engine
	subjectID uuid.UUID

	permission  string
	onGranted   Handler
	onDenied    Handler
	onCancelled Handler
	onError     ErrorHandler

	permissionSet bool
	grantedSet    bool
	deniedSet     bool
	cancelledSet  bool
	errorSet      bool

	configErr *ConfigError
	executed  bool
}

// SubjectID returns the subject this check was created for. Fixed at
// creation.
func (c *Check) SubjectID() uuid.UUID {
	return c.subjectID
}

// fail records the first configuration violation. Later violations are
// ignored; the first one is what Err and Execute report.
func (c *Check) fail(slot, reason string) {
	if c.configErr == nil {
		c.configErr = &ConfigError{Slot: slot, Reason: reason}
	}
}

// Err returns the configuration error recorded by a rejected setter, or nil.
// The same error is returned by Execute before any other step runs.
func (c *Check) Err() error {
	if c == nil || c.configErr == nil {
		return nil
	}
	return c.configErr
}

// RequirePermission sets the permission name the check verifies. One-shot:
// a second call, or a blank name, records a ConfigError.
func (c *Check) RequirePermission(name string) *Check {
	if c == nil {
		return nil
	}
	if c.permissionSet {
		c.fail(slotRequiredPermission, "already set")
		return c
	}
	if strings.TrimSpace(name) == "" {
		c.fail(slotRequiredPermission, "permission name must not be blank")
		return c
	}
	c.permission = name
	c.permissionSet = true
	return c
}

// OnGranted sets the handler invoked when the authority grants the
// permission. One-shot and mandatory; a nil handler records a ConfigError.
func (c *Check) OnGranted(h Handler) *Check {
	if c == nil {
		return nil
	}
	if c.grantedSet {
		c.fail(slotOnGranted, "already set")
		return c
	}
	if h == nil {
		c.fail(slotOnGranted, "handler must not be nil")
		return c
	}
	c.onGranted = h
	c.grantedSet = true
	return c
}

// OnDenied sets the handler invoked when the authority withholds the
// permission. One-shot and mandatory; a nil handler records a ConfigError.
func (c *Check) OnDenied(h Handler) *Check {
	if c == nil {
		return nil
	}
	if c.deniedSet {
		c.fail(slotOnDenied, "already set")
		return c
	}
	if h == nil {
		c.fail(slotOnDenied, "handler must not be nil")
		return c
	}
	c.onDenied = h
	c.deniedSet = true
	return c
}

// OnCancelled sets the handler invoked when a cancellation is observed at a
// checkpoint. One-shot and optional: when unset, Execute returns the observed
// cancellation error to the caller instead.
func (c *Check) OnCancelled(h Handler) *Check {
	if c == nil {
		return nil
	}
	if c.cancelledSet {
		c.fail(slotOnCancelled, "already set")
		return c
	}
	if h == nil {
		c.fail(slotOnCancelled, "handler must not be nil")
		return c
	}
	c.onCancelled = h
	c.cancelledSet = true
	return c
}

// OnError sets the handler invoked when the authority query or the dispatched
// handler fails with a non-cancellation error. One-shot and optional: when
// unset, Execute re-raises the original error unchanged.
func (c *Check) OnError(h ErrorHandler) *Check {
	if c == nil {
		return nil
	}
	if c.errorSet {
		c.fail(slotOnError, "already set")
		return c
	}
	if h == nil {
		c.fail(slotOnError, "handler must not be nil")
		return c
	}
	c.onError = h
	c.errorSet = true
	return c
}

func (c *Check) missingSlots() []string {
	var missing []string
	if !c.permissionSet {
		missing = append(missing, slotRequiredPermission)
	}
	if !c.grantedSet {
		missing = append(missing, slotOnGranted)
	}
	if !c.deniedSet {
		missing = append(missing, slotOnDenied)
	}
	return missing
}

// Execute resolves the check against the authority and dispatches exactly one
// outcome:
//
//  1. A configuration error recorded by a setter, or a reused Check, returns
//     that ConfigError immediately. Never routed to OnError.
//  2. If ctx is already done, the cancellation outcome applies without an
//     authority round-trip.
//  3. The validation gate requires RequirePermission, OnGranted, and OnDenied;
//     the returned ConfigError names every missing slot.
//  4. The authority is queried; true dispatches OnGranted, false OnDenied.
//  5. After dispatch, ctx is re-checked: a cancellation observed by then wins
//     even over a handler that completed successfully.
//
// Cancellation outcome: OnCancelled runs if configured and its nil return
// completes the call normally; otherwise the observed context error is
// returned. Error outcome: OnError runs if configured with the original
// error and its nil return completes the call normally; otherwise the
// original error is returned unchanged.
func (c *Check) Execute(ctx context.Context) error {
	if c == nil || c.engine == nil {
		return ErrEngineNotReady
	}
	e := c.engine
	if ctx == nil {
		ctx = context.Background()
	}

	if c.configErr != nil {
		e.metricInc(MetricCheckConfigRejected)
		return c.configErr
	}
	if c.executed {
		e.metricInc(MetricCheckConfigRejected)
		return &ConfigError{Reason: "check already executed"}
	}
	c.executed = true

	start := time.Now()

	// Pre-check: a caller that has already cancelled gets the cancellation
	// outcome without touching the authority or the granted/denied handlers.
	if err := ctx.Err(); err != nil {
		return c.finishCancelled(ctx, err, start)
	}

	if missing := c.missingSlots(); len(missing) > 0 {
		e.metricInc(MetricCheckConfigRejected)
		return &ConfigError{Missing: missing}
	}

	allowed, err := e.authority.Verify(ctx, c.subjectID, c.permission)
	if err != nil {
		if cause := cancellationOf(ctx, err); cause != nil {
			return c.finishCancelled(ctx, cause, start)
		}
		return c.finishError(ctx, err, start)
	}

	var handlerErr error
	if allowed {
		handlerErr = c.onGranted(ctx)
	} else {
		handlerErr = c.onDenied(ctx)
	}

	// Post-check: cancellation observed during or after dispatch overrides
	// the dispatch outcome, even when the handler completed successfully.
	if err := ctx.Err(); err != nil {
		return c.finishCancelled(ctx, err, start)
	}
	if handlerErr != nil {
		if cause := cancellationOf(ctx, handlerErr); cause != nil {
			return c.finishCancelled(ctx, cause, start)
		}
		return c.finishError(ctx, handlerErr, start)
	}

	outcome := OutcomeDenied
	metric := MetricCheckDenied
	if allowed {
		outcome = OutcomeGranted
		metric = MetricCheckGranted
	}
	e.metricInc(metric)
	e.observeLatency(time.Since(start))
	e.auditDecision(ctx, c, outcome, false, nil)
	e.log.V(1).Info("permission check resolved",
		"subject", c.subjectID, "permission", c.permission, "outcome", outcome)
	return nil
}

// finishCancelled settles the cancellation outcome. cause is the context
// error observed at the checkpoint (or returned by the authority/handler).
func (c *Check) finishCancelled(ctx context.Context, cause error, start time.Time) error {
	e := c.engine
	e.observeLatency(time.Since(start))

	if c.onCancelled == nil {
		e.metricInc(MetricCheckCancelled)
		e.auditDecision(ctx, c, OutcomeCancelled, false, cause)
		e.log.V(1).Info("permission check cancelled",
			"subject", c.subjectID, "permission", c.permission)
		return cause
	}

	if err := c.onCancelled(ctx); err != nil {
		e.metricInc(MetricCheckCancelled)
		e.auditDecision(ctx, c, OutcomeCancelled, false, err)
		return err
	}

	e.metricInc(MetricCheckCancelRecovered)
	e.auditDecision(ctx, c, OutcomeCancelled, true, cause)
	e.log.V(1).Info("permission check cancellation recovered",
		"subject", c.subjectID, "permission", c.permission)
	return nil
}

// finishError settles the operation-error outcome with the original error,
// unwrapped and unmodified.
func (c *Check) finishError(ctx context.Context, cause error, start time.Time) error {
	e := c.engine
	e.observeLatency(time.Since(start))

	if c.onError == nil {
		e.metricInc(MetricCheckError)
		e.auditDecision(ctx, c, OutcomeError, false, cause)
		e.log.Error(cause, "permission check failed",
			"subject", c.subjectID, "permission", c.permission)
		return cause
	}

	if err := c.onError(ctx, cause); err != nil {
		e.metricInc(MetricCheckError)
		e.auditDecision(ctx, c, OutcomeError, false, err)
		return err
	}

	e.metricInc(MetricCheckErrorRecovered)
	e.auditDecision(ctx, c, OutcomeError, true, cause)
	e.log.V(1).Info("permission check error recovered",
		"subject", c.subjectID, "permission", c.permission, "cause", cause.Error())
	return nil
}

// cancellationOf classifies err: it returns the governing cancellation error
// when ctx is done or err itself is a context cancellation, and nil when err
// is an ordinary operation error.
func cancellationOf(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
