package goPermit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// DecisionOutcome names the terminal state of one executed check.
type DecisionOutcome string

const (
	// OutcomeGranted means the authority answered true and the granted
	// handler completed.
	OutcomeGranted DecisionOutcome = "granted"
	// OutcomeDenied means the authority answered false and the denied
	// handler completed.
	OutcomeDenied DecisionOutcome = "denied"
	// OutcomeCancelled means a cancellation was observed at a checkpoint.
	OutcomeCancelled DecisionOutcome = "cancelled"
	// OutcomeError means the authority query or a dispatch handler failed.
	OutcomeError DecisionOutcome = "error"
)

// DecisionEvent is the audit record emitted once per executed check.
// Recovered marks a cancelled/error outcome that a configured handler
// absorbed, so the caller saw a normal completion.
type DecisionEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	SubjectID  string            `json:"subject_id"`
	Permission string            `json:"permission,omitempty"`
	Outcome    DecisionOutcome   `json:"outcome"`
	Recovered  bool              `json:"recovered,omitempty"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives decision events from the engine's dispatcher. Emit runs
// on the dispatcher goroutine and must not panic; a slow sink delays only the
// audit stream, never Execute.
type AuditSink interface {
	Emit(ctx context.Context, event DecisionEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit discards the event.
func (NoOpSink) Emit(context.Context, DecisionEvent) {}

// ChannelSink forwards events to a buffered channel, for consumers that want
// to range over the audit stream.
type ChannelSink struct {
	events chan DecisionEvent
}

// NewChannelSink creates a ChannelSink with the given buffer (minimum 1).
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan DecisionEvent, buffer),
	}
}

// Emit forwards the event, giving up when ctx is done.
func (s *ChannelSink) Emit(ctx context.Context, event DecisionEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the stream for consumption.
func (s *ChannelSink) Events() <-chan DecisionEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line to an io.Writer. Writes are
// serialized; encoding failures drop the event silently.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink wraps w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit marshals and writes the event followed by a newline.
func (s *JSONWriterSink) Emit(ctx context.Context, event DecisionEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
