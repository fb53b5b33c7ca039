package goPermit

import (
	"errors"
	"strings"
)

var (
	// ErrConfiguration is the base error for every configuration misuse:
	// duplicate slot assignment, invalid slot value, or execution with
	// mandatory slots unset. All *ConfigError values unwrap to it.
	ErrConfiguration = errors.New("configuration error")
	// ErrEngineNotReady is returned when an Engine or Check is used before
	// initialization through Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrAuthorityUnavailable wraps backend failures of the bundled
	// authorities (for RedisAuthority, any Redis transport error).
	ErrAuthorityUnavailable = errors.New("permission authority unavailable")
)

// Slot names used in ConfigError messages. The mandatory three are validated
// by Execute; OnCancelled and OnError may remain unset.
const (
	slotRequiredPermission = "Required Permission"
	slotOnGranted          = "OnGranted handler"
	slotOnDenied           = "OnDenied handler"
	slotOnCancelled        = "OnCancelled handler"
	slotOnError            = "OnError handler"
)

// ConfigError reports configuration misuse on a Check or Builder. It is a
// programming-time error, not a runtime outcome: Execute never routes it to
// the OnError handler.
//
// Either Slot/Reason is set (a mutator rejected an assignment) or Missing
// lists every mandatory slot the validation gate found unset.
type ConfigError struct {
	Slot    string
	Reason  string
	Missing []string
}

// Error describes the misuse. For a failed validation gate the message names
// every missing slot, not just the first.
func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return "goPermit: missing configuration: " + strings.Join(e.Missing, ", ")
	}
	if e.Slot == "" {
		return "goPermit: " + e.Reason
	}
	return "goPermit: " + e.Slot + ": " + e.Reason
}

// Unwrap ties every ConfigError to ErrConfiguration so callers can match the
// whole class with errors.Is.
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}
