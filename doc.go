// Package goPermit provides one-shot permission decision contexts: a caller
// declares, once, which permission an operation requires and what should
// happen on each of four outcomes (granted, denied, cancelled, or failed),
// then executes the check and reacts exactly once to the outcome that
// actually occurred.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. A [Check] obtained from [Engine.Check] is a single-owner
// object: it is configured by one goroutine and executed once.
//
// # Architecture boundaries
//
// goPermit is the public surface. It exposes [Engine], [Builder], [Check],
// [Authority] implementations, and value types (Config, DecisionEvent,
// MetricsSnapshot). The permission-storage backend is consumed only through
// the [Authority] contract; [StaticAuthority] and [RedisAuthority] are the
// bundled implementations.
//
// # What this package must NOT do
//
//   - Retry, cache, or compose permission checks (one permission, one
//     authority round-trip per Execute).
//   - Terminate handlers forcibly: cancellation is cooperative and
//     context-based, checked before the authority query and after dispatch.
//   - Expose Redis clients or audit dispatch internals in its public API.
//
// # Outcome contract
//
// Per Execute, exactly one of the granted/denied handlers runs, and at most
// one of the cancelled/error handlers; the two families are mutually
// exclusive. Configuration misuse (duplicate or missing slots) is a
// [ConfigError] and always surfaces to the caller directly; it is never
// redirected to the error handler.
package goPermit
