package goPermit

import (
	"errors"
	"strings"
)

// Config defines the engine-wide settings accepted by Builder.WithConfig.
//
// Config instances are intended to be populated before Build and treated as
// immutable afterwards; the Builder keeps its own copy.
type Config struct {
	Authority AuthorityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
AUTHORITY CONFIG
====================================
*/

// AuthorityConfig configures the bundled RedisAuthority built by
// Builder.WithRedis. It is ignored when an explicit Authority is supplied.
type AuthorityConfig struct {
	// RedisPrefix namespaces every grant-set key. Must match across all
	// processes sharing the grant data. Default "gp".
	RedisPrefix string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous decision-audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking: when the buffer is full the event
	// is counted as dropped instead of back-pressuring Execute.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the lock-free decision counters and the optional
// check-latency histogram.
type MetricsConfig struct {
	Enabled                bool
	EnableLatencyHistogram bool
}

func defaultConfig() Config {
	return Config{
		Authority: AuthorityConfig{
			RedisPrefix: defaultRedisPrefix,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values the engine cannot operate
// with. It is called by Builder.Build; callers normally never invoke it.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Authority.RedisPrefix) == "" {
		return errors.New("authority redis prefix must not be blank")
	}
	if strings.ContainsAny(c.Authority.RedisPrefix, " \t\n") {
		return errors.New("authority redis prefix must not contain whitespace")
	}
	if c.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must not be negative")
	}
	return nil
}
