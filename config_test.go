package goPermit

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Authority.RedisPrefix != defaultRedisPrefix {
		t.Fatalf("RedisPrefix = %q, want %q", cfg.Authority.RedisPrefix, defaultRedisPrefix)
	}
	if !cfg.Audit.Enabled || cfg.Audit.BufferSize <= 0 || !cfg.Audit.DropIfFull {
		t.Fatalf("unexpected audit defaults: %+v", cfg.Audit)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.EnableLatencyHistogram {
		t.Fatalf("unexpected metrics defaults: %+v", cfg.Metrics)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
}

func TestValidateRejectsBlankPrefix(t *testing.T) {
	for _, prefix := range []string{"", "  ", "a b"} {
		cfg := defaultConfig()
		cfg.Authority.RedisPrefix = prefix
		if err := cfg.Validate(); err == nil {
			t.Fatalf("Validate accepted prefix %q", prefix)
		}
	}
}

func TestValidateRejectsNegativeAuditBuffer(t *testing.T) {
	cfg := defaultConfig()
	cfg.Audit.BufferSize = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted a negative audit buffer size")
	}
}
