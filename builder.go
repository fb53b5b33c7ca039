package goPermit

import (
	"errors"
	stdlog "log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Configure it with the With* methods, then call
// Build once; a Builder is not reusable.
type Builder struct {
	config    Config
	redis     *redis.Client
	authority Authority
	sink      AuditSink
	log       logr.Logger
	logSet    bool

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithAuthority sets the permission authority the engine queries. Takes
// precedence over WithRedis.
func (b *Builder) WithAuthority(a Authority) *Builder {
	b.authority = a
	return b
}

// WithRedis supplies a Redis client. When no explicit Authority is set, Build
// wraps the client in a RedisAuthority using Config.Authority.RedisPrefix.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the sink receiving decision events. Defaults to NoOpSink
// when auditing is enabled without a sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the engine logger. Defaults to a stdr logger on stderr.
func (b *Builder) WithLogger(l logr.Logger) *Builder {
	b.log = l
	b.logSet = true
	return b
}

// WithMetricsEnabled toggles decision counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistogram toggles the check-latency histogram.
func (b *Builder) WithLatencyHistogram(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistogram = enabled
	return b
}

// Build validates the configuration and assembles the Engine. A Builder may
// Build only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	authority := b.authority
	if authority == nil {
		if b.redis == nil {
			return nil, errors.New("authority or redis client required")
		}
		authority = NewRedisAuthority(b.redis, cfg.Authority.RedisPrefix)
	}

	logger := b.log
	if !b.logSet {
		logger = stdr.New(stdlog.New(os.Stderr, "", stdlog.LstdFlags|stdlog.Lshortfile))
	}

	engine := &Engine{
		config:    cfg,
		authority: authority,
		audit:     newAuditDispatcher(cfg.Audit, b.sink),
		metrics:   NewMetrics(cfg.Metrics),
		log:       logger.WithName("goPermit"),
	}

	b.built = true

	return engine, nil
}
