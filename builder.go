package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/jlindqvist/authcore/internal/audit"
	"github.com/jlindqvist/authcore/internal/rate"
	"github.com/jlindqvist/authcore/jwt"
	"github.com/jlindqvist/authcore/password"
)

// Builder assembles an [Engine]. Chain the With* methods and finish with
// [Builder.Build]; a builder is single-use.
type Builder struct {
	config    Config
	store     AccountStore
	redis     redis.UniversalClient
	auditSink AuditSink

	built bool
}

// New starts a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the account persistence backend. Required.
func (b *Builder) WithStore(store AccountStore) *Builder {
	b.store = store
	return b
}

// WithRedis sets the Redis client used by the login throttle. Required
// only when Throttle.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events. Takes effect only
// when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the gate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("account store required")
	}
	if cfg.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("login throttle requires a redis client")
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Throttle.Enabled {
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Throttle.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Throttle.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Throttle.LoginCooldown,
		})
	}

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return &Engine{
		config:       cfg,
		store:        b.store,
		rateLimiter:  limiter,
		audit:        dispatcher,
		metrics:      NewMetrics(cfg.Metrics),
		passwordHash: hasher,
		totp:         newTOTPManager(cfg.TOTP),
		jwtManager:   jwtManager,
	}, nil
}
