package authgate

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/calder-io/authgate/jwt"
	"github.com/calder-io/authgate/password"
	"github.com/calder-io/authgate/session"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until the first Engine method call.
type Builder struct {
	config Config
	redis  *redis.Client

	userProvider UserProvider
	sessions     SessionStore
	verification VerificationStore
	auditSink    AuditSink
	clock        func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the default session and
// verification stores.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithUserProvider supplies the credential store. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithSessionStore overrides the default Redis session store, typically
// with an in-memory fake in tests.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessions = store
	return b
}

// WithVerificationStore overrides the default Redis verification store.
func (b *Builder) WithVerificationStore(store VerificationStore) *Builder {
	b.verification = store
	return b
}

// WithAuditSink supplies the audit sink and enables audit dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithClock overrides the engine's time source for deterministic tests.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the collaborators, and returns
// a ready Engine. A Builder is single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider is required")
	}
	if b.redis == nil && (b.sessions == nil || b.verification == nil) {
		return nil, errors.New("redis client required unless both stores are overridden")
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Access: jwt.KeyConfig{
			PrivateKey: cfg.JWT.AccessKey,
			PublicKey:  cfg.JWT.AccessPublicKey,
		},
		Refresh: jwt.KeyConfig{
			PrivateKey: cfg.JWT.RefreshKey,
			PublicKey:  cfg.JWT.RefreshPublicKey,
		},
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		Leeway:     cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	passwordHash, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	sessions := b.sessions
	if sessions == nil {
		sessions = session.NewStore(b.redis, cfg.Session.RedisPrefix)
	}

	verification := b.verification
	if verification == nil {
		verification = newRedisVerificationStore(b.redis, cfg.Verification.RedisPrefix)
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	engine := &Engine{
		config:       cfg,
		userProvider: b.userProvider,
		sessions:     sessions,
		verification: verification,
		jwtManager:   jwtManager,
		passwordHash: passwordHash,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
		clock:        clock,
	}

	b.built = true
	return engine, nil
}
