package authgate

import (
	"bytes"
	"errors"
	"time"
)

// Config is the full engine configuration. Zero values are filled in from
// [DefaultConfig] by the [Builder]; Build rejects configurations that fail
// validation instead of degrading silently.
type Config struct {
	JWT          JWTConfig
	Session      SessionConfig
	Password     PasswordConfig
	Verification VerificationConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Security     SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls the token codec. Access and refresh tokens are signed
// under distinct key material so that one kind can never verify as the
// other.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RotationThreshold is the sliding-window bound: a refresh call whose
	// session has at most this much validity left rotates the refresh token
	// and extends the session.
	RotationThreshold time.Duration

	SigningMethod string // "hs256" (default) or "ed25519"

	AccessKey  []byte // hs256 secret, or ed25519 private key
	RefreshKey []byte

	// Ed25519 verification keys; unused for hs256.
	AccessPublicKey  []byte
	RefreshPublicKey []byte

	Issuer   string
	Audience string
	Leeway   time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis-backed session store.
type SessionConfig struct {
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id parameters, in the units the argon2
// primitive expects (Memory in KB).
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig controls the email-verification code records created
// at registration.
type VerificationConfig struct {
	TTL         time.Duration
	RedisPrefix string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters. Disabled metrics are
// no-ops with zero allocation on the hot paths.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds cross-cutting policy switches.
type SecurityConfig struct {
	// StrictValidation makes ValidateAccess confirm the backing session
	// still exists and is unexpired, at the cost of a store round-trip.
	StrictValidation bool
}

// DefaultConfig returns the baseline configuration: 15 minute access
// tokens, 7 day refresh tokens, a one-day rotation threshold, and 45 minute
// verification codes.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:         15 * time.Minute,
			RefreshTTL:        7 * 24 * time.Hour,
			RotationThreshold: 24 * time.Hour,
			SigningMethod:     "hs256",
			Leeway:            30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "ag",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Verification: VerificationConfig{
			TTL:         45 * time.Minute,
			RedisPrefix: "agv",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessKey = bytes.Clone(cfg.JWT.AccessKey)
	out.JWT.RefreshKey = bytes.Clone(cfg.JWT.RefreshKey)
	out.JWT.AccessPublicKey = bytes.Clone(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshPublicKey = bytes.Clone(cfg.JWT.RefreshPublicKey)
	return out
}

func validateConfig(cfg Config) error {
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return errors.New("access and refresh TTLs must be positive")
	}
	if cfg.JWT.AccessTTL >= cfg.JWT.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}
	if cfg.JWT.RotationThreshold <= 0 || cfg.JWT.RotationThreshold >= cfg.JWT.RefreshTTL {
		return errors.New("rotation threshold must be positive and shorter than refresh TTL")
	}
	if len(cfg.JWT.AccessKey) == 0 || len(cfg.JWT.RefreshKey) == 0 {
		return errors.New("access and refresh signing keys are required")
	}
	if bytes.Equal(cfg.JWT.AccessKey, cfg.JWT.RefreshKey) {
		// Shared key material would let an access token verify as a refresh
		// token; the per-kind signing invariant depends on distinct keys.
		return errors.New("access and refresh signing keys must differ")
	}
	if cfg.Verification.TTL <= 0 {
		return errors.New("verification TTL must be positive")
	}
	if cfg.Session.RedisPrefix == "" {
		return errors.New("session redis prefix must not be empty")
	}
	return nil
}
