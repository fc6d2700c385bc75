package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature algorithm used for both token kinds.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// KeyConfig holds the key material for one token kind. For hs256,
// PrivateKey is the shared secret and PublicKey is unused. For ed25519,
// PrivateKey signs and PublicKey verifies; verify-only deployments may
// leave PrivateKey empty.
type KeyConfig struct {
	PrivateKey []byte
	PublicKey  []byte
}

// Config defines the signing options for both token kinds.
type Config struct {
	SigningMethod SigningMethod

	Access  KeyConfig
	Refresh KeyConfig

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Manager is the token codec. It is immutable after construction and safe
// for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UID string `json:"uid"`
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. It carries no user id:
// the token is scoped to its session, so deleting the session alone
// invalidates it.
type RefreshClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Access.PrivateKey) == 0 || len(cfg.Refresh.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires a secret per token kind")
		}
		if string(cfg.Access.PrivateKey) == string(cfg.Refresh.PrivateKey) {
			return nil, errors.New("access and refresh secrets must differ")
		}
	case MethodEd25519:
		for _, kc := range []KeyConfig{cfg.Access, cfg.Refresh} {
			if len(kc.PrivateKey) > 0 {
				if _, err := parseEdPrivateKey(kc.PrivateKey); err != nil {
					return nil, err
				}
			}
			if len(kc.PublicKey) == 0 {
				return nil, errors.New("ed25519 requires a public key per token kind")
			}
			if _, err := parseEdPublicKey(kc.PublicKey); err != nil {
				return nil, err
			}
		}
		if string(cfg.Access.PublicKey) == string(cfg.Refresh.PublicKey) {
			return nil, errors.New("access and refresh key pairs must differ")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg, now: time.Now}, nil
}

// CreateAccess signs an access token embedding the user and session ids.
func (j *Manager) CreateAccess(uid, sid string) (string, error) {
	claims := AccessClaims{
		UID:              uid,
		SID:              sid,
		RegisteredClaims: j.registered(j.config.AccessTTL),
	}
	return j.sign(claims, j.config.Access)
}

// CreateRefresh signs a refresh token embedding the session id only.
func (j *Manager) CreateRefresh(sid string) (string, error) {
	claims := RefreshClaims{
		SID:              sid,
		RegisteredClaims: j.registered(j.config.RefreshTTL),
	}
	return j.sign(claims, j.config.Refresh)
}

// ParseAccess verifies tokenStr under the access-token options and returns
// its claims. Signature mismatch, malformed structure, and expiration all
// fail; there is no partial success.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, j.config.Access); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies tokenStr under the refresh-token options and
// returns its claims.
func (j *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, j.config.Refresh); err != nil {
		return nil, err
	}
	return claims, nil
}

func (j *Manager) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := j.now()
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    j.config.Issuer,
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}
	return claims
}

func (j *Manager) sign(claims jwt.Claims, key KeyConfig) (string, error) {
	token := jwt.NewWithClaims(j.method(), claims)

	signKey, err := j.signKey(key)
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

func (j *Manager) parse(tokenStr string, claims jwt.Claims, key KeyConfig) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return j.verifyKey(key)
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

func (j *Manager) method() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) signKey(key KeyConfig) (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return key.PrivateKey, nil
	default:
		return parseEdPrivateKey(key.PrivateKey)
	}
}

func (j *Manager) verifyKey(key KeyConfig) (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return key.PrivateKey, nil
	default:
		return parseEdPublicKey(key.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
