package authgate

import (
	"context"
	"errors"
	"time"

	"github.com/calder-io/authgate/jwt"
	"github.com/calder-io/authgate/password"
	"github.com/calder-io/authgate/session"
)

// Engine is the session/token lifecycle orchestrator. All collaborators
// are injected at construction through [Builder.Build]; an Engine is
// immutable afterwards and safe for concurrent use.
type Engine struct {
	config       Config
	userProvider UserProvider
	sessions     SessionStore
	verification VerificationStore
	jwtManager   *jwt.Manager
	passwordHash *password.Argon2
	audit        *auditDispatcher
	metrics      *Metrics

	// clock supplies the engine's notion of now. Injectable so the
	// rotation threshold and TTL rules are deterministically testable.
	clock func() time.Time
}

// Close flushes and stops the audit dispatcher. The Engine must not be
// used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

// ValidateAccess verifies an access token and returns the authenticated
// identity. With [SecurityConfig.StrictValidation] enabled it additionally
// confirms the backing session still exists and is unexpired.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenInvalid
	}

	if e.config.Security.StrictValidation {
		sess, err := e.sessions.Get(ctx, claims.SID)
		if errors.Is(err, session.ErrNotFound) {
			e.metricInc(MetricValidateFailure)
			return nil, ErrSessionNotFound
		}
		if err != nil {
			e.metricInc(MetricValidateFailure)
			return nil, err
		}
		if sess.Expired(e.now()) {
			e.metricInc(MetricValidateFailure)
			return nil, ErrSessionExpired
		}
	}

	e.metricInc(MetricValidateSuccess)
	return &AuthResult{
		UserID:    claims.UID,
		SessionID: claims.SID,
	}, nil
}

// Logout deletes the session record. The session model carries no revoked
// flag: revocation is deletion, after which every refresh token scoped to
// the session is dead.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if e.sessions == nil {
		return ErrEngineNotReady
	}

	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventLogoutSession, true, "", sessionID, nil, nil)
	return nil
}

// ActiveSessionCount reports the number of live sessions for a user.
func (e *Engine) ActiveSessionCount(ctx context.Context, userID string) (int, error) {
	if e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessions.ActiveCount(ctx, userID)
}
