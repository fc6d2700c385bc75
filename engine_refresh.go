package authgate

import (
	"context"
	"errors"

	"github.com/calder-io/authgate/session"
)

// Refresh implements sliding-window rotation. The token is verified before
// any store access; a verified token then stands or falls with its backing
// session. When the session's remaining validity is at or below the
// rotation threshold, the session is extended to now + refresh TTL and a
// new refresh token is issued; otherwise the caller keeps its current one.
// A fresh access token is issued either way.
//
// Two concurrent calls near the threshold can both rotate, leaving two
// valid refresh tokens for one session. That race is accepted: both tokens
// point at the same session, so revoking the session kills both.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e.jwtManager == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "verify_failed",
			}
		})
		return nil, ErrRefreshInvalid
	}

	sess, err := e.sessions.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", claims.SID, ErrSessionNotFound, func() map[string]string {
				return map[string]string{
					"reason": "session_not_found",
				}
			})
			return nil, ErrSessionNotFound
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", claims.SID, err, func() map[string]string {
			return map[string]string{
				"reason": "session_lookup_failed",
			}
		})
		return nil, err
	}

	now := e.now()
	if sess.Expired(now) {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, sess.UserID, sess.SessionID, ErrSessionExpired, func() map[string]string {
			return map[string]string{
				"reason": "session_expired",
			}
		})
		return nil, ErrSessionExpired
	}

	result := &RefreshResult{}

	if sess.Remaining(now) <= e.config.JWT.RotationThreshold {
		// Extend before signing: a failure between the two leaves a
		// longer-lived session with no new token, never a token whose
		// session was not extended.
		sess.ExpiresAt = now.Add(e.config.JWT.RefreshTTL).Unix()
		if err := e.sessions.Save(ctx, sess); err != nil {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, sess.UserID, sess.SessionID, err, func() map[string]string {
				return map[string]string{
					"reason": "extend_failed",
				}
			})
			return nil, err
		}

		rotated, err := e.jwtManager.CreateRefresh(sess.SessionID)
		if err != nil {
			e.metricInc(MetricRefreshFailure)
			return nil, err
		}
		result.RefreshToken = rotated
		result.Rotated = true
	}

	access, err := e.jwtManager.CreateAccess(sess.UserID, sess.SessionID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	result.AccessToken = access

	e.metricInc(MetricRefreshSuccess)
	if result.Rotated {
		e.metricInc(MetricRefreshRotated)
		e.emitAudit(ctx, auditEventRefreshRotated, true, sess.UserID, sess.SessionID, nil, nil)
	} else {
		e.emitAudit(ctx, auditEventRefreshSuccess, true, sess.UserID, sess.SessionID, nil, nil)
	}

	return result, nil
}
