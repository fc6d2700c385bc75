package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/calder-io/authgate/session"
)

// Login verifies credentials and, unless the user's MFA flag gates it,
// creates a session and issues a token pair.
//
// An unknown email and a wrong password produce the identical
// [ErrInvalidCredentials] failure; distinct answers would let a caller
// probe which emails have accounts.
func (e *Engine) Login(ctx context.Context, email, pass, userAgent string) (*LoginResult, error) {
	if e.userProvider == nil || e.passwordHash == nil || e.sessions == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	if email == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "empty_input",
			}
		})
		return nil, ErrInvalidCredentials
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "user_not_found",
			}
		})
		return nil, ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "password_mismatch",
			}
		})
		return nil, ErrInvalidCredentials
	}
	pass = ""

	if user.Enable2FA {
		// No session exists in this branch. The caller must complete a
		// separate MFA challenge flow before tokens can be issued.
		e.metricInc(MetricLoginMFARequired)
		e.emitAudit(ctx, auditEventLoginMFARequired, true, user.UserID, "", nil, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return &LoginResult{MFARequired: true}, nil
	}

	now := e.now()
	sess := &session.Session{
		SessionID: uuid.NewString(),
		UserID:    user.UserID,
		UserAgent: userAgent,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(e.config.JWT.RefreshTTL).Unix(),
	}

	if err := e.sessions.Save(ctx, sess); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, sess.SessionID, ErrSessionCreationFailed, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "session_save_failed",
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	e.metricInc(MetricSessionCreated)

	accessToken, err := e.jwtManager.CreateAccess(user.UserID, sess.SessionID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	refreshToken, err := e.jwtManager.CreateRefresh(sess.SessionID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, sess.SessionID, nil, nil)

	return &LoginResult{
		User:         &user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
