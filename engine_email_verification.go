package authgate

import (
	"context"
	"errors"
)

// ConfirmEmailVerification consumes a verification code issued at
// registration and returns the owning user id. Codes are single-use:
// consumption removes the record whether or not it is still valid.
func (e *Engine) ConfirmEmailVerification(ctx context.Context, verificationID string) (string, error) {
	if e.verification == nil {
		return "", ErrEngineNotReady
	}
	if verificationID == "" {
		return "", ErrVerificationInvalid
	}

	rec, err := e.verification.Consume(ctx, verificationID)
	if err != nil {
		if errors.Is(err, errVerificationNotFound) {
			e.metricInc(MetricVerificationFailure)
			e.emitAudit(ctx, auditEventVerificationConfirm, false, "", "", ErrVerificationInvalid, func() map[string]string {
				return map[string]string{
					"reason": "not_found",
				}
			})
			return "", ErrVerificationInvalid
		}
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, "", "", err, nil)
		return "", err
	}

	if rec.Type != VerificationTypeEmail {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, rec.UserID, "", ErrVerificationInvalid, func() map[string]string {
			return map[string]string{
				"reason": "type_mismatch",
			}
		})
		return "", ErrVerificationInvalid
	}

	if !e.now().Before(rec.ExpiresAt) {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, rec.UserID, "", ErrVerificationInvalid, func() map[string]string {
			return map[string]string{
				"reason": "expired",
			}
		})
		return "", ErrVerificationInvalid
	}

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, rec.UserID, "", nil, nil)
	return rec.UserID, nil
}
