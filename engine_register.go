package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Register creates a user account and an EMAIL_VERIFICATION code record.
// No tokens are issued at registration: verification is a prerequisite
// enforced by the caller's delivery flow.
//
// The email existence pre-check is advisory; the provider must still
// enforce uniqueness at the write path ([ErrProviderDuplicateEmail]),
// because two concurrent registrations can both pass the pre-check.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e.userProvider == nil || e.passwordHash == nil || e.verification == nil {
		return nil, ErrEngineNotReady
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrRegistrationInvalid, func() map[string]string {
			return map[string]string{
				"email":  req.Email,
				"reason": "missing_field",
			}
		})
		return nil, ErrRegistrationInvalid
	}

	if _, err := e.userProvider.GetUserByEmail(ctx, req.Email); err == nil {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrEmailExists, func() map[string]string {
			return map[string]string{
				"email": req.Email,
			}
		})
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrProviderUserNotFound) {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, func() map[string]string {
			return map[string]string{
				"email":  req.Email,
				"reason": "provider_lookup_failed",
			}
		})
		return nil, err
	}

	passwordHash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"email":  req.Email,
				"reason": "hash_policy",
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	created, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, ErrProviderDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrEmailExists, func() map[string]string {
				return map[string]string{
					"email":  req.Email,
					"reason": "write_path_conflict",
				}
			})
			return nil, ErrEmailExists
		}
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, func() map[string]string {
			return map[string]string{
				"email":  req.Email,
				"reason": "provider_create_failed",
			}
		})
		return nil, err
	}
	req.Password = ""

	verificationID := uuid.NewString()
	record := &VerificationRecord{
		UserID:    created.UserID,
		Type:      VerificationTypeEmail,
		ExpiresAt: e.now().Add(e.config.Verification.TTL),
	}
	if err := e.verification.Save(ctx, verificationID, record); err != nil {
		// The account exists at this point; the caller can request a new
		// code through its own delivery flow, so the failure is surfaced
		// rather than rolled back.
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, created.UserID, "", err, func() map[string]string {
			return map[string]string{
				"email":  req.Email,
				"reason": "verification_save_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.metricInc(MetricVerificationIssued)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, created.UserID, "", nil, func() map[string]string {
		return map[string]string{
			"email": req.Email,
		}
	})
	e.emitAudit(ctx, auditEventVerificationIssued, true, created.UserID, "", nil, nil)

	return &RegisterResult{
		User:           created,
		VerificationID: verificationID,
	}, nil
}
