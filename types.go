package authgate

import (
	"context"
	"time"

	"github.com/calder-io/authgate/session"
)

// UserRecord is the account record exchanged with a [UserProvider]. It
// carries the credential hash and the MFA preference flag; the engine never
// sees or stores plaintext passwords.
type UserRecord struct {
	UserID       string
	Name         string
	Email        string
	PasswordHash string
	Enable2FA    bool
	CreatedAt    time.Time
}

// CreateUserInput is the input for [UserProvider.CreateUser]. PasswordHash
// is already computed by the engine's password hasher.
type CreateUserInput struct {
	Name         string
	Email        string
	PasswordHash string
}

// UserProvider is the credential store interface callers must implement to
// integrate authgate with their user database. GetUserByEmail must return
// [ErrProviderUserNotFound] on a miss; CreateUser must enforce email
// uniqueness at the write path and return [ErrProviderDuplicateEmail] on
// conflict, because the engine's existence pre-check is inherently racy.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
}

// SessionStore persists session records. The default implementation is the
// Redis-backed [session.Store]; the interface exists so the lifecycle rules
// can be tested against an in-memory fake.
//
// Save must create or overwrite the record and bound its storage lifetime by
// Session.ExpiresAt. Get must return [session.ErrNotFound] when the record
// is absent.
type SessionStore interface {
	Save(ctx context.Context, s *session.Session) error
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Delete(ctx context.Context, sessionID string) error
	ActiveCount(ctx context.Context, userID string) (int, error)
}

// VerificationTypeEmail tags verification codes created at registration.
const VerificationTypeEmail = "email_verification"

// VerificationRecord is a pending verification challenge. Delivery of the
// code to the user is out of scope; the engine only creates and consumes the
// record.
type VerificationRecord struct {
	UserID    string
	Type      string
	ExpiresAt time.Time
}

// VerificationStore persists verification codes keyed by their challenge id.
// Consume must be single-use: a successful read removes the record.
type VerificationStore interface {
	Save(ctx context.Context, id string, rec *VerificationRecord) error
	Consume(ctx context.Context, id string) (*VerificationRecord, error)
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// RegisterResult is returned by [Engine.Register]. VerificationID names the
// EMAIL_VERIFICATION record created for the new user; the caller is
// responsible for delivering it.
type RegisterResult struct {
	User           UserRecord
	VerificationID string
}

// LoginResult is the tagged outcome of [Engine.Login]. When MFARequired is
// true no session was created and both token fields are empty: the caller
// must drive a separate MFA challenge flow before a session can exist.
type LoginResult struct {
	User         *UserRecord
	AccessToken  string
	RefreshToken string
	MFARequired  bool
}

// RefreshResult is returned by [Engine.Refresh]. RefreshToken is set only
// when Rotated is true; otherwise the caller keeps using its existing
// refresh token.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	Rotated      bool
}

// AuthResult is returned by [Engine.ValidateAccess].
type AuthResult struct {
	UserID    string
	SessionID string
}
