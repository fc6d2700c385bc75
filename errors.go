package authgate

import "errors"

// ErrorKind classifies a failure for transport mapping. BadRequest failures
// are client-correctable; Unauthorized failures are terminal for the
// presented credential and require re-authentication.
type ErrorKind uint8

const (
	// KindBadRequest marks client-correctable failures (duplicate email,
	// invalid credentials, malformed input).
	KindBadRequest ErrorKind = iota + 1
	// KindUnauthorized marks token or session failures (invalid, expired,
	// missing).
	KindUnauthorized
)

// Error is the typed failure surfaced by every Engine operation. It carries
// a stable machine-readable Code alongside the human message; match with
// [errors.Is] against the exported sentinel values.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrEmailExists is returned by Register when the email is already taken,
	// whether detected by the pre-check or by the provider's uniqueness
	// constraint at the write path.
	ErrEmailExists = &Error{Kind: KindBadRequest, Code: "AUTH_EMAIL_ALREADY_EXISTS", Message: "email already exists"}

	// ErrInvalidCredentials is returned by Login for both an unknown email
	// and a wrong password; distinguishing the two would allow account
	// enumeration.
	ErrInvalidCredentials = &Error{Kind: KindBadRequest, Code: "AUTH_USER_NOT_FOUND", Message: "invalid email or password"}

	// ErrRegistrationInvalid is returned by Register when a required field
	// is missing.
	ErrRegistrationInvalid = &Error{Kind: KindBadRequest, Code: "AUTH_REGISTRATION_INVALID", Message: "invalid registration request"}

	// ErrPasswordPolicy is returned when the submitted password fails the
	// hashing layer's minimum requirements.
	ErrPasswordPolicy = &Error{Kind: KindBadRequest, Code: "AUTH_PASSWORD_POLICY", Message: "password policy violation"}

	// ErrRefreshInvalid is returned by Refresh when the token is malformed,
	// wrongly signed, or expired. No store lookup happens in this case.
	ErrRefreshInvalid = &Error{Kind: KindUnauthorized, Code: "AUTH_REFRESH_INVALID", Message: "invalid refresh token"}

	// ErrSessionNotFound is returned when the session a token points at no
	// longer exists.
	ErrSessionNotFound = &Error{Kind: KindUnauthorized, Code: "AUTH_SESSION_NOT_FOUND", Message: "session does not exist"}

	// ErrSessionExpired is returned when the session record exists but its
	// expiration has passed. The caller must re-authenticate.
	ErrSessionExpired = &Error{Kind: KindUnauthorized, Code: "AUTH_SESSION_EXPIRED", Message: "session expired"}

	// ErrTokenInvalid is returned by ValidateAccess for any access token
	// that fails signature, structure, or expiration checks.
	ErrTokenInvalid = &Error{Kind: KindUnauthorized, Code: "AUTH_TOKEN_INVALID", Message: "invalid token"}

	// ErrVerificationInvalid covers unknown, expired, and already-consumed
	// verification codes.
	ErrVerificationInvalid = &Error{Kind: KindBadRequest, Code: "AUTH_VERIFICATION_INVALID", Message: "verification code invalid or expired"}
)

var (
	// ErrProviderUserNotFound must be returned by [UserProvider.GetUserByEmail]
	// when no user has the given email.
	ErrProviderUserNotFound = errors.New("provider: user not found")
	// ErrProviderDuplicateEmail must be returned by [UserProvider.CreateUser]
	// when the email uniqueness constraint fires.
	ErrProviderDuplicateEmail = errors.New("provider: duplicate email")

	// ErrEngineNotReady is returned when an Engine is used before Build
	// wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrSessionCreationFailed wraps store failures during login session setup.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrVerificationUnavailable wraps store failures in the verification
	// code path.
	ErrVerificationUnavailable = errors.New("verification backend unavailable")
)
