package authcore

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the password does not
	// match. An unknown email is ErrAccountNotFound; callers that want the
	// two indistinguishable map both to one response.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned for an unknown login email and when an
	// account referenced by a valid token no longer exists in the store.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned by Register when the email is already
	// taken (comparison is case-insensitive).
	ErrAccountExists = errors.New("account already exists")
	// ErrRegistrationInvalid is returned by Register for empty or otherwise
	// unusable email/password input.
	ErrRegistrationInvalid = errors.New("invalid registration request")

	// ErrTokenExpired is returned when a token's signature verifies but its
	// expiry has passed. Callers retry with a refresh token (access class)
	// or re-authenticate (refresh class).
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned for tokens that fail to decode or whose
	// signature does not verify against the expected secret.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenRevoked is returned by Refresh when the submitted token is
	// validly signed but is no longer the one on record for the account:
	// a newer refresh token has superseded it.
	ErrTokenRevoked = errors.New("refresh token revoked")
	// ErrRefreshTokenMismatch is the store-level compare-and-swap failure
	// underlying ErrTokenRevoked. Store implementations return it from
	// RotateRefreshToken; the engine translates.
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")

	// ErrTwoFactorCodeInvalid is returned when a submitted one-time code
	// does not match any code inside the configured skew window.
	ErrTwoFactorCodeInvalid = errors.New("invalid two-factor code")
	// ErrTwoFactorNotEnrolled is returned when a code is submitted before
	// enrollment has produced a shared secret.
	ErrTwoFactorNotEnrolled = errors.New("two-factor enrollment not started")

	// ErrUnauthorized covers a missing bearer value, a rejected token, and
	// an unmet step-up requirement.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller is authenticated but lacks
	// the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrLoginRateLimited is returned when the login throttle budget for an
	// email or client IP is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrStoreUnavailable wraps storage failures. It is never conflated
	// with ErrAccountNotFound.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrEngineNotReady is returned when a method is called on an engine
	// that was not constructed through Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
