package authcore

import (
	"context"
	"time"
)

// Role values recognized by the engine. RoleAdmin unlocks the admin-gated
// operations; everything else behaves as RoleUser.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is the logical account record exchanged with the [AccountStore]
// collaborator. The engine reads and mutates it through the store's
// field-level operations; it never persists anything itself.
type Account struct {
	ID           string
	Email        string
	PasswordHash string

	// RefreshToken is the single currently-valid refresh token for this
	// account, or empty when none is outstanding. Overwritten on every
	// successful login and registration; compared byte-for-byte on refresh.
	RefreshToken string

	Role string

	TwoFactorEnabled bool
	// TwoFactorSecret is the base32-encoded shared secret, present from
	// enrollment start until reset. Never exposed outside provisioning.
	TwoFactorSecret string
	TwoFactorURI    string

	// Version is the optimistic-concurrency counter bumped by stores on
	// every write.
	Version uint64
}

// TwoFactorState is the unit in which two-factor fields are written: the
// store persists all three fields atomically or not at all.
type TwoFactorState struct {
	Enabled bool
	Secret  string
	URI     string
}

// AccountStore is the persistence collaborator. Implementations must make
// RotateRefreshToken an atomic compare-and-swap: two concurrent rotations
// that both read the same prior token must not both succeed.
//
// Lookup misses return [ErrAccountNotFound]; duplicate emails return
// [ErrAccountExists]; a failed swap returns [ErrRefreshTokenMismatch].
// Any other failure is wrapped operator-side and surfaced unchanged.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)

	// SetRefreshToken unconditionally overwrites the refresh token on
	// record, revoking any prior one. Used by login and registration.
	SetRefreshToken(ctx context.Context, id, token string) error
	// RotateRefreshToken replaces previous with next only if previous is
	// the exact value on record.
	RotateRefreshToken(ctx context.Context, id, previous, next string) error

	SaveTwoFactor(ctx context.Context, id string, state TwoFactorState) error
	Delete(ctx context.Context, id string) error
}

// Principal is the authenticated identity produced by [Engine.Authenticate].
type Principal struct {
	AccountID         string
	Role              string
	TwoFactorVerified bool
}

// IssuedToken couples a signed token with its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenPair bundles the short-lived access token and the long-lived
// refresh token minted together on login, registration, and refresh.
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// RegisterResult is returned by [Engine.Register].
type RegisterResult struct {
	AccountID string
	Email     string
	Role      string
	Tokens    TokenPair
}

// TwoFactorProvision holds the base32 secret and otpauth:// URI returned
// by [Engine.BeginTwoFactorEnrollment] for rendering as a scannable code.
type TwoFactorProvision struct {
	Secret string
	URI    string
}
