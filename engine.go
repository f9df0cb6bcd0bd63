package authcore

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/jlindqvist/authcore/internal/audit"
	"github.com/jlindqvist/authcore/internal/rate"
	"github.com/jlindqvist/authcore/jwt"
	"github.com/jlindqvist/authcore/password"
)

// Engine is the credential and session authority. It owns password
// verification, token issuance and rotation, the two-factor state machine,
// and the authentication gate. Construct it through [New]; a zero Engine
// is not usable.
type Engine struct {
	config       Config
	store        AccountStore
	rateLimiter  *rate.Limiter
	audit        *audit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	totp         *totpManager
	jwtManager   *jwt.Manager
}

// Close drains and stops the audit dispatcher. Idempotent.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Register creates an account with role "user", hashes the password, and
// issues an initial token pair whose refresh half is persisted as the
// account's sole valid refresh token.
func (e *Engine) Register(ctx context.Context, email, plainPassword string) (*RegisterResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") || plainPassword == "" {
		return nil, ErrRegistrationInvalid
	}

	hash, err := e.passwordHash.Hash(plainPassword)
	if err != nil {
		return nil, err
	}

	account, err := e.store.Create(ctx, Account{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, AuditRegister, "", email, false, err, nil)
			return nil, ErrAccountExists
		}
		return nil, e.storeErr(err)
	}

	pair, err := e.issueTokenPair(ctx, account, false)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditRegister, account.ID, account.Email, true, nil, nil)

	return &RegisterResult{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
		Tokens:    pair,
	}, nil
}

// Login verifies credentials and issues a fresh token pair. The persisted
// refresh token is overwritten, revoking any previously issued one. When
// the account has two-factor enabled the access token carries
// twoFactorVerified=false and must be upgraded via [Engine.VerifyTwoFactorCode]
// before it passes the full gate.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	ip := clientIPFromContext(ctx)

	if err := e.checkLoginThrottle(ctx, email, ip); err != nil {
		return TokenPair{}, err
	}

	account, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricLoginFailure)
			e.recordLoginFailure(ctx, email, ip)
			e.emitAudit(ctx, AuditLogin, "", email, false, ErrAccountNotFound, nil)
			return TokenPair{}, ErrAccountNotFound
		}
		return TokenPair{}, e.storeErr(err)
	}

	ok, err := e.passwordHash.Verify(plainPassword, account.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.recordLoginFailure(ctx, email, ip)
		e.emitAudit(ctx, AuditLogin, account.ID, account.Email, false, ErrInvalidCredentials, nil)
		return TokenPair{}, ErrInvalidCredentials
	}

	e.maybeUpgradeHash(ctx, account, plainPassword)

	pair, err := e.issueTokenPair(ctx, account, false)
	if err != nil {
		return TokenPair{}, err
	}

	e.resetLoginThrottle(ctx, email, ip)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLogin, account.ID, account.Email, true, nil, nil)

	return pair, nil
}

// Refresh rotates a refresh token. The presented token must verify against
// the refresh secret and byte-match the account's stored value; the match
// and the swap to the newly issued token happen as one atomic store
// operation, so after a successful rotation the consumed token is revoked
// and a concurrent rotation with the same token loses with
// [ErrTokenRevoked]. The new access token always carries
// twoFactorVerified=false: step-up must be re-proven after each renewal.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, e.tokenErr(err)
	}

	account, err := e.store.FindByID(ctx, claims.UID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		if errors.Is(err, ErrAccountNotFound) {
			return TokenPair{}, ErrAccountNotFound
		}
		return TokenPair{}, e.storeErr(err)
	}

	access, accessExp, err := e.jwtManager.CreateAccess(account.ID, account.Role, account.TwoFactorEnabled, false)
	if err != nil {
		return TokenPair{}, err
	}
	nextRefresh, refreshExp, err := e.jwtManager.CreateRefresh(account.ID)
	if err != nil {
		return TokenPair{}, err
	}

	if err := e.store.RotateRefreshToken(ctx, account.ID, refreshToken, nextRefresh); err != nil {
		switch {
		case errors.Is(err, ErrRefreshTokenMismatch):
			e.metricInc(MetricRefreshRevoked)
			e.emitAudit(ctx, AuditRefreshRevoked, account.ID, account.Email, false, ErrTokenRevoked, nil)
			return TokenPair{}, ErrTokenRevoked
		case errors.Is(err, ErrAccountNotFound):
			e.metricInc(MetricRefreshFailure)
			return TokenPair{}, ErrAccountNotFound
		default:
			e.metricInc(MetricRefreshFailure)
			return TokenPair{}, e.storeErr(err)
		}
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditRefresh, account.ID, account.Email, true, nil, nil)

	return TokenPair{
		Access:  IssuedToken{Token: access, ExpiresAt: accessExp},
		Refresh: IssuedToken{Token: nextRefresh, ExpiresAt: refreshExp},
	}, nil
}

// DeleteAccount removes an account. The caller's access token must pass
// the full gate; deleting another account requires the admin role.
func (e *Engine) DeleteAccount(ctx context.Context, accessToken, accountID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	principal, err := e.Authenticate(ctx, accessToken)
	if err != nil {
		return err
	}
	if principal.AccountID != accountID && principal.Role != RoleAdmin {
		return ErrForbidden
	}

	if err := e.store.Delete(ctx, accountID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return e.storeErr(err)
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, AuditAccountDeleted, accountID, "", true, nil, map[string]string{
		"deleted_by": principal.AccountID,
	})

	return nil
}

// issueTokenPair creates both tokens and persists the refresh half as the
// account's single valid refresh token.
func (e *Engine) issueTokenPair(ctx context.Context, account Account, twoFactorVerified bool) (TokenPair, error) {
	access, accessExp, err := e.jwtManager.CreateAccess(account.ID, account.Role, account.TwoFactorEnabled, twoFactorVerified)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, refreshExp, err := e.jwtManager.CreateRefresh(account.ID)
	if err != nil {
		return TokenPair{}, err
	}

	if err := e.store.SetRefreshToken(ctx, account.ID, refresh); err != nil {
		return TokenPair{}, e.storeErr(err)
	}

	return TokenPair{
		Access:  IssuedToken{Token: access, ExpiresAt: accessExp},
		Refresh: IssuedToken{Token: refresh, ExpiresAt: refreshExp},
	}, nil
}

// maybeUpgradeHash rehashes with current parameters after a successful
// verify. Best effort: a failure here never fails the login.
func (e *Engine) maybeUpgradeHash(ctx context.Context, account Account, plainPassword string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	needs, err := e.passwordHash.NeedsUpgrade(account.PasswordHash)
	if err != nil || !needs {
		return
	}

	hash, err := e.passwordHash.Hash(plainPassword)
	if err != nil {
		log.Printf("authcore: password hash upgrade failed for account %s: %v", account.ID, err)
		return
	}

	account.PasswordHash = hash
	if err := e.saveAccountHash(ctx, account); err != nil {
		log.Printf("authcore: password hash upgrade persist failed for account %s: %v", account.ID, err)
	}
}

func (e *Engine) saveAccountHash(ctx context.Context, account Account) error {
	type hashSaver interface {
		SetPasswordHash(ctx context.Context, id, hash string) error
	}
	if s, ok := e.store.(hashSaver); ok {
		return s.SetPasswordHash(ctx, account.ID, account.PasswordHash)
	}
	return nil
}

func (e *Engine) checkLoginThrottle(ctx context.Context, email, ip string) error {
	if e.rateLimiter == nil {
		return nil
	}

	err := e.rateLimiter.CheckLogin(ctx, email, ip)
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(MetricLoginRateLimited)
		return ErrLoginRateLimited
	}
	return e.storeErr(err)
}

func (e *Engine) recordLoginFailure(ctx context.Context, email, ip string) {
	if e.rateLimiter == nil {
		return
	}
	if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		log.Printf("authcore: login throttle increment failed: %v", err)
	}
}

func (e *Engine) resetLoginThrottle(ctx context.Context, email, ip string) {
	if e.rateLimiter == nil {
		return
	}
	if err := e.rateLimiter.ResetLogin(ctx, email, ip); err != nil {
		log.Printf("authcore: login throttle reset failed: %v", err)
	}
}

// tokenErr maps jwt parse failures to the engine taxonomy, keeping the
// expired and malformed cases distinct.
func (e *Engine) tokenErr(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrMalformed):
		return ErrTokenMalformed
	default:
		return ErrTokenMalformed
	}
}

// storeErr wraps unexpected storage failures as [ErrStoreUnavailable] so
// callers never conflate outages with not-found.
func (e *Engine) storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrAccountExists) ||
		errors.Is(err, ErrRefreshTokenMismatch) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}
