package authcore

import (
	"context"
	"errors"
	"time"
)

// BeginTwoFactorEnrollment generates a fresh shared secret for the
// caller's account and stores it unconfirmed: TwoFactorEnabled stays as it
// was until a code verifies. Any valid access token is accepted here, a
// pending step-up one included, since a freshly logged-in account must be
// able to start enrollment.
func (e *Engine) BeginTwoFactorEnrollment(ctx context.Context, accessToken string) (*TwoFactorProvision, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.authenticatePending(accessToken)
	if err != nil {
		return nil, err
	}

	account, err := e.store.FindByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, e.storeErr(err)
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	uri := e.totp.ProvisionURI(secret, account.Email)

	err = e.store.SaveTwoFactor(ctx, account.ID, TwoFactorState{
		Enabled: account.TwoFactorEnabled,
		Secret:  secret,
		URI:     uri,
	})
	if err != nil {
		return nil, e.storeErr(err)
	}

	e.metricInc(MetricTwoFactorEnrollStarted)
	e.emitAudit(ctx, AuditTwoFactorEnroll, account.ID, account.Email, true, nil, nil)

	return &TwoFactorProvision{Secret: secret, URI: uri}, nil
}

// VerifyTwoFactorCode checks a one-time code against the account's stored
// secret. Success enables two-factor (idempotent when already enabled) and
// returns a fresh access token with the step-up claim set. Failure leaves
// the account untouched and issues nothing.
func (e *Engine) VerifyTwoFactorCode(ctx context.Context, accessToken, code string) (IssuedToken, error) {
	if e == nil {
		return IssuedToken{}, ErrEngineNotReady
	}

	claims, err := e.authenticatePending(accessToken)
	if err != nil {
		return IssuedToken{}, err
	}

	account, err := e.store.FindByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return IssuedToken{}, ErrAccountNotFound
		}
		return IssuedToken{}, e.storeErr(err)
	}

	if account.TwoFactorSecret == "" {
		return IssuedToken{}, ErrTwoFactorNotEnrolled
	}

	ok, err := e.totp.VerifyCode(account.TwoFactorSecret, code, time.Now())
	if err != nil {
		return IssuedToken{}, err
	}
	if !ok {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, AuditTwoFactorVerify, account.ID, account.Email, false, ErrTwoFactorCodeInvalid, nil)
		return IssuedToken{}, ErrTwoFactorCodeInvalid
	}

	if !account.TwoFactorEnabled {
		err = e.store.SaveTwoFactor(ctx, account.ID, TwoFactorState{
			Enabled: true,
			Secret:  account.TwoFactorSecret,
			URI:     account.TwoFactorURI,
		})
		if err != nil {
			return IssuedToken{}, e.storeErr(err)
		}
	}

	token, expiresAt, err := e.jwtManager.CreateAccess(account.ID, account.Role, true, true)
	if err != nil {
		return IssuedToken{}, err
	}

	e.metricInc(MetricTwoFactorSuccess)
	e.emitAudit(ctx, AuditTwoFactorVerify, account.ID, account.Email, true, nil, nil)

	return IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
}

// ResetTwoFactor disables two-factor and clears the stored secret and URI
// in one store write. When the account already has two-factor disabled the
// call is a no-op success (a stale unconfirmed secret is still cleared).
// When enabled, the presented token must carry a verified step-up claim,
// so a stolen non-step-up access token cannot strip the second factor.
func (e *Engine) ResetTwoFactor(ctx context.Context, accessToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	claims, err := e.authenticatePending(accessToken)
	if err != nil {
		return err
	}

	account, err := e.store.FindByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return e.storeErr(err)
	}

	if !account.TwoFactorEnabled {
		if account.TwoFactorSecret == "" && account.TwoFactorURI == "" {
			return nil
		}
		if err := e.store.SaveTwoFactor(ctx, account.ID, TwoFactorState{}); err != nil {
			return e.storeErr(err)
		}
		return nil
	}

	if !claims.TwoFactorVerified {
		return ErrUnauthorized
	}

	if err := e.store.SaveTwoFactor(ctx, account.ID, TwoFactorState{}); err != nil {
		return e.storeErr(err)
	}

	e.metricInc(MetricTwoFactorReset)
	e.emitAudit(ctx, AuditTwoFactorReset, account.ID, account.Email, true, nil, nil)

	return nil
}
