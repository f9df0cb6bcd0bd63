package authcore

import (
	"context"
	"time"

	"github.com/jlindqvist/authcore/jwt"
)

// Authenticate is the gate applied to every protected operation. An empty
// bearer value is rejected as [ErrUnauthorized] before any parsing, so a
// missing credential stays distinct from an invalid one. Signature and
// expiry failures surface as [ErrTokenExpired] or [ErrTokenMalformed] so
// callers can tell retry-with-refresh from re-login. A token whose account
// has two-factor enabled but whose step-up claim is unverified fails with
// [ErrUnauthorized] even though the signature checked out.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	if e == nil {
		return Principal{}, ErrEngineNotReady
	}

	start := time.Now()
	principal, err := e.authenticate(accessToken)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}

	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return Principal{}, err
	}

	e.metricInc(MetricAuthenticateSuccess)
	return principal, nil
}

func (e *Engine) authenticate(accessToken string) (Principal, error) {
	if accessToken == "" {
		return Principal{}, ErrUnauthorized
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		return Principal{}, e.tokenErr(err)
	}

	// Step-up unmet: signature is fine but the token is not yet usable.
	if claims.TwoFactorEnabled && !claims.TwoFactorVerified {
		return Principal{}, ErrUnauthorized
	}

	return Principal{
		AccountID:         claims.UID,
		Role:              claims.Role,
		TwoFactorVerified: claims.TwoFactorVerified,
	}, nil
}

// AuthenticateAdmin runs the gate and additionally requires the admin
// role, rejecting with [ErrForbidden] otherwise.
func (e *Engine) AuthenticateAdmin(ctx context.Context, accessToken string) (Principal, error) {
	principal, err := e.Authenticate(ctx, accessToken)
	if err != nil {
		return Principal{}, err
	}
	if principal.Role != RoleAdmin {
		return Principal{}, ErrForbidden
	}
	return principal, nil
}

// authenticatePending accepts tokens the full gate rejects for unmet
// step-up. The two-factor operations use it: a freshly logged-in account
// must be able to enroll and verify before its token passes the gate.
func (e *Engine) authenticatePending(accessToken string) (*jwt.AccessClaims, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		return nil, e.tokenErr(err)
	}

	return claims, nil
}
