package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	engine, _ := newTestEngine(t, engineTestConfig())

	if _, err := engine.Authenticate(context.Background(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
}

func TestAuthenticateDistinguishesMalformedFromExpired(t *testing.T) {
	cfg := engineTestConfig()
	cfg.JWT.AccessTTL = time.Nanosecond
	cfg.JWT.Leeway = 0

	engine, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	reg, err := engine.Register(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := engine.Authenticate(ctx, reg.Tokens.Access.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	if _, err := engine.Authenticate(ctx, "garbage.token.value"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestAuthenticateRejectsRefreshTokenAsBearer(t *testing.T) {
	engine, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	reg, err := engine.Register(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Distinct secrets: a refresh token never verifies as an access token.
	if _, err := engine.Authenticate(ctx, reg.Tokens.Refresh.Token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestAuthenticateReturnsPrincipal(t *testing.T) {
	engine, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	reg, err := engine.Register(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	principal, err := engine.Authenticate(ctx, reg.Tokens.Access.Token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if principal.AccountID != reg.AccountID {
		t.Fatalf("expected account %s, got %s", reg.AccountID, principal.AccountID)
	}
	if principal.Role != RoleUser {
		t.Fatalf("expected role user, got %s", principal.Role)
	}
	if principal.TwoFactorVerified {
		t.Fatal("expected unverified step-up claim after plain registration")
	}
}

func TestAuthenticateAdminGatesOnRole(t *testing.T) {
	engine, st := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	reg, err := engine.Register(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := engine.AuthenticateAdmin(ctx, reg.Tokens.Access.Token); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for user role, got %v", err)
	}

	st.setRole(t, reg.AccountID, RoleAdmin)
	pair, err := engine.Login(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	principal, err := engine.AuthenticateAdmin(ctx, pair.Access.Token)
	if err != nil {
		t.Fatalf("admin authenticate failed: %v", err)
	}
	if principal.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %s", principal.Role)
	}
}

func TestAuthenticateLatencyHistogramRecords(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Metrics.EnableLatencyHistograms = true

	engine, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	reg, err := engine.Register(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, reg.Tokens.Access.Token); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	buckets := snap.Histograms[MetricAuthenticateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	var total uint64
	for _, b := range buckets {
		total += b
	}
	if total == 0 {
		t.Fatal("expected at least one latency sample")
	}
}
