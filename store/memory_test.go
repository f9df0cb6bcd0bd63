package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jlindqvist/authcore"
)

func TestMemoryStoreCreateAndFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, authcore.Account{
		Email:        "Alice@X.com",
		PasswordHash: "hash",
		Role:         authcore.RoleUser,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}
	if created.Email != "alice@x.com" {
		t.Fatalf("expected lowercased email, got %s", created.Email)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}

	byID, err := s.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find by id failed: %v", err)
	}
	if byID.Email != created.Email {
		t.Fatalf("unexpected account %+v", byID)
	}

	byEmail, err := s.FindByEmail(ctx, "ALICE@x.com")
	if err != nil {
		t.Fatalf("find by email failed: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("unexpected account %+v", byEmail)
	}

	if _, err := s.Create(ctx, authcore.Account{Email: "alice@x.com"}); !errors.Is(err, authcore.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if _, err := s.FindByID(ctx, "missing"); !errors.Is(err, authcore.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryStoreRotateIsCompareAndSwap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, authcore.Account{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.SetRefreshToken(ctx, created.ID, "r1"); err != nil {
		t.Fatalf("set refresh failed: %v", err)
	}

	if err := s.RotateRefreshToken(ctx, created.ID, "r1", "r2"); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if err := s.RotateRefreshToken(ctx, created.ID, "r1", "r3"); !errors.Is(err, authcore.ErrRefreshTokenMismatch) {
		t.Fatalf("expected mismatch on stale previous, got %v", err)
	}

	account, err := s.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if account.RefreshToken != "r2" {
		t.Fatalf("expected r2 persisted, got %s", account.RefreshToken)
	}
}

func TestMemoryStoreConcurrentRotationSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, authcore.Account{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.SetRefreshToken(ctx, created.ID, "current"); err != nil {
		t.Fatalf("set refresh failed: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = s.RotateRefreshToken(ctx, created.ID, "current", fmt.Sprintf("next-%d", slot))
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, authcore.ErrRefreshTokenMismatch) {
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestMemoryStoreTwoFactorAndDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, authcore.Account{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	state := authcore.TwoFactorState{Enabled: true, Secret: "SECRET", URI: "otpauth://totp/x"}
	if err := s.SaveTwoFactor(ctx, created.ID, state); err != nil {
		t.Fatalf("save two-factor failed: %v", err)
	}
	account, err := s.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !account.TwoFactorEnabled || account.TwoFactorSecret != "SECRET" {
		t.Fatalf("two-factor state not persisted: %+v", account)
	}

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.FindByID(ctx, created.ID); !errors.Is(err, authcore.ErrAccountNotFound) {
		t.Fatal("expected account gone")
	}
	// Email is free for re-registration after delete.
	if _, err := s.Create(ctx, authcore.Account{Email: "a@x.com"}); err != nil {
		t.Fatalf("re-create after delete failed: %v", err)
	}
}
