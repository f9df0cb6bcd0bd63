package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jlindqvist/authcore"
)

// MemoryStore is an in-process account store guarded by a mutex. It exists
// for tests and single-binary examples; the mutex gives RotateRefreshToken
// the same single-winner guarantee the Redis script provides.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]authcore.Account
	byEmail  map[string]string
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]authcore.Account),
		byEmail:  make(map[string]string),
	}
}

// Create persists a new account, assigning an ID when absent.
func (s *MemoryStore) Create(_ context.Context, account authcore.Account) (authcore.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account.Email = normalizeEmail(account.Email)
	if _, exists := s.byEmail[account.Email]; exists {
		return authcore.Account{}, authcore.ErrAccountExists
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.Version = 1

	s.accounts[account.ID] = account
	s.byEmail[account.Email] = account.ID

	return account, nil
}

// FindByID loads an account by ID.
func (s *MemoryStore) FindByID(_ context.Context, id string) (authcore.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return authcore.Account{}, authcore.ErrAccountNotFound
	}
	return account, nil
}

// FindByEmail loads an account by its lowercased email.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (authcore.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return authcore.Account{}, authcore.ErrAccountNotFound
	}
	return s.accounts[id], nil
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
func (s *MemoryStore) SetRefreshToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return authcore.ErrAccountNotFound
	}

	account.RefreshToken = token
	account.Version++
	s.accounts[id] = account

	return nil
}

// RotateRefreshToken swaps the refresh token only when the stored value
// still equals previous.
func (s *MemoryStore) RotateRefreshToken(_ context.Context, id, previous, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return authcore.ErrAccountNotFound
	}
	if account.RefreshToken != previous {
		return authcore.ErrRefreshTokenMismatch
	}

	account.RefreshToken = next
	account.Version++
	s.accounts[id] = account

	return nil
}

// SetPasswordHash overwrites the stored password hash.
func (s *MemoryStore) SetPasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return authcore.ErrAccountNotFound
	}

	account.PasswordHash = hash
	account.Version++
	s.accounts[id] = account

	return nil
}

// SaveTwoFactor persists the account's two-factor state.
func (s *MemoryStore) SaveTwoFactor(_ context.Context, id string, state authcore.TwoFactorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return authcore.ErrAccountNotFound
	}

	account.TwoFactorEnabled = state.Enabled
	account.TwoFactorSecret = state.Secret
	account.TwoFactorURI = state.URI
	account.Version++
	s.accounts[id] = account

	return nil
}

// Delete removes the account and its email index entry.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return authcore.ErrAccountNotFound
	}

	delete(s.byEmail, account.Email)
	delete(s.accounts, id)

	return nil
}
