package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jlindqvist/authcore"
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusMismatch int64 = 1
	rotateStatusRotated  int64 = 2
)

// Account hashes live at <prefix>:a:<id>. The email index is a plain string
// key <prefix>:e:<lowercased email> holding the account ID, created with
// SETNX so two concurrent registrations for one email cannot both win.
const createAccountScript = `
local email_key = KEYS[1]
local account_key = KEYS[2]

if redis.call("SETNX", email_key, ARGV[1]) == 0 then
  return 0
end

redis.call("HSET", account_key,
  "id", ARGV[1],
  "email", ARGV[2],
  "password_hash", ARGV[3],
  "refresh_token", ARGV[4],
  "role", ARGV[5],
  "tfa_enabled", ARGV[6],
  "tfa_secret", ARGV[7],
  "tfa_uri", ARGV[8],
  "version", 1)

return 1
`

var createAccountLua = redis.NewScript(createAccountScript)

const rotateRefreshScript = `
local account_key = KEYS[1]
local provided = ARGV[1]
local next_token = ARGV[2]

if redis.call("EXISTS", account_key) == 0 then
  return 0
end

local current = redis.call("HGET", account_key, "refresh_token")
if current ~= provided then
  return 1
end

redis.call("HSET", account_key, "refresh_token", next_token)
redis.call("HINCRBY", account_key, "version", 1)
return 2
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

const deleteAccountScript = `
local account_key = KEYS[1]
local email = redis.call("HGET", account_key, "email")
if not email then
  return 0
end

redis.call("DEL", account_key)
redis.call("DEL", ARGV[1] .. email)
return 1
`

var deleteAccountLua = redis.NewScript(deleteAccountScript)

// RedisStore is a Redis-backed account store. Each account is a Redis hash
// plus an email index key, and refresh-token rotation runs as a Lua
// compare-and-swap so concurrent refreshes have exactly one winner.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore] on the given client. prefix
// namespaces all keys; it defaults to "ac" when empty.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ac"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) accountKey(id string) string {
	return s.prefix + ":a:" + id
}

func (s *RedisStore) emailKey(email string) string {
	return s.prefix + ":e:" + normalizeEmail(email)
}

func (s *RedisStore) emailPrefix() string {
	return s.prefix + ":e:"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create persists a new account. The ID is assigned here when the caller
// left it empty. Returns [authcore.ErrAccountExists] when the email index
// already points at another account.
func (s *RedisStore) Create(ctx context.Context, account authcore.Account) (authcore.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.Email = normalizeEmail(account.Email)
	account.Version = 1

	result, err := createAccountLua.Run(
		ctx,
		s.redis,
		[]string{s.emailKey(account.Email), s.accountKey(account.ID)},
		account.ID,
		account.Email,
		account.PasswordHash,
		account.RefreshToken,
		account.Role,
		boolField(account.TwoFactorEnabled),
		account.TwoFactorSecret,
		account.TwoFactorURI,
	).Int64()
	if err != nil {
		return authcore.Account{}, fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}
	if result == 0 {
		return authcore.Account{}, authcore.ErrAccountExists
	}

	return account, nil
}

// FindByID loads an account by ID.
func (s *RedisStore) FindByID(ctx context.Context, id string) (authcore.Account, error) {
	fields, err := s.redis.HGetAll(ctx, s.accountKey(id)).Result()
	if err != nil {
		return authcore.Account{}, fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return authcore.Account{}, authcore.ErrAccountNotFound
	}

	return accountFromHash(fields)
}

// FindByEmail resolves the email index and loads the account.
func (s *RedisStore) FindByEmail(ctx context.Context, email string) (authcore.Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return authcore.Account{}, authcore.ErrAccountNotFound
		}
		return authcore.Account{}, fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}

	return s.FindByID(ctx, id)
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
// Login and logout use this; the refresh flow goes through
// [RedisStore.RotateRefreshToken] instead.
func (s *RedisStore) SetRefreshToken(ctx context.Context, id, token string) error {
	key := s.accountKey(id)

	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}
	if exists == 0 {
		return authcore.ErrAccountNotFound
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "refresh_token", token)
		pipe.HIncrBy(ctx, key, "version", 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}

	return nil
}

// RotateRefreshToken replaces the stored refresh token with next, but only
// if the stored value still equals previous. The compare and the swap run
// as one Lua script, so a concurrent rotation on the same account loses
// with [authcore.ErrRefreshTokenMismatch] rather than silently clobbering.
func (s *RedisStore) RotateRefreshToken(ctx context.Context, id, previous, next string) error {
	result, err := rotateRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.accountKey(id)},
		previous,
		next,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}

	switch result {
	case rotateStatusNotFound:
		return authcore.ErrAccountNotFound
	case rotateStatusMismatch:
		return authcore.ErrRefreshTokenMismatch
	case rotateStatusRotated:
		return nil
	default:
		return fmt.Errorf("%w: unknown rotate script status %d", authcore.ErrStoreUnavailable, result)
	}
}

// SetPasswordHash overwrites the stored password hash. The engine calls
// this after a parameter upgrade rehash.
func (s *RedisStore) SetPasswordHash(ctx context.Context, id, hash string) error {
	key := s.accountKey(id)

	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}
	if exists == 0 {
		return authcore.ErrAccountNotFound
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "password_hash", hash)
		pipe.HIncrBy(ctx, key, "version", 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}

	return nil
}

// SaveTwoFactor persists the account's two-factor state.
func (s *RedisStore) SaveTwoFactor(ctx context.Context, id string, state authcore.TwoFactorState) error {
	key := s.accountKey(id)

	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}
	if exists == 0 {
		return authcore.ErrAccountNotFound
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"tfa_enabled", boolField(state.Enabled),
			"tfa_secret", state.Secret,
			"tfa_uri", state.URI,
		)
		pipe.HIncrBy(ctx, key, "version", 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}

	return nil
}

// Delete removes the account hash and its email index entry.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	result, err := deleteAccountLua.Run(
		ctx,
		s.redis,
		[]string{s.accountKey(id)},
		s.emailPrefix(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}
	if result == 0 {
		return authcore.ErrAccountNotFound
	}

	return nil
}

// Ping reports point-in-time Redis availability.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}
	return nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func accountFromHash(fields map[string]string) (authcore.Account, error) {
	version, err := strconv.ParseUint(fields["version"], 10, 64)
	if err != nil {
		return authcore.Account{}, fmt.Errorf("%w: corrupt account version", authcore.ErrStoreUnavailable)
	}

	return authcore.Account{
		ID:               fields["id"],
		Email:            fields["email"],
		PasswordHash:     fields["password_hash"],
		RefreshToken:     fields["refresh_token"],
		Role:             fields["role"],
		TwoFactorEnabled: fields["tfa_enabled"] == "1",
		TwoFactorSecret:  fields["tfa_secret"],
		TwoFactorURI:     fields["tfa_uri"],
		Version:          version,
	}, nil
}
