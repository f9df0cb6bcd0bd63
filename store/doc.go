// Package store provides the account persistence backends consumed by the
// engine: a Redis-backed store for production and an in-memory store for
// tests and examples. Both satisfy the engine's AccountStore contract,
// including atomic compare-and-swap rotation of the stored refresh token.
package store
