// Package authcore is a credential and session authority: it verifies
// passwords, issues and rotates signed bearer tokens, and gates access
// behind an optional time-based one-time-code second factor.
//
// The package is the core only. HTTP routing, wire encoding, and account
// persistence mechanics are collaborator responsibilities: callers plug in
// an [AccountStore] and map the sentinel errors in errors.go to transport
// statuses. Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Token model
//
// Access tokens are short-lived JWTs carrying the account's role and
// two-factor state; refresh tokens are long-lived JWTs signed with a
// distinct secret so that one token class can never be replayed as the
// other. Exactly one refresh token is valid per account at any time: the
// value on record is overwritten on every login and registration, and
// rotated with an atomic compare-and-swap on refresh, so a superseded
// token is revoked even before it expires.
//
// # Step-up
//
// When an account has two-factor enabled, an access token is usable only
// once it carries the step-up claim produced by a successful one-time-code
// check. Refreshing always clears that claim; step-up must be re-proven
// each access-token cycle.
package authcore
