// Package middleware exposes net/http adapters over the engine's
// authentication gate.
//
// [Guard] reads the Authorization header, calls Engine.Authenticate, and
// injects the principal into the request context. [RequireAdmin] adds a
// role check on top. The package translates HTTP semantics into engine
// calls and nothing more: it never parses tokens itself and never makes
// authorization decisions beyond pass/reject from the engine.
package middleware
