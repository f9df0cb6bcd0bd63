// Package audit implements async event dispatching for security-relevant
// operations: login, refresh, two-factor changes, account deletion.
//
// The package owns buffering and sink delivery only. Deciding which events
// to emit belongs to the engine; this package never filters on business
// logic and never performs network I/O beyond what a caller-supplied Sink
// does.
package audit
