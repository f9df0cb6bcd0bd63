package authcore

import (
	"context"
	"io"
	"time"

	"github.com/jlindqvist/authcore/internal/audit"
)

// Audit event types emitted by the engine.
const (
	AuditRegister        = "register"
	AuditLogin           = "login"
	AuditRefresh         = "refresh"
	AuditRefreshRevoked  = "refresh_revoked"
	AuditTwoFactorEnroll = "two_factor_enroll"
	AuditTwoFactorVerify = "two_factor_verify"
	AuditTwoFactorReset  = "two_factor_reset"
	AuditAccountDeleted  = "account_deleted"
)

// AuditEvent is a structured record of one security-relevant operation.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Implementations must be safe
// for concurrent use; the engine calls Emit from its dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel for the caller to drain.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func (e *Engine) emitAudit(ctx context.Context, eventType, accountID, email string, success bool, failure error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if failure != nil {
		event.Error = failure.Error()
	}

	e.audit.Emit(ctx, event)
}
