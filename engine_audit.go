package sessiongate

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess  = "login_success"
	auditEventLoginFailure  = "login_failure"
	auditEventVerifyFailure = "verify_failure"
	auditEventRevoke        = "token_revoked"
	auditEventRevokeFailure = "revoke_failure"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, subject, tokenID string, err error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Subject:   subject,
		TokenID:   tokenID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = auditErrorCode(err)
	}
	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}
