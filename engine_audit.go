package folioauth

import (
	"context"

	internalaudit "github.com/MrEthical07/folioauth/internal/audit"
	"github.com/MrEthical07/folioauth/internal/flows"
)

// Audit actions written to admin_logs.
const (
	AuditLoginSuccess          = "LOGIN_SUCCESS"
	AuditLoginBlocked          = "LOGIN_BLOCKED"
	AuditLoginLocked           = "LOGIN_LOCKED"
	AuditLoginUserNotFound     = "LOGIN_FAILED_USER_NOT_FOUND"
	AuditLoginInvalidPassword  = "LOGIN_FAILED_INVALID_PASSWORD"
	AuditLoginInactive         = "LOGIN_FAILED_INACTIVE"
	AuditLoginCSRFInvalid      = "LOGIN_FAILED_CSRF"
	AuditLoginValidationFailed = "LOGIN_FAILED_VALIDATION"
	AuditTokenRefresh          = "TOKEN_REFRESH"
	AuditTokenRefreshFailed    = "TOKEN_REFRESH_FAILED"
	AuditLogout                = "LOGOUT"
)

const auditResourceType = "auth"

func (e *Engine) emitAudit(ctx context.Context, rec flows.AuditRecord) {
	if e == nil || e.audit == nil || rec.Action == "" {
		return
	}
	e.audit.Emit(ctx, internalaudit.Event{
		Timestamp:    e.now().UTC(),
		Action:       rec.Action,
		AdminID:      rec.AdminID,
		ResourceType: auditResourceType,
		IP:           ClientIPFromContext(ctx),
		UserAgent:    userAgentFromContext(ctx),
		Success:      rec.Success,
		Reason:       rec.Reason,
		Details:      rec.Details,
	})
}

// auditDropped reports events the async dispatcher discarded.
func (e *Engine) auditDropped() uint64 {
	if e == nil || e.dispatcher == nil {
		return 0
	}
	return e.dispatcher.Dropped()
}
