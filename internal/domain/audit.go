package domain

import "context"

// Audit actions recorded for invitation lifecycle events.
const (
	AuditInvitationCreated  = "invitation.created"
	AuditInvitationAccepted = "invitation.accepted"
	AuditInvitationRevoked  = "invitation.revoked"
	AuditInvitationResent   = "invitation.resent"
)

// AuditEntry describes a single auditable action.
type AuditEntry struct {
	Action       string
	TenantID     string
	ActorID      string
	ResourceType string
	ResourceID   string
	Data         map[string]string
}

// AuditLogger records lifecycle events. Logging is best-effort and must not
// fail the operation being audited, so Log returns nothing.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditEntry)
}
