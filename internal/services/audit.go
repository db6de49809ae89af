package services

import (
	"context"
	"log/slog"

	"invitehub/internal/domain"
)

type slogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger returns an AuditLogger that writes entries to the
// structured log under the "audit" message.
func NewSlogAuditLogger(logger *slog.Logger) domain.AuditLogger {
	return &slogAuditLogger{logger: logger}
}

func (a *slogAuditLogger) Log(ctx context.Context, entry domain.AuditEntry) {
	attrs := []any{
		"action", entry.Action,
		"tenant_id", entry.TenantID,
		"actor_id", entry.ActorID,
		"resource_type", entry.ResourceType,
		"resource_id", entry.ResourceID,
	}
	for k, v := range entry.Data {
		attrs = append(attrs, "data_"+k, v)
	}
	a.logger.InfoContext(ctx, "audit", attrs...)
}
