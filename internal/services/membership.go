package services

import (
	"context"
	"log/slog"

	"invitehub/internal/domain"
)

type loggingMembershipAssigner struct {
	logger *slog.Logger
}

// NewLoggingMembershipAssigner returns a MembershipAssigner that records the
// grant and succeeds. It stands in until the identity system's client is
// plugged in here.
func NewLoggingMembershipAssigner(logger *slog.Logger) domain.MembershipAssigner {
	return &loggingMembershipAssigner{logger: logger}
}

func (a *loggingMembershipAssigner) AssignMembership(ctx context.Context, input domain.AssignMembershipInput) error {
	a.logger.InfoContext(ctx, "membership assigned",
		"user_id", input.UserID,
		"tenant_id", input.TenantID,
		"client_count", len(input.ClientIDs),
		"role_group_count", len(input.RoleGroupIDs),
	)
	return nil
}
