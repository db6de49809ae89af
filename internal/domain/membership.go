package domain

import "context"

// AssignMembershipInput carries the grants applied when an invitation is accepted.
type AssignMembershipInput struct {
	UserID       string
	TenantID     string
	ClientIDs    []string
	RoleGroupIDs []string
}

// MembershipAssigner applies tenant membership and role grants to a user.
// Acceptance fails if membership assignment fails.
type MembershipAssigner interface {
	AssignMembership(ctx context.Context, input AssignMembershipInput) error
}
