package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for invitation operations.
var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrDuplicatePending   = errors.New("a pending invitation already exists for this email")
	ErrInvalidState       = errors.New("invitation is not in a valid state for this operation")
	ErrInvitationExpired  = errors.New("invitation has expired")
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

// Invitation lifecycle states. PENDING is the only non-terminal state.
const (
	StatusPending  InvitationStatus = "PENDING"
	StatusAccepted InvitationStatus = "ACCEPTED"
	StatusExpired  InvitationStatus = "EXPIRED"
	StatusRevoked  InvitationStatus = "REVOKED"
)

// IsValid reports whether s is a known invitation status.
func (s InvitationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusExpired, StatusRevoked:
		return true
	}
	return false
}

// IsTerminal reports whether s admits no further transitions.
func (s InvitationStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusExpired || s == StatusRevoked
}

// Invitation represents a pre-registration invitation scoped to a tenant.
// The raw invitation token is never stored; only its hash is.
// swagger:model Invitation
type Invitation struct {
	ID           string           `json:"id"`
	TenantID     string           `json:"tenant_id"`
	Email        string           `json:"email"`
	Name         string           `json:"name,omitempty"`
	ClientIDs    []string         `json:"client_ids"`
	RoleGroupIDs []string         `json:"role_group_ids"`
	Status       InvitationStatus `json:"status"`
	InvitedBy    string           `json:"invited_by"`
	TokenHash    string           `json:"-"`
	Message      string           `json:"message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	AcceptedAt   *time.Time       `json:"accepted_at,omitempty"`
	RevokedAt    *time.Time       `json:"revoked_at,omitempty"`
	RevokedBy    *string          `json:"revoked_by,omitempty"`
	DeletedAt    *time.Time       `json:"-"`
}

// CreateInvitationInput carries the fields needed to issue a new invitation.
type CreateInvitationInput struct {
	TenantID     string
	Email        string
	Name         string
	InvitedBy    string
	ClientIDs    []string
	RoleGroupIDs []string
	Message      string
}

// InvitationFilter narrows invitation listings. Nil/empty fields are ignored.
type InvitationFilter struct {
	Status        *InvitationStatus
	Email         string
	InvitedBy     string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// InvitationStats summarizes invitations for a tenant.
// swagger:model InvitationStats
type InvitationStats struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Accepted     int `json:"accepted"`
	Expired      int `json:"expired"`
	Revoked      int `json:"revoked"`
	SentToday    int `json:"sent_today"`
	SentThisWeek int `json:"sent_this_week"`
}

// InvitationRepository defines storage operations for invitations.
// Soft-deleted rows are invisible to every method. Mutating methods that
// return a bool use compare-and-swap on status and report whether the row
// was still eligible for the transition.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id, tenantID string) (*Invitation, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*Invitation, error)
	HasPending(ctx context.Context, tenantID, email string) (bool, error)
	List(ctx context.Context, tenantID string, filter InvitationFilter, params PaginationParams) ([]*Invitation, int, error)
	MarkAccepted(ctx context.Context, id string, acceptedAt time.Time) (bool, error)
	MarkExpired(ctx context.Context, id string) (bool, error)
	MarkRevoked(ctx context.Context, id string, revokedAt time.Time, revokedBy string) (bool, error)
	ResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) (bool, error)
	GetStats(ctx context.Context, tenantID string, todayStart, weekStart time.Time) (*InvitationStats, error)
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// InvitationService defines the business logic for the invitation lifecycle.
// Create and Resend return the raw token alongside the invitation so callers
// can deliver it; the token is never retrievable afterwards.
type InvitationService interface {
	Create(ctx context.Context, input CreateInvitationInput) (*Invitation, string, error)
	Get(ctx context.Context, id, tenantID string) (*Invitation, error)
	GetByToken(ctx context.Context, rawToken string) (*Invitation, error)
	List(ctx context.Context, tenantID string, filter InvitationFilter, params PaginationParams) ([]*Invitation, int, error)
	Accept(ctx context.Context, rawToken, userID string) (*Invitation, error)
	Revoke(ctx context.Context, id, tenantID, revokedBy string) (*Invitation, error)
	Resend(ctx context.Context, id, tenantID string) (*Invitation, string, error)
	GetStats(ctx context.Context, tenantID string) (*InvitationStats, error)
	ExpireOldInvitations(ctx context.Context) (int64, error)
}
