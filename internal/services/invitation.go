package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"invitehub/internal/domain"

	"github.com/google/uuid"
)

const (
	defaultTokenLength  = 32
	defaultExpiry       = 7 * 24 * time.Hour
	defaultListPageSize = 50
	maxListPageSize     = 100
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// InvitationConfig tunes the invitation lifecycle. Zero values fall back to
// the defaults above.
type InvitationConfig struct {
	TokenLength     int
	Expiry          time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

type invitationService struct {
	repo           domain.InvitationRepository
	cfg            InvitationConfig
	contextTimeout time.Duration
}

// NewInvitationService creates an InvitationService backed by the given
// repository. The service owns token issuance and state transitions; email,
// membership assignment, and audit logging stay with the caller so mutation
// and notification remain separately retryable.
func NewInvitationService(repo domain.InvitationRepository, cfg InvitationConfig, timeout time.Duration) domain.InvitationService {
	if cfg.TokenLength <= 0 {
		cfg.TokenLength = defaultTokenLength
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = defaultExpiry
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultListPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = maxListPageSize
	}
	return &invitationService{
		repo:           repo,
		cfg:            cfg,
		contextTimeout: timeout,
	}
}

func (s *invitationService) Create(ctx context.Context, input domain.CreateInvitationInput) (*domain.Invitation, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if input.TenantID == "" {
		return nil, "", fmt.Errorf("tenant is required")
	}
	if input.InvitedBy == "" {
		return nil, "", fmt.Errorf("inviter is required")
	}
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if !emailRegexp.MatchString(email) {
		return nil, "", fmt.Errorf("invalid email format")
	}

	// Pre-check keeps the common duplicate path cheap; the partial unique
	// index is the authoritative guard and Create maps its violation to the
	// same conflict.
	pending, err := s.repo.HasPending(ctx, input.TenantID, email)
	if err != nil {
		return nil, "", fmt.Errorf("check pending invitation: %w", err)
	}
	if pending {
		return nil, "", domain.ErrDuplicatePending
	}

	rawToken, err := generateInvitationToken(s.cfg.TokenLength)
	if err != nil {
		return nil, "", fmt.Errorf("generate invitation token: %w", err)
	}

	now := time.Now().UTC()
	inv := &domain.Invitation{
		ID:           uuid.NewString(),
		TenantID:     input.TenantID,
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		ClientIDs:    input.ClientIDs,
		RoleGroupIDs: input.RoleGroupIDs,
		Status:       domain.StatusPending,
		InvitedBy:    input.InvitedBy,
		TokenHash:    hashInvitationToken(rawToken),
		Message:      strings.TrimSpace(input.Message),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.Expiry),
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, "", fmt.Errorf("create invitation: %w", err)
	}
	return inv, rawToken, nil
}

func (s *invitationService) Get(ctx context.Context, id, tenantID string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (s *invitationService) GetByToken(ctx context.Context, rawToken string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.repo.GetByTokenHash(ctx, hashInvitationToken(rawToken))
	if err != nil {
		return nil, fmt.Errorf("get invitation by token: %w", err)
	}
	return inv, nil
}

func (s *invitationService) List(ctx context.Context, tenantID string, filter domain.InvitationFilter, params domain.PaginationParams) ([]*domain.Invitation, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	params = params.Clamped(s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	invs, total, err := s.repo.List(ctx, tenantID, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list invitations: %w", err)
	}
	return invs, total, nil
}

// Accept is token-scoped, not tenant-scoped: the token alone identifies the
// invitation. Membership assignment for userID is the caller's follow-up.
func (s *invitationService) Accept(ctx context.Context, rawToken, userID string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.repo.GetByTokenHash(ctx, hashInvitationToken(rawToken))
	if err != nil {
		return nil, fmt.Errorf("get invitation by token: %w", err)
	}
	if inv.Status != domain.StatusPending {
		return nil, invalidStateError(inv.Status)
	}

	now := time.Now().UTC()
	if now.After(inv.ExpiresAt) {
		// Side-effecting failure: persist the EXPIRED transition before
		// reporting it. A concurrent sweep may have already flipped the row,
		// so a no-op compare-and-set is fine here.
		if _, err := s.repo.MarkExpired(ctx, inv.ID); err != nil {
			return nil, fmt.Errorf("expire invitation: %w", err)
		}
		return nil, domain.ErrInvitationExpired
	}

	updated, err := s.repo.MarkAccepted(ctx, inv.ID, now)
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	if !updated {
		return s.failCurrentState(ctx, inv.ID, inv.TenantID)
	}
	inv.Status = domain.StatusAccepted
	inv.AcceptedAt = &now
	return inv, nil
}

func (s *invitationService) Revoke(ctx context.Context, id, tenantID, revokedBy string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv.Status != domain.StatusPending {
		return nil, invalidStateError(inv.Status)
	}

	now := time.Now().UTC()
	updated, err := s.repo.MarkRevoked(ctx, inv.ID, now, revokedBy)
	if err != nil {
		return nil, fmt.Errorf("revoke invitation: %w", err)
	}
	if !updated {
		return s.failCurrentState(ctx, inv.ID, inv.TenantID)
	}
	inv.Status = domain.StatusRevoked
	inv.RevokedAt = &now
	inv.RevokedBy = &revokedBy
	return inv, nil
}

func (s *invitationService) Resend(ctx context.Context, id, tenantID string) (*domain.Invitation, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, "", fmt.Errorf("get invitation: %w", err)
	}
	if inv.Status != domain.StatusPending {
		return nil, "", invalidStateError(inv.Status)
	}

	rawToken, err := generateInvitationToken(s.cfg.TokenLength)
	if err != nil {
		return nil, "", fmt.Errorf("generate invitation token: %w", err)
	}
	tokenHash := hashInvitationToken(rawToken)
	expiresAt := time.Now().UTC().Add(s.cfg.Expiry)

	// Overwriting the hash permanently invalidates the previous token.
	updated, err := s.repo.ResetToken(ctx, inv.ID, tokenHash, expiresAt)
	if err != nil {
		return nil, "", fmt.Errorf("resend invitation: %w", err)
	}
	if !updated {
		_, err := s.failCurrentState(ctx, inv.ID, inv.TenantID)
		return nil, "", err
	}
	inv.TokenHash = tokenHash
	inv.ExpiresAt = expiresAt
	return inv, rawToken, nil
}

func (s *invitationService) GetStats(ctx context.Context, tenantID string) (*domain.InvitationStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := time.Now().UTC()
	stats, err := s.repo.GetStats(ctx, tenantID, dayStart(now), weekStart(now))
	if err != nil {
		return nil, fmt.Errorf("get invitation stats: %w", err)
	}
	return stats, nil
}

func (s *invitationService) ExpireOldInvitations(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	count, err := s.repo.ExpireOlderThan(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire old invitations: %w", err)
	}
	return count, nil
}

// failCurrentState re-reads a row after a lost compare-and-set and reports
// the state that won the race.
func (s *invitationService) failCurrentState(ctx context.Context, id, tenantID string) (*domain.Invitation, error) {
	current, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return nil, invalidStateError(current.Status)
}

func invalidStateError(status domain.InvitationStatus) error {
	return fmt.Errorf("%w: invitation is %s", domain.ErrInvalidState, strings.ToLower(string(status)))
}

// generateInvitationToken returns a URL-safe token carrying byteLen bytes of
// entropy. The raw token is handed to the caller exactly once and never
// persisted.
func generateInvitationToken(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashInvitationToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// dayStart truncates t to 00:00 in its own location.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekStart returns the most recent Monday 00:00 relative to t.
func weekStart(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	return dayStart(t).AddDate(0, 0, -daysSinceMonday)
}
