package controllers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"invitehub/internal/delivery/http/helpers"
	"invitehub/internal/delivery/http/middleware"
	"invitehub/internal/domain"
)

// emailRegex matches a simple email format (local@domain with at least one dot in domain).
var emailRegex = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

type InvitationController struct {
	Logger     *slog.Logger
	Service    domain.InvitationService
	Email      domain.EmailService
	Membership domain.MembershipAssigner
	Audit      domain.AuditLogger
}

func NewInvitationController(logger *slog.Logger, svc domain.InvitationService, email domain.EmailService, membership domain.MembershipAssigner, audit domain.AuditLogger) *InvitationController {
	return &InvitationController{
		Logger:     logger,
		Service:    svc,
		Email:      email,
		Membership: membership,
		Audit:      audit,
	}
}

// sendInvitationEmail delivers the invitation email carrying the raw token.
// Delivery failure is logged and does not fail the request; the token itself
// is never logged.
func (c *InvitationController) sendInvitationEmail(ctx context.Context, inv *domain.Invitation, rawToken string) {
	inviterName, _ := middleware.UserEmailFromContext(ctx)
	data := &domain.InvitationEmailData{
		Email:         inv.Email,
		RecipientName: inv.Name,
		InviterName:   inviterName,
		Message:       inv.Message,
		RawToken:      rawToken,
		ExpiresAt:     inv.ExpiresAt,
	}
	if err := c.Email.SendInvitation(ctx, data); err != nil {
		c.Logger.ErrorContext(ctx, "invitation email delivery failed", "invitation_id", inv.ID, "err", err)
	}
}

// CreateInvitationRequest is the request body for POST /invitations.
type CreateInvitationRequest struct {
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	ClientIDs    []string `json:"client_ids"`
	RoleGroupIDs []string `json:"role_group_ids"`
	Message      string   `json:"message"`
}

// Validate implements Validator.
func (c CreateInvitationRequest) Validate() []string {
	var errs []string
	if c.Email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegex.MatchString(strings.TrimSpace(c.Email)) {
		errs = append(errs, "email must be a valid email address")
	}
	for _, id := range c.ClientIDs {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, "client_ids cannot contain blank entries")
			break
		}
	}
	for _, id := range c.RoleGroupIDs {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, "role_group_ids cannot contain blank entries")
			break
		}
	}
	return errs
}

// CreateInvitationSuccessResponse is the success response envelope for POST /invitations (201).
type CreateInvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// CreateInvitation godoc
// @Summary Create an invitation
// @Description Creates a pending invitation for an email address in the caller's tenant, emails the invitee a time-limited single-use accept link, and returns the invitation. The raw invitation token is delivered only by email and never appears in any response. At most one pending invitation per email per tenant.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tenant-ID header string false "Tenant ID (required when the token carries no tenant claim)"
// @Param body body CreateInvitationRequest true "Invitation data"
// @Success 201 {object} controllers.CreateInvitationSuccessResponse "data contains the created invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (no tenant scope)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (pending invitation already exists)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations [post]
func (c *InvitationController) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req CreateInvitationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "no tenant scope")
		return
	}
	inv, rawToken, err := c.Service.Create(r.Context(), domain.CreateInvitationInput{
		TenantID:     tenantID,
		Email:        req.Email,
		Name:         req.Name,
		InvitedBy:    userID,
		ClientIDs:    req.ClientIDs,
		RoleGroupIDs: req.RoleGroupIDs,
		Message:      req.Message,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicatePending) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "a pending invitation already exists for this email")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	c.sendInvitationEmail(r.Context(), inv, rawToken)
	c.Audit.Log(r.Context(), domain.AuditEntry{
		Action:       domain.AuditInvitationCreated,
		TenantID:     inv.TenantID,
		ActorID:      userID,
		ResourceType: "invitation",
		ResourceID:   inv.ID,
		Data:         map[string]string{"email": inv.Email},
	})
	helpers.WriteJSONSuccess(w, http.StatusCreated, inv)
}

// parseInvitationFilter builds an InvitationFilter from list query parameters.
func parseInvitationFilter(q url.Values) (domain.InvitationFilter, error) {
	var filter domain.InvitationFilter
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := domain.InvitationStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			return filter, fmt.Errorf("invalid status %q", raw)
		}
		filter.Status = &status
	}
	filter.Email = strings.TrimSpace(q.Get("email"))
	filter.InvitedBy = strings.TrimSpace(q.Get("invited_by"))
	if raw := strings.TrimSpace(q.Get("created_after")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("created_after must be an RFC 3339 timestamp")
		}
		filter.CreatedAfter = &t
	}
	if raw := strings.TrimSpace(q.Get("created_before")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("created_before must be an RFC 3339 timestamp")
		}
		filter.CreatedBefore = &t
	}
	return filter, nil
}

// ListInvitationsResponse is the data payload for GET /invitations (200).
type ListInvitationsResponse struct {
	Items      []*domain.Invitation   `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListInvitationsSuccessResponse is the success response envelope for GET /invitations (200).
type ListInvitationsSuccessResponse struct {
	Data  ListInvitationsResponse `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// ListInvitations godoc
// @Summary List invitations for the caller's tenant
// @Description Returns a paginated list of invitations, newest first. Optional filters: status (PENDING/ACCEPTED/EXPIRED/REVOKED, case-insensitive), email (substring, case-insensitive), invited_by (exact), created_after and created_before (RFC 3339). Use page and page_size query params.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param X-Tenant-ID header string false "Tenant ID (required when the token carries no tenant claim)"
// @Param status query string false "Filter by lifecycle status"
// @Param email query string false "Filter emails containing this string (case-insensitive)"
// @Param invited_by query string false "Filter by inviter user ID"
// @Param created_after query string false "Only invitations created at or after this RFC 3339 timestamp"
// @Param created_before query string false "Only invitations created at or before this RFC 3339 timestamp"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 50, max 100)"
// @Success 200 {object} controllers.ListInvitationsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (no tenant scope)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations [get]
func (c *InvitationController) ListInvitations(w http.ResponseWriter, r *http.Request) {
	_, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "no tenant scope")
		return
	}
	filter, err := parseInvitationFilter(r.URL.Query())
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	params := helpers.ParsePagination(r)
	list, total, err := c.Service.List(r.Context(), tenantID, filter, params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if list == nil {
		list = []*domain.Invitation{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListInvitationsResponse{Items: list, Pagination: meta})
}

// GetInvitationStatsSuccessResponse is the success response envelope for GET /invitations/stats (200).
type GetInvitationStatsSuccessResponse struct {
	Data  *domain.InvitationStats `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// GetInvitationStats godoc
// @Summary Get invitation statistics for the caller's tenant
// @Description Returns counts by lifecycle status plus invitations sent today and this week (UTC day and ISO week boundaries).
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param X-Tenant-ID header string false "Tenant ID (required when the token carries no tenant claim)"
// @Success 200 {object} controllers.GetInvitationStatsSuccessResponse "data contains the stats"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (no tenant scope)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/stats [get]
func (c *InvitationController) GetInvitationStats(w http.ResponseWriter, r *http.Request) {
	_, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "no tenant scope")
		return
	}
	stats, err := c.Service.GetStats(r.Context(), tenantID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// GetInvitationSuccessResponse is the success response envelope for GET /invitations/{invitationID} (200).
type GetInvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// GetInvitation godoc
// @Summary Get an invitation by ID
// @Description Returns a single invitation scoped to the caller's tenant. Invitations of other tenants are indistinguishable from missing ones.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param X-Tenant-ID header string false "Tenant ID (required when the token carries no tenant claim)"
// @Param invitationID path string true "Invitation ID"
// @Success 200 {object} controllers.GetInvitationSuccessResponse "data contains the invitation"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (no tenant scope)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{invitationID} [get]
func (c *InvitationController) GetInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := r.PathValue("invitationID")
	if invitationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing invitationID")
		return
	}
	_, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "no tenant scope")
		return
	}
	inv, err := c.Service.Get(r.Context(), invitationID, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invitation not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// ResendInvitationSuccessResponse is the success response envelope for POST /invitations/{invitationID}/resend (200).
type ResendInvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// ResendInvitation godoc
// @Summary Resend a pending invitation
// @Description Issues a fresh token for a pending invitation, resets its expiry, and re-sends the invitation email. The previous token is permanently invalidated. Only pending invitations can be resent.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param X-Tenant-ID header string false "Tenant ID (required when the token carries no tenant claim)"
// @Param invitationID path string true "Invitation ID"
// @Success 200 {object} controllers.ResendInvitationSuccessResponse "data contains the refreshed invitation"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (no tenant scope)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not pending)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{invitationID}/resend [post]
func (c *InvitationController) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := r.PathValue("invitationID")
	if invitationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing invitationID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "no tenant scope")
		return
	}
	inv, rawToken, err := c.Service.Resend(r.Context(), invitationID, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invitation not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidState) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	c.sendInvitationEmail(r.Context(), inv, rawToken)
	c.Audit.Log(r.Context(), domain.AuditEntry{
		Action:       domain.AuditInvitationResent,
		TenantID:     inv.TenantID,
		ActorID:      userID,
		ResourceType: "invitation",
		ResourceID:   inv.ID,
		Data:         map[string]string{"email": inv.Email},
	})
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// RevokeInvitationSuccessResponse is the success response envelope for POST /invitations/{invitationID}/revoke (200).
type RevokeInvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// RevokeInvitation godoc
// @Summary Revoke a pending invitation
// @Description Revokes a pending invitation so its token can no longer be accepted. Only pending invitations can be revoked; revocation is terminal.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param X-Tenant-ID header string false "Tenant ID (required when the token carries no tenant claim)"
// @Param invitationID path string true "Invitation ID"
// @Success 200 {object} controllers.RevokeInvitationSuccessResponse "data contains the revoked invitation"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (no tenant scope)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not pending)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{invitationID}/revoke [post]
func (c *InvitationController) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := r.PathValue("invitationID")
	if invitationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing invitationID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "no tenant scope")
		return
	}
	inv, err := c.Service.Revoke(r.Context(), invitationID, tenantID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invitation not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidState) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	c.Audit.Log(r.Context(), domain.AuditEntry{
		Action:       domain.AuditInvitationRevoked,
		TenantID:     inv.TenantID,
		ActorID:      userID,
		ResourceType: "invitation",
		ResourceID:   inv.ID,
		Data:         map[string]string{"email": inv.Email},
	})
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// AcceptInvitationRequest is the request body for POST /invitations/accept.
type AcceptInvitationRequest struct {
	Token string `json:"token"`
}

// Validate implements Validator.
func (a AcceptInvitationRequest) Validate() []string {
	if strings.TrimSpace(a.Token) == "" {
		return []string{"token is required"}
	}
	return nil
}

// AcceptInvitationSuccessResponse is the success response envelope for POST /invitations/accept (200).
type AcceptInvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// AcceptInvitation godoc
// @Summary Accept an invitation
// @Description Accepts an invitation with its raw token. Acceptance is token-scoped, not tenant-scoped, and works with or without authentication. When the caller is authenticated, the invitation's tenant, client, and role-group grants are assigned to them. A token past its expiry flips the invitation to EXPIRED and returns 410.
// @Tags invitations
// @Accept json
// @Produce json
// @Param body body AcceptInvitationRequest true "Raw invitation token"
// @Success 200 {object} controllers.AcceptInvitationSuccessResponse "data contains the accepted invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (unknown token)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already accepted, expired, or revoked)"
// @Failure 410 {object} helpers.APIResponse "error.code: gone (token past expiry)"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/accept [post]
func (c *InvitationController) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req AcceptInvitationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	inv, err := c.Service.Accept(r.Context(), req.Token, userID)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invalid invitation token")
			return
		}
		if errors.Is(err, domain.ErrInvitationExpired) {
			helpers.WriteJSONError(w, http.StatusGone, helpers.ErrCodeGone, "invitation has expired")
			return
		}
		if errors.Is(err, domain.ErrInvalidState) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}

	if userID != "" {
		err := c.Membership.AssignMembership(r.Context(), domain.AssignMembershipInput{
			UserID:       userID,
			TenantID:     inv.TenantID,
			ClientIDs:    inv.ClientIDs,
			RoleGroupIDs: inv.RoleGroupIDs,
		})
		if err != nil {
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
			return
		}
	}

	c.Audit.Log(r.Context(), domain.AuditEntry{
		Action:       domain.AuditInvitationAccepted,
		TenantID:     inv.TenantID,
		ActorID:      userID,
		ResourceType: "invitation",
		ResourceID:   inv.ID,
		Data:         map[string]string{"email": inv.Email},
	})
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}
