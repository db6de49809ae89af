package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"invitehub/internal/delivery/http/controllers"
	"invitehub/internal/delivery/http/middleware"
	"invitehub/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
// Tenant-scoped invitation routes require a Bearer token plus a tenant scope;
// the accept route is public, rate-limited per client, and uses the token
// only to attach an identity when one is presented.
func NewRouter(
	logger *slog.Logger,
	verifier domain.TokenVerifier,
	acceptLimiter *middleware.RateLimiter,
	invitationController *controllers.InvitationController,
	healthController *controllers.HealthController,
) *http.ServeMux {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(verifier, logger)
	optionalAuth := middleware.OptionalAuth(verifier, logger)
	guard := func(h http.HandlerFunc) http.HandlerFunc {
		return requireAuth(middleware.RequireTenant(h))
	}

	// Invitations
	mux.HandleFunc("POST /invitations", guard(invitationController.CreateInvitation))
	mux.HandleFunc("GET /invitations", guard(invitationController.ListInvitations))
	mux.HandleFunc("GET /invitations/stats", guard(invitationController.GetInvitationStats))
	mux.HandleFunc("GET /invitations/{invitationID}", guard(invitationController.GetInvitation))
	mux.HandleFunc("POST /invitations/{invitationID}/resend", guard(invitationController.ResendInvitation))
	mux.HandleFunc("POST /invitations/{invitationID}/revoke", guard(invitationController.RevokeInvitation))
	mux.HandleFunc("POST /invitations/accept", acceptLimiter.Limit(optionalAuth(invitationController.AcceptInvitation)))

	// Health
	mux.HandleFunc("GET /healthz", healthController.Healthz)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
