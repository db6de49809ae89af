package domain

import "time"

// TokenClaims are the authenticated identity fields carried by an access token.
type TokenClaims struct {
	UserID   string
	TenantID string
	Email    string
	Roles    []string
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, tenantID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}
