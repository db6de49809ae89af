package middleware

import (
	"context"
	"net/http"
	"strings"

	h "invitehub/internal/delivery/http/helpers"
)

const tenantIDKey contextKey = "tenantID"

// SetTenantID returns a context with the tenant scope set.
func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantIDFromContext returns the request's tenant scope from the context, if present.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantIDKey).(string)
	return id, ok
}

// RequireTenant resolves the tenant scope for the request. The token's tenant
// claim wins; the X-Tenant-ID header is the fallback for tokens without one.
// Requests without any tenant scope are rejected with 403.
func RequireTenant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := TenantIDFromContext(r.Context()); ok {
			next(w, r)
			return
		}
		if tenant := strings.TrimSpace(r.Header.Get("X-Tenant-ID")); tenant != "" {
			next(w, r.WithContext(SetTenantID(r.Context(), tenant)))
			return
		}
		h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "no tenant scope")
	}
}
