// Package middleware authenticates requests from bearer tokens and exposes
// the resulting principal through the request context.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"photoportal/internal/auth/token"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/platform/httputil"
)

// Principal is the authenticated caller, derived from verified token claims
// without a store round trip.
type Principal struct {
	UserID        id.UserID
	TenantID      id.TenantID
	IsAdmin       bool
	IsTenantAdmin bool
}

type contextKey struct{}

// WithPrincipal attaches the principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the authenticated principal, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok
}

// Authenticate verifies the Authorization header and attaches the principal.
// Requests without a token are rejected; mount this only on protected routes.
func Authenticate(issuer *token.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := principalFromHeader(issuer, r.Header.Get("Authorization"))
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAdmin rejects non-admin principals. Mount after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		if !p.IsAdmin {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func principalFromHeader(issuer *token.Issuer, header string) (*Principal, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token")
	}

	claims, err := issuer.Verify(raw)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	tenantID, err := claims.Tenant()
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token tenant")
	}

	return &Principal{
		UserID:        userID,
		TenantID:      tenantID,
		IsAdmin:       claims.IsAdmin,
		IsTenantAdmin: claims.IsTenantAdmin,
	}, nil
}
