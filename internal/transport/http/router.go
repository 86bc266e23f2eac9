// Package http wires the full route tree: public portal endpoints, the
// authenticated tenant API and the admin API, each behind the shared
// middleware stack.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "photoportal/internal/admin/handler"
	"photoportal/internal/apilog"
	authhandler "photoportal/internal/auth/handler"
	authmw "photoportal/internal/auth/middleware"
	"photoportal/internal/auth/token"
	photohandler "photoportal/internal/photo/handler"
	"photoportal/internal/platform/health"
	tenanthandler "photoportal/internal/tenant/handler"
	"photoportal/internal/tenant/resolver"
	"photoportal/pkg/platform/httputil"
	"photoportal/pkg/platform/middleware/request"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Logger         *slog.Logger
	Issuer         *token.Issuer
	Resolver       *resolver.Resolver
	Health         *health.Handler
	APILogs        apilog.Store
	Auth           *authhandler.Handler
	Tenant         *tenanthandler.Handler
	Photo          *photohandler.Handler
	Admin          *adminhandler.Handler
	RequestTimeout time.Duration
}

// NewRouter builds the route tree.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(d.Logger))
	r.Use(apilog.Middleware(d.APILogs, d.Logger))
	if d.RequestTimeout > 0 {
		r.Use(request.Timeout(d.RequestTimeout))
	}
	r.Use(request.ContentTypeJSON)

	d.Health.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/", handleRoot)
	r.Get("/api/version", handleVersion)

	r.Route("/api", func(r chi.Router) {
		r.Use(resolver.Middleware(d.Resolver))
		r.Use(annotate)

		d.Auth.Register(r)
		d.Tenant.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(authmw.Authenticate(d.Issuer))
			r.Use(annotate)

			d.Auth.RegisterProtected(r)
			d.Tenant.RegisterProtected(r)
			d.Photo.Register(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authmw.Authenticate(d.Issuer))
			r.Use(authmw.RequireAdmin)
			r.Use(annotate)

			d.Admin.Register(r)
		})
	})

	return r
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"service": "photoportal",
		"version": health.Version,
	})
}

func handleVersion(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"version": health.Version})
}

// annotate copies the resolved tenant and authenticated principal into the
// current audit record. It runs both before and after authentication so
// public requests still carry their tenant attribution.
func annotate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if tenant, ok := resolver.TenantFromContext(ctx); ok {
			apilog.AnnotateTenant(ctx, tenant.ID)
		}
		if principal, ok := authmw.FromContext(ctx); ok {
			apilog.AnnotateUser(ctx, principal.UserID)
			if !principal.TenantID.IsNil() {
				apilog.AnnotateTenant(ctx, principal.TenantID)
			}
		}
		next.ServeHTTP(w, r)
	})
}
