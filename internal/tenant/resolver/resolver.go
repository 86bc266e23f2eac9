// Package resolver derives the active tenant for an inbound request from the
// Host header subdomain, with a fallback to the authenticated principal's
// tenant association. The result is threaded through the request context as an
// explicit value; nothing here mutates persisted state.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"photoportal/internal/sentinel"
	tenantmetrics "photoportal/internal/tenant/metrics"
	"photoportal/internal/tenant/models"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/requestcontext"
)

// AdminLabel is the reserved subdomain that routes to the admin surface.
const AdminLabel = "admin"

// adminPathPrefix short-circuits tenant resolution for the admin API.
const adminPathPrefix = "/api/admin"

// reservedPaths never resolve a tenant regardless of host. The resolver
// middleware is mounted under /api, so only paths below that prefix belong
// here; root, health, and metrics routes never reach it.
var reservedPaths = map[string]bool{
	"/api/version": true,
}

// Directory is the slice of the tenant store the resolver reads.
type Directory interface {
	FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
}

// Resolved is the outcome of tenant resolution for one request: exactly one of
// the admin surface, a tenant, or neither (bare API domain, principal fallback
// still possible).
type Resolved struct {
	IsAdmin bool
	Tenant  *models.Tenant
}

// Resolver maps requests to tenants using the directory.
type Resolver struct {
	directory Directory
	logger    *slog.Logger
	metrics   *tenantmetrics.Metrics
}

// Option configures optional resolver dependencies.
type Option func(*Resolver)

// WithMetrics wires resolution metrics. Nil-safe at call sites.
func WithMetrics(m *tenantmetrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New creates a Resolver over the given tenant directory.
func New(directory Directory, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{directory: directory, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CandidateSubdomain extracts the tenant subdomain candidate from a Host
// header. With three or more labels the first label is the candidate; with
// exactly two labels the first is a candidate unless it is www or admin.
func CandidateSubdomain(host string) (string, bool) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return "", false
	}

	parts := strings.Split(host, ".")
	switch {
	case len(parts) >= 3:
		return parts[0], parts[0] != ""
	case len(parts) == 2 && parts[0] != "www" && parts[0] != AdminLabel:
		return parts[0], parts[0] != ""
	default:
		return "", false
	}
}

// ResolveHost resolves the request's tenant from its host and path.
//
// Admin paths and reserved paths short-circuit to the admin context without a
// directory lookup, as does the reserved admin subdomain. A host with no
// derivable subdomain yields an empty Resolved; callers then fall back to the
// principal via ResolveForPrincipal.
func (r *Resolver) ResolveHost(ctx context.Context, host, path string) (*Resolved, error) {
	if strings.HasPrefix(path, adminPathPrefix) || reservedPaths[path] {
		return &Resolved{IsAdmin: true}, nil
	}

	subdomain, ok := CandidateSubdomain(host)
	if !ok {
		return &Resolved{}, nil
	}
	if subdomain == AdminLabel {
		return &Resolved{IsAdmin: true}, nil
	}

	if r.metrics != nil {
		defer r.metrics.ObserveResolve(time.Now())
	}

	tenant, err := r.directory.FindBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		// Directory unavailable is a transient failure class, never NotFound.
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "tenant resolution failed")
	}
	if !tenant.IsActive {
		return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	if tenant.IsExpired(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeForbidden, "tenant subscription expired")
	}

	return &Resolved{Tenant: tenant}, nil
}

// ResolveForPrincipal resolves the tenant referenced by an authenticated
// principal's tenant association, applying the same active/expiry checks as
// host resolution. Used when the request arrived on a bare API domain.
func (r *Resolver) ResolveForPrincipal(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "user has no tenant association")
	}

	tenant, err := r.directory.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "tenant not found or inactive")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "tenant resolution failed")
	}
	if !tenant.IsActive {
		return nil, dErrors.New(dErrors.CodeForbidden, "tenant not found or inactive")
	}
	if tenant.IsExpired(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeForbidden, "tenant subscription expired")
	}
	return tenant, nil
}

type contextKey struct{}

// WithResolved attaches the resolution outcome to the context.
func WithResolved(ctx context.Context, res *Resolved) context.Context {
	return context.WithValue(ctx, contextKey{}, res)
}

// FromContext returns the resolution outcome attached by the middleware.
func FromContext(ctx context.Context) (*Resolved, bool) {
	res, ok := ctx.Value(contextKey{}).(*Resolved)
	return res, ok
}

// TenantFromContext returns the resolved tenant, if any.
func TenantFromContext(ctx context.Context) (*models.Tenant, bool) {
	res, ok := FromContext(ctx)
	if !ok || res.Tenant == nil {
		return nil, false
	}
	return res.Tenant, true
}
