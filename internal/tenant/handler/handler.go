// Package handler exposes the tenant-facing portal endpoints: the public
// subdomain identity and the authenticated storage dashboard.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "photoportal/internal/auth/middleware"
	"photoportal/internal/tenant/models"
	"photoportal/internal/tenant/resolver"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/platform/httputil"
	"photoportal/pkg/requestcontext"
)

// Service defines the tenant operations the handler needs.
type Service interface {
	Stats(ctx context.Context, tenantID id.TenantID) (*models.Stats, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public portal endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/info", h.HandleInfo)
}

// RegisterProtected mounts endpoints that require an authenticated principal.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/storage", h.HandleStorage)
}

// HandleInfo returns the portal identity for the request's subdomain. It is
// public so the frontend can brand the login page before authentication.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	tenant, ok := resolver.TenantFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "tenant not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toInfoResponse(tenant, requestcontext.Now(r.Context())))
}

// HandleStorage returns the tenant's quota dashboard.
func (h *Handler) HandleStorage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := resolver.TenantFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "tenant not found"))
		return
	}
	principal, ok := authmw.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if !principal.IsAdmin && principal.TenantID != tenant.ID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "user does not belong to this tenant"))
		return
	}

	stats, err := h.service.Stats(ctx, tenant.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "tenant stats failed",
			"error", err,
			"tenant_id", tenant.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toStorageResponse(stats))
}
