// Package handler exposes the tenant-facing photo endpoints. Every route
// operates on the tenant resolved from the request's subdomain, falling back
// to the authenticated principal's tenant on the bare API domain.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authmw "photoportal/internal/auth/middleware"
	"photoportal/internal/photo/models"
	"photoportal/internal/photo/service"
	tenantmodels "photoportal/internal/tenant/models"
	"photoportal/internal/tenant/resolver"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/platform/httputil"
	"photoportal/pkg/requestcontext"
)

// Service defines the photo operations the handler needs.
type Service interface {
	RequestUpload(ctx context.Context, tenant *tenantmodels.Tenant, req service.UploadRequest) (*service.UploadGrant, error)
	ConfirmUpload(ctx context.Context, tenant *tenantmodels.Tenant, photoID id.PhotoID) (*models.Photo, error)
	List(ctx context.Context, tenant *tenantmodels.Tenant, offset, limit int) ([]*service.Download, error)
	Get(ctx context.Context, tenant *tenantmodels.Tenant, photoID id.PhotoID) (*service.Download, error)
	Delete(ctx context.Context, tenant *tenantmodels.Tenant, photoID id.PhotoID) error
	UsageEntries(ctx context.Context, tenant *tenantmodels.Tenant, offset, limit int) ([]*models.UsageLog, error)
}

// TenantResolver resolves a principal's tenant when the host carried none.
type TenantResolver interface {
	ResolveForPrincipal(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error)
}

type Handler struct {
	service  Service
	resolver TenantResolver
	logger   *slog.Logger
}

func New(service Service, tenantResolver TenantResolver, logger *slog.Logger) *Handler {
	return &Handler{service: service, resolver: tenantResolver, logger: logger}
}

// Register mounts the photo endpoints on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/photos/upload", h.HandleRequestUpload)
	r.Post("/photos/{photoID}/confirm", h.HandleConfirmUpload)
	r.Get("/photos", h.HandleList)
	r.Get("/photos/{photoID}", h.HandleGet)
	r.Delete("/photos/{photoID}", h.HandleDelete)
	r.Get("/usage-logs", h.HandleUsageLogs)
}

// HandleRequestUpload reserves quota and mints a presigned upload URL.
func (h *Handler) HandleRequestUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenant, ok := h.currentTenant(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UploadRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	grant, err := h.service.RequestUpload(ctx, tenant, service.UploadRequest{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.FileSizeBytes,
	})
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeQuotaExceeded) && !dErrors.HasCode(err, dErrors.CodeValidation) {
			h.logger.ErrorContext(ctx, "upload request failed",
				"error", err,
				"tenant_id", tenant.ID,
				"request_id", requestID,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &UploadResponse{
		Photo:            toPhotoResponse(grant.Photo),
		UploadURL:        grant.UploadURL,
		ExpiresInSeconds: int(grant.ExpiresIn / time.Second),
	})
}

// HandleConfirmUpload verifies the uploaded object and settles the quota.
func (h *Handler) HandleConfirmUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := h.currentTenant(w, r)
	if !ok {
		return
	}
	photoID, ok := h.photoID(w, r)
	if !ok {
		return
	}

	photo, err := h.service.ConfirmUpload(ctx, tenant, photoID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeUnavailable) {
			h.logger.ErrorContext(ctx, "confirm upload failed",
				"error", err,
				"tenant_id", tenant.ID,
				"photo_id", photoID,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toPhotoResponse(photo))
}

// HandleList returns a page of the tenant's photos with download URLs.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := h.currentTenant(w, r)
	if !ok {
		return
	}
	offset, limit := httputil.Pagination(r, 50, 200)

	downloads, err := h.service.List(ctx, tenant, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list photos failed",
			"error", err,
			"tenant_id", tenant.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := &ListResponse{Photos: make([]*PhotoResponse, 0, len(downloads))}
	for _, d := range downloads {
		resp.Photos = append(resp.Photos, toDownloadResponse(d))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet returns one photo with its download URL.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := h.currentTenant(w, r)
	if !ok {
		return
	}
	photoID, ok := h.photoID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Get(ctx, tenant, photoID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "get photo failed",
				"error", err,
				"tenant_id", tenant.ID,
				"photo_id", photoID,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDownloadResponse(d))
}

// HandleDelete removes a photo and releases its bytes.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := h.currentTenant(w, r)
	if !ok {
		return
	}
	photoID, ok := h.photoID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, tenant, photoID); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "delete photo failed",
				"error", err,
				"tenant_id", tenant.ID,
				"photo_id", photoID,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUsageLogs returns a page of the tenant's usage ledger.
func (h *Handler) HandleUsageLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := h.currentTenant(w, r)
	if !ok {
		return
	}
	offset, limit := httputil.Pagination(r, 50, 200)

	entries, err := h.service.UsageEntries(ctx, tenant, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list usage logs failed",
			"error", err,
			"tenant_id", tenant.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := &UsageLogListResponse{Logs: make([]*UsageLogResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Logs = append(resp.Logs, toUsageLogResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// currentTenant returns the tenant for the request and whether the caller may
// act on it. Host resolution wins; a bare API domain falls back to the
// principal's tenant. A principal from another tenant is rejected.
func (h *Handler) currentTenant(w http.ResponseWriter, r *http.Request) (*tenantmodels.Tenant, bool) {
	ctx := r.Context()
	principal, hasPrincipal := authmw.FromContext(ctx)

	if tenant, ok := resolver.TenantFromContext(ctx); ok {
		if hasPrincipal && !principal.IsAdmin && principal.TenantID != tenant.ID {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "user does not belong to this tenant"))
			return nil, false
		}
		return tenant, true
	}

	if !hasPrincipal {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return nil, false
	}
	tenant, err := h.resolver.ResolveForPrincipal(ctx, principal.TenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return tenant, true
}

func (h *Handler) photoID(w http.ResponseWriter, r *http.Request) (id.PhotoID, bool) {
	photoID, err := id.ParsePhotoID(chi.URLParam(r, "photoID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid photo ID"))
		return id.PhotoID{}, false
	}
	return photoID, true
}
