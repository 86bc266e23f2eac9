// Package handler exposes the platform admin API. Every route is mounted
// behind the admin-only middleware; handlers assume an admin principal.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	adminservice "photoportal/internal/admin/service"
	"photoportal/internal/apilog"
	authmodels "photoportal/internal/auth/models"
	"photoportal/internal/storage/credentials"
	tenantmodels "photoportal/internal/tenant/models"
	tenantservice "photoportal/internal/tenant/service"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/platform/httputil"
	"photoportal/pkg/requestcontext"
)

// TenantService defines the tenant lifecycle operations the handler needs.
type TenantService interface {
	Create(ctx context.Context, in tenantservice.CreateInput) (*tenantmodels.Tenant, error)
	Get(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error)
	List(ctx context.Context, offset, limit int) ([]*tenantmodels.Tenant, error)
	Update(ctx context.Context, tenantID id.TenantID, in tenantservice.UpdateInput) (*tenantmodels.Tenant, error)
	UpdateStorageLimit(ctx context.Context, tenantID id.TenantID, limitMB int) (*tenantmodels.Tenant, error)
	Delete(ctx context.Context, tenantID id.TenantID) error
	Stats(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Stats, error)
}

// AdminService defines the platform-wide operations the handler needs.
type AdminService interface {
	Stats(ctx context.Context) (*adminservice.SystemStats, error)
	CreateCredential(ctx context.Context, in adminservice.CredentialInput) (*credentials.Credential, error)
	ListCredentials(ctx context.Context) ([]*credentials.Credential, error)
	UpdateCredential(ctx context.Context, credID id.CredentialID, in adminservice.CredentialInput) (*credentials.Credential, error)
	DeleteCredential(ctx context.Context, credID id.CredentialID) error
	TestCredential(ctx context.Context, credID id.CredentialID) (*adminservice.ConnectionReport, error)
	APILogs(ctx context.Context, filter apilog.ListFilter) ([]*apilog.Entry, error)
}

// UserLister lists accounts across all tenants.
type UserLister interface {
	ListUsers(ctx context.Context, offset, limit int) ([]*authmodels.User, error)
}

// PhotoReaper reclaims quota reserved by uploads that were never confirmed.
type PhotoReaper interface {
	ReapAbandoned(ctx context.Context, cutoff time.Time) (int, error)
}

type Handler struct {
	tenants TenantService
	admin   AdminService
	users   UserLister
	reaper  PhotoReaper
	logger  *slog.Logger
}

func New(tenants TenantService, admin AdminService, users UserLister, reaper PhotoReaper, logger *slog.Logger) *Handler {
	return &Handler{tenants: tenants, admin: admin, users: users, reaper: reaper, logger: logger}
}

// Register mounts the admin routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/stats", h.HandleSystemStats)

	r.Route("/tenants", func(r chi.Router) {
		r.Get("/", h.HandleListTenants)
		r.Post("/", h.HandleCreateTenant)
		r.Route("/{tenantID}", func(r chi.Router) {
			r.Get("/", h.HandleGetTenant)
			r.Patch("/", h.HandleUpdateTenant)
			r.Patch("/storage-limit", h.HandleUpdateStorageLimit)
			r.Delete("/", h.HandleDeleteTenant)
			r.Get("/stats", h.HandleTenantStats)
		})
	})

	r.Route("/credentials", func(r chi.Router) {
		r.Get("/", h.HandleListCredentials)
		r.Post("/", h.HandleCreateCredential)
		r.Route("/{credentialID}", func(r chi.Router) {
			r.Put("/", h.HandleUpdateCredential)
			r.Delete("/", h.HandleDeleteCredential)
			r.Post("/test", h.HandleTestCredential)
		})
	})

	r.Get("/users", h.HandleListUsers)
	r.Get("/api-logs", h.HandleAPILogs)
	r.Post("/maintenance/reap-uploads", h.HandleReapUploads)
}

// HandleSystemStats returns the platform dashboard.
func (h *Handler) HandleSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.admin.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "system stats failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleCreateTenant provisions a tenant.
func (h *Handler) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTenantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, err := h.tenants.Create(ctx, tenantservice.CreateInput{
		Subdomain:      req.Subdomain,
		Name:           req.Name,
		Email:          req.Email,
		StorageLimitMB: req.StorageLimitMB,
		ExpiresInDays:  req.ExpiresInDays,
		AdminEmail:     req.AdminEmail,
		AdminPassword:  req.AdminPassword,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "create tenant failed", "error", err, "request_id", requestID)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toTenantResponse(tenant))
}

// HandleListTenants returns a page of tenants.
func (h *Handler) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	offset, limit := httputil.Pagination(r, 50, 200)

	tenants, err := h.tenants.List(ctx, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list tenants failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	resp := &TenantListResponse{Tenants: make([]*TenantResponse, 0, len(tenants))}
	for _, t := range tenants {
		resp.Tenants = append(resp.Tenants, toTenantResponse(t))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetTenant returns one tenant.
func (h *Handler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	tenant, err := h.tenants.Get(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
}

// HandleUpdateTenant applies a partial tenant update.
func (h *Handler) HandleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateTenantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, err := h.tenants.Update(ctx, tenantID, tenantservice.UpdateInput{
		Name:        req.Name,
		Email:       req.Email,
		ExpiresAt:   req.ExpiresAt,
		ClearExpiry: req.ClearExpiry,
		IsActive:    req.IsActive,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "update tenant failed", "error", err, "tenant_id", tenantID, "request_id", requestID)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
}

// HandleUpdateStorageLimit changes a tenant's quota ceiling.
func (h *Handler) HandleUpdateStorageLimit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[StorageLimitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, err := h.tenants.UpdateStorageLimit(ctx, tenantID, req.StorageLimitMB)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "update storage limit failed", "error", err, "tenant_id", tenantID, "request_id", requestID)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
}

// HandleDeleteTenant removes a tenant and everything it owns.
func (h *Handler) HandleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	if err := h.tenants.Delete(ctx, tenantID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "delete tenant failed", "error", err, "tenant_id", tenantID, "request_id", requestcontext.RequestID(ctx))
		}
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTenantStats returns one tenant's quota dashboard.
func (h *Handler) HandleTenantStats(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	stats, err := h.tenants.Stats(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTenantStatsResponse(stats))
}

// HandleListCredentials returns all stored credential sets without secrets.
func (h *Handler) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creds, err := h.admin.ListCredentials(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list credentials failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	resp := &CredentialListResponse{Credentials: make([]*CredentialResponse, 0, len(creds))}
	for _, c := range creds {
		resp.Credentials = append(resp.Credentials, toCredentialResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreateCredential stores a new credential set.
func (h *Handler) HandleCreateCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in, ok := h.credentialInput(w, req)
	if !ok {
		return
	}

	cred, err := h.admin.CreateCredential(ctx, in)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "create credential failed", "error", err, "request_id", requestID)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCredentialResponse(cred))
}

// HandleUpdateCredential replaces a credential set.
func (h *Handler) HandleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	credID, ok := h.credentialID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in, ok := h.credentialInput(w, req)
	if !ok {
		return
	}

	cred, err := h.admin.UpdateCredential(ctx, credID, in)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "update credential failed", "error", err, "credential_id", credID, "request_id", requestID)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// HandleDeleteCredential removes a credential set.
func (h *Handler) HandleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	credID, ok := h.credentialID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteCredential(r.Context(), credID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTestCredential probes a credential set against its provider.
func (h *Handler) HandleTestCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credID, ok := h.credentialID(w, r)
	if !ok {
		return
	}
	report, err := h.admin.TestCredential(ctx, credID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleListUsers returns a page of accounts across all tenants.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	offset, limit := httputil.Pagination(r, 50, 200)

	users, err := h.users.ListUsers(ctx, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list users failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	resp := &UserListResponse{Users: make([]*UserResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserResponse(u))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleAPILogs returns a page of the request audit trail. A tenant_id query
// parameter narrows it to one tenant.
func (h *Handler) HandleAPILogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	offset, limit := httputil.Pagination(r, 100, 500)

	filter := apilog.ListFilter{Offset: offset, Limit: limit}
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		tenantID, err := id.ParseTenantID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid tenant ID"))
			return
		}
		filter.TenantID = &tenantID
	}

	entries, err := h.admin.APILogs(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list api logs failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"logs": entries})
}

// HandleReapUploads reclaims reservations for uploads abandoned longer than
// the older_than_minutes window (default 60).
func (h *Handler) HandleReapUploads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	minutes := 60
	if raw := r.URL.Query().Get("older_than_minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "older_than_minutes must be a positive integer"))
			return
		}
		minutes = n
	}
	cutoff := requestcontext.Now(ctx).Add(-time.Duration(minutes) * time.Minute)

	reaped, err := h.reaper.ReapAbandoned(ctx, cutoff)
	if err != nil {
		h.logger.ErrorContext(ctx, "reap abandoned uploads failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"reaped": reaped})
}

func (h *Handler) tenantID(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid tenant ID"))
		return id.TenantID{}, false
	}
	return tenantID, true
}

func (h *Handler) credentialID(w http.ResponseWriter, r *http.Request) (id.CredentialID, bool) {
	credID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid credential ID"))
		return id.CredentialID{}, false
	}
	return credID, true
}

func (h *Handler) credentialInput(w http.ResponseWriter, req *CredentialRequest) (adminservice.CredentialInput, bool) {
	in := adminservice.CredentialInput{
		KeyID:      req.KeyID,
		Key:        req.Key,
		BucketName: req.BucketName,
		Endpoint:   req.Endpoint,
		IsActive:   req.IsActive,
	}
	if req.TenantID != "" {
		tenantID, err := id.ParseTenantID(req.TenantID)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid tenant ID"))
			return in, false
		}
		in.TenantID = &tenantID
	}
	return in, true
}
