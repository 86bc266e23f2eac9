// Package service implements the tenant lifecycle: provisioning with a
// subdomain claim and first admin user, quota limit changes, deactivation and
// cascading deletion.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	authmodels "photoportal/internal/auth/models"
	authservice "photoportal/internal/auth/service"
	"photoportal/internal/dns"
	photomodels "photoportal/internal/photo/models"
	"photoportal/internal/sentinel"
	"photoportal/internal/storage"
	"photoportal/internal/tenant/metrics"
	"photoportal/internal/tenant/models"
	"photoportal/internal/tenant/store"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/requestcontext"
)

// UserProvisioner creates the tenant's first admin account.
type UserProvisioner interface {
	CreateUser(ctx context.Context, in authservice.CreateUserInput) (*authmodels.User, error)
}

// UserDirectory is the slice of the user store the cascade needs.
type UserDirectory interface {
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) error
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

// PhotoCatalog is the slice of the photo stores the cascade needs.
type PhotoCatalog interface {
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) error
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

// UsageLedger is the slice of the usage store the cascade needs.
type UsageLedger interface {
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) error
}

// StoreProvider resolves the object store holding the tenant's photos.
type StoreProvider interface {
	ForTenant(ctx context.Context, t *models.Tenant) (storage.ObjectStore, error)
}

// Defaults are applied when a create request omits limits.
type Defaults struct {
	StorageLimitMB int
	ExpiryDays     int
}

// TenantService owns tenant provisioning and lifecycle.
type TenantService struct {
	tenants  store.Store
	users    UserDirectory
	photos   PhotoCatalog
	usage    UsageLedger
	provider StoreProvider
	accounts UserProvisioner
	dns      dns.Provider
	defaults Defaults
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures optional collaborators on the TenantService.
type Option func(*TenantService)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *TenantService) {
		s.metrics = m
	}
}

// NewTenantService creates a TenantService.
func NewTenantService(
	tenants store.Store,
	users UserDirectory,
	photos PhotoCatalog,
	usage UsageLedger,
	provider StoreProvider,
	accounts UserProvisioner,
	dnsProvider dns.Provider,
	defaults Defaults,
	logger *slog.Logger,
	opts ...Option,
) *TenantService {
	if dnsProvider == nil {
		dnsProvider = dns.Noop{}
	}
	s := &TenantService{
		tenants:  tenants,
		users:    users,
		photos:   photos,
		usage:    usage,
		provider: provider,
		accounts: accounts,
		dns:      dnsProvider,
		defaults: defaults,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput describes a tenant provisioning request.
type CreateInput struct {
	Subdomain      string
	Name           string
	Email          string
	StorageLimitMB int
	ExpiresInDays  int
	AdminEmail     string
	AdminPassword  string
}

// Create provisions a tenant: claims the subdomain, creates the first tenant
// admin account when one was supplied, and registers the subdomain record.
// DNS registration is best-effort; its failure never fails the create.
func (s *TenantService) Create(ctx context.Context, in CreateInput) (*models.Tenant, error) {
	now := requestcontext.Now(ctx)

	limitMB := in.StorageLimitMB
	if limitMB <= 0 {
		limitMB = s.defaults.StorageLimitMB
	}
	expiryDays := in.ExpiresInDays
	if expiryDays <= 0 {
		expiryDays = s.defaults.ExpiryDays
	}
	var expiresAt *time.Time
	if expiryDays > 0 {
		t := now.AddDate(0, 0, expiryDays)
		expiresAt = &t
	}

	tenant, err := models.NewTenant(id.TenantID(uuid.New()), in.Subdomain, in.Name, in.Email, limitMB, expiresAt, now)
	if err != nil {
		return nil, err
	}

	if err := s.tenants.CreateIfSubdomainAvailable(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "subdomain is already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}

	if in.AdminEmail != "" {
		_, err := s.accounts.CreateUser(ctx, authservice.CreateUserInput{
			TenantID:      tenant.ID,
			Email:         in.AdminEmail,
			Password:      in.AdminPassword,
			IsTenantAdmin: true,
		})
		if err != nil {
			// The tenant must not exist without its admin account.
			if delErr := s.tenants.Delete(ctx, tenant.ID); delErr != nil {
				s.logger.ErrorContext(ctx, "failed to roll back tenant after user creation failure",
					"error", delErr,
					"tenant_id", tenant.ID,
				)
			}
			return nil, err
		}
	}

	if err := s.dns.EnsureRecord(ctx, tenant.Subdomain); err != nil {
		s.logger.WarnContext(ctx, "dns record creation failed",
			"error", err,
			"subdomain", tenant.Subdomain,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	if s.metrics != nil {
		s.metrics.IncrementTenantCreated()
	}
	s.logger.InfoContext(ctx, "tenant created",
		"tenant_id", tenant.ID,
		"subdomain", tenant.Subdomain,
		"storage_limit_mb", tenant.StorageLimitMB,
	)
	return tenant, nil
}

// Get returns the tenant by ID.
func (s *TenantService) Get(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find tenant")
	}
	return tenant, nil
}

// List returns a page of tenants.
func (s *TenantService) List(ctx context.Context, offset, limit int) ([]*models.Tenant, error) {
	tenants, err := s.tenants.List(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tenants")
	}
	return tenants, nil
}

// UpdateInput carries a partial tenant update; nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Email       *string
	ExpiresAt   *time.Time
	ClearExpiry bool
	IsActive    *bool
}

// Update applies a partial update to the tenant. Activation changes go
// through the guarded state transitions.
func (s *TenantService) Update(ctx context.Context, tenantID id.TenantID, in UpdateInput) (*models.Tenant, error) {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	if in.Name != nil {
		name := *in.Name
		if name == "" || len(name) > 200 {
			return nil, dErrors.New(dErrors.CodeValidation, "tenant name must be 1-200 characters")
		}
		tenant.Name = name
	}
	if in.Email != nil {
		if !strings.Contains(*in.Email, "@") {
			return nil, dErrors.New(dErrors.CodeValidation, "contact email is invalid")
		}
		tenant.Email = *in.Email
	}
	if in.ClearExpiry {
		tenant.ExpiresAt = nil
	} else if in.ExpiresAt != nil {
		tenant.ExpiresAt = in.ExpiresAt
	}
	if in.IsActive != nil && *in.IsActive != tenant.IsActive {
		if *in.IsActive {
			err = tenant.Reactivate(now)
		} else {
			err = tenant.Deactivate(now)
		}
		if err != nil {
			return nil, err
		}
	}
	tenant.UpdatedAt = now

	if err := s.tenants.Update(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update tenant")
	}
	return tenant, nil
}

// UpdateStorageLimit changes the tenant's quota ceiling. Lowering the limit
// below the bytes already stored is rejected.
func (s *TenantService) UpdateStorageLimit(ctx context.Context, tenantID id.TenantID, limitMB int) (*models.Tenant, error) {
	if limitMB <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "storage limit must be positive")
	}

	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if int64(limitMB)*models.BytesPerMB < tenant.StorageUsedBytes {
		return nil, dErrors.New(dErrors.CodeConflict, "storage limit is below current usage")
	}

	tenant.StorageLimitMB = limitMB
	tenant.UpdatedAt = requestcontext.Now(ctx)
	if err := s.tenants.Update(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update tenant")
	}
	return tenant, nil
}

// Delete removes the tenant and everything it owns: stored objects
// (best-effort), photos, usage logs, user accounts, the directory row and the
// DNS record.
func (s *TenantService) Delete(ctx context.Context, tenantID id.TenantID) error {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	s.deleteObjects(ctx, tenant)

	if err := s.photos.DeleteByTenant(ctx, tenant.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete tenant photos")
	}
	if err := s.usage.DeleteByTenant(ctx, tenant.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete tenant usage logs")
	}
	if err := s.users.DeleteByTenant(ctx, tenant.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete tenant users")
	}
	if err := s.tenants.Delete(ctx, tenant.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete tenant")
	}

	if err := s.dns.RemoveRecord(ctx, tenant.Subdomain); err != nil {
		s.logger.WarnContext(ctx, "dns record removal failed",
			"error", err,
			"subdomain", tenant.Subdomain,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	if s.metrics != nil {
		s.metrics.IncrementTenantDeleted()
	}
	s.logger.InfoContext(ctx, "tenant deleted",
		"tenant_id", tenant.ID,
		"subdomain", tenant.Subdomain,
	)
	return nil
}

// Stats returns the tenant's quota dashboard view.
func (s *TenantService) Stats(ctx context.Context, tenantID id.TenantID) (*models.Stats, error) {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	photoCount, err := s.photos.CountByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count photos")
	}
	userCount, err := s.users.CountByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
	}

	stats := models.NewStats(tenant, photoCount, userCount)
	return &stats, nil
}

// deleteObjects removes the tenant's objects from storage. Failures are
// logged and skipped so a storage outage cannot block tenant deletion; the
// orphaned objects stay under the tenant prefix for manual cleanup.
func (s *TenantService) deleteObjects(ctx context.Context, tenant *models.Tenant) {
	objStore, err := s.provider.ForTenant(ctx, tenant)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping object cleanup, storage unavailable",
			"error", err,
			"tenant_id", tenant.ID,
		)
		return
	}

	prefix := photomodels.TenantPrefix(tenant.ID)
	objects, err := objStore.ListPrefix(ctx, prefix)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping object cleanup, listing failed",
			"error", err,
			"tenant_id", tenant.ID,
		)
		return
	}
	for _, obj := range objects {
		if err := objStore.Delete(ctx, obj.Key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete object",
				"error", err,
				"key", obj.Key,
				"tenant_id", tenant.ID,
			)
		}
	}
}
