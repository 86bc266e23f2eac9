// Package store defines the tenant directory contract and its sentinels.
package store

import (
	"context"

	"photoportal/internal/sentinel"
	"photoportal/internal/tenant/models"
	id "photoportal/pkg/domain"
)

// ErrNotFound is returned when a tenant is not found.
var ErrNotFound = sentinel.ErrNotFound

// Store is the tenant directory. Implementations must make
// CreateIfSubdomainAvailable, ReserveStorage, and AdjustStorage atomic per
// tenant; everything else is plain CRUD.
type Store interface {
	// CreateIfSubdomainAvailable atomically creates the tenant if the
	// subdomain is not already taken (case-insensitive).
	CreateIfSubdomainAvailable(ctx context.Context, t *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	List(ctx context.Context, offset, limit int) ([]*models.Tenant, error)
	Update(ctx context.Context, t *models.Tenant) error
	// Delete removes the tenant; persisted implementations cascade to
	// users, photos, and usage logs.
	Delete(ctx context.Context, tenantID id.TenantID) error
	Count(ctx context.Context) (int, error)
	// SumStorageUsed returns the platform-wide sum of used-bytes counters.
	SumStorageUsed(ctx context.Context) (int64, error)

	// ReserveStorage adds delta to the tenant's used counter only if the
	// result stays within the storage limit. Negative deltas always apply
	// (clamped at zero). Returns the resulting counter and whether the
	// reservation was admitted. The check and the mutation are a single
	// atomic unit per tenant.
	ReserveStorage(ctx context.Context, tenantID id.TenantID, delta int64) (used int64, ok bool, err error)

	// AdjustStorage unconditionally adds delta to the used counter,
	// clamping at zero. Returns the resulting counter and whether clamping
	// occurred.
	AdjustStorage(ctx context.Context, tenantID id.TenantID, delta int64) (used int64, clamped bool, err error)
}
