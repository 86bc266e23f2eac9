// Package store defines persistence contracts for the photo catalog and the
// usage ledger.
package store

import (
	"context"
	"time"

	"photoportal/internal/photo/models"
	"photoportal/internal/sentinel"
	id "photoportal/pkg/domain"
)

// ErrNotFound is returned when a photo is not found.
var ErrNotFound = sentinel.ErrNotFound

// Store persists the photo catalog.
type Store interface {
	// Create inserts the photo; the storage key must be unique.
	Create(ctx context.Context, p *models.Photo) error
	FindByID(ctx context.Context, photoID id.PhotoID) (*models.Photo, error)
	// ListByTenant returns the tenant's photos, newest first.
	ListByTenant(ctx context.Context, tenantID id.TenantID, offset, limit int) ([]*models.Photo, error)
	Update(ctx context.Context, p *models.Photo) error
	Delete(ctx context.Context, photoID id.PhotoID) error
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) error
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
	Count(ctx context.Context) (int, error)
	// ListUnconfirmedBefore returns pending photos uploaded before the
	// cutoff, for abandoned-reservation reaping.
	ListUnconfirmedBefore(ctx context.Context, cutoff time.Time) ([]*models.Photo, error)
}

// UsageStore persists the append-only usage ledger.
type UsageStore interface {
	Append(ctx context.Context, entry *models.UsageLog) error
	// ListByTenant returns the tenant's ledger entries, newest first.
	ListByTenant(ctx context.Context, tenantID id.TenantID, offset, limit int) ([]*models.UsageLog, error)
	// SumStorageByTenant returns the signed sum of the tenant's
	// storage-affecting entries (downloads are bandwidth-only and excluded),
	// which mirrors the tenant's used-bytes counter.
	SumStorageByTenant(ctx context.Context, tenantID id.TenantID) (int64, error)
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) error
}
