// Package store defines the user account store contract.
package store

import (
	"context"

	"photoportal/internal/auth/models"
	"photoportal/internal/sentinel"
	id "photoportal/pkg/domain"
)

// ErrNotFound is returned when a user is not found.
var ErrNotFound = sentinel.ErrNotFound

// Store persists user accounts. CreateIfEmailAvailable must be atomic; email
// uniqueness is global across tenants (case-insensitive).
type Store interface {
	CreateIfEmailAvailable(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]*models.User, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.User, error)
	Update(ctx context.Context, u *models.User) error
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) error
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
	Count(ctx context.Context) (int, error)
}
