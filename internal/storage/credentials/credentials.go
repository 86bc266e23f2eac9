// Package credentials persists S3 credential sets: per-tenant overrides plus
// the shared default row used by tenants without credentials of their own.
package credentials

import (
	"context"
	"time"

	"photoportal/internal/sentinel"
	id "photoportal/pkg/domain"
)

// ErrNotFound is returned when no matching credential exists.
var ErrNotFound = sentinel.ErrNotFound

// Credential is one stored S3 credential set. A nil TenantID marks the shared
// default.
type Credential struct {
	ID         id.CredentialID `json:"id"`
	TenantID   *id.TenantID    `json:"tenant_id,omitempty"`
	KeyID      string          `json:"key_id"`
	Key        string          `json:"-"`
	BucketName string          `json:"bucket_name"`
	Endpoint   string          `json:"endpoint"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Store persists credential sets.
type Store interface {
	Create(ctx context.Context, c *Credential) error
	FindByID(ctx context.Context, credID id.CredentialID) (*Credential, error)
	// FindByTenant returns the tenant's active credential set.
	FindByTenant(ctx context.Context, tenantID id.TenantID) (*Credential, error)
	// FindDefault returns the active shared default credential set.
	FindDefault(ctx context.Context) (*Credential, error)
	List(ctx context.Context) ([]*Credential, error)
	Update(ctx context.Context, c *Credential) error
	Delete(ctx context.Context, credID id.CredentialID) error
}
