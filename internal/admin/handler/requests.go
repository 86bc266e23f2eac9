package handler

import (
	"strings"
	"time"

	dErrors "photoportal/pkg/domain-errors"
)

// CreateTenantRequest provisions a tenant, optionally with its first admin
// account. Zero limits fall back to the configured defaults.
type CreateTenantRequest struct {
	Subdomain      string `json:"subdomain"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	StorageLimitMB int    `json:"storage_limit_mb"`
	ExpiresInDays  int    `json:"expires_in_days"`
	AdminEmail     string `json:"admin_email"`
	AdminPassword  string `json:"admin_password"`
}

func (r *CreateTenantRequest) Normalize() {
	r.Subdomain = strings.ToLower(strings.TrimSpace(r.Subdomain))
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.AdminEmail = strings.TrimSpace(r.AdminEmail)
}

func (r *CreateTenantRequest) Validate() error {
	if r.Subdomain == "" {
		return dErrors.New(dErrors.CodeValidation, "subdomain is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.AdminEmail != "" && r.AdminPassword == "" {
		return dErrors.New(dErrors.CodeValidation, "admin password is required when admin email is set")
	}
	return nil
}

// UpdateTenantRequest is a partial tenant update; omitted fields are left
// untouched.
type UpdateTenantRequest struct {
	Name        *string    `json:"name,omitempty"`
	Email       *string    `json:"email,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClearExpiry bool       `json:"clear_expiry,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

// StorageLimitRequest changes a tenant's quota ceiling.
type StorageLimitRequest struct {
	StorageLimitMB int `json:"storage_limit_mb"`
}

func (r *StorageLimitRequest) Validate() error {
	if r.StorageLimitMB <= 0 {
		return dErrors.New(dErrors.CodeValidation, "storage limit must be positive")
	}
	return nil
}

// CredentialRequest stores or replaces an S3 credential set. An empty
// tenant_id marks the shared default; an empty key on update keeps the
// stored secret.
type CredentialRequest struct {
	TenantID   string `json:"tenant_id,omitempty"`
	KeyID      string `json:"key_id"`
	Key        string `json:"key,omitempty"`
	BucketName string `json:"bucket_name"`
	Endpoint   string `json:"endpoint,omitempty"`
	IsActive   bool   `json:"is_active"`
}

func (r *CredentialRequest) Normalize() {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.KeyID = strings.TrimSpace(r.KeyID)
	r.BucketName = strings.TrimSpace(r.BucketName)
	r.Endpoint = strings.TrimSpace(r.Endpoint)
}

func (r *CredentialRequest) Validate() error {
	if r.KeyID == "" {
		return dErrors.New(dErrors.CodeValidation, "key ID is required")
	}
	if r.BucketName == "" {
		return dErrors.New(dErrors.CodeValidation, "bucket name is required")
	}
	return nil
}
