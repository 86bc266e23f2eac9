package handler

import (
	"time"

	authmodels "photoportal/internal/auth/models"
	"photoportal/internal/storage/credentials"
	tenantmodels "photoportal/internal/tenant/models"
)

// TenantResponse is the full admin view of a tenant.
type TenantResponse struct {
	ID               string     `json:"id"`
	Subdomain        string     `json:"subdomain"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	StorageLimitMB   int        `json:"storage_limit_mb"`
	StorageUsedBytes int64      `json:"storage_used_bytes"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

type TenantListResponse struct {
	Tenants []*TenantResponse `json:"tenants"`
}

// TenantStatsResponse is one tenant's quota dashboard row.
type TenantStatsResponse struct {
	TenantID          string     `json:"tenant_id"`
	Subdomain         string     `json:"subdomain"`
	Name              string     `json:"name"`
	StorageLimitMB    int        `json:"storage_limit_mb"`
	StorageUsedBytes  int64      `json:"storage_used_bytes"`
	StoragePercentage float64    `json:"storage_percentage"`
	PhotoCount        int        `json:"photo_count"`
	UserCount         int        `json:"user_count"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

// CredentialResponse never carries the secret key.
type CredentialResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id,omitempty"`
	KeyID      string    `json:"key_id"`
	BucketName string    `json:"bucket_name"`
	Endpoint   string    `json:"endpoint,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type CredentialListResponse struct {
	Credentials []*CredentialResponse `json:"credentials"`
}

type UserResponse struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id,omitempty"`
	Email         string    `json:"email"`
	IsAdmin       bool      `json:"is_admin"`
	IsTenantAdmin bool      `json:"is_tenant_admin"`
	CreatedAt     time.Time `json:"created_at"`
}

type UserListResponse struct {
	Users []*UserResponse `json:"users"`
}

func toTenantResponse(t *tenantmodels.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:               t.ID.String(),
		Subdomain:        t.Subdomain,
		Name:             t.Name,
		Email:            t.Email,
		StorageLimitMB:   t.StorageLimitMB,
		StorageUsedBytes: t.StorageUsedBytes,
		IsActive:         t.IsActive,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		ExpiresAt:        t.ExpiresAt,
	}
}

func toTenantStatsResponse(s *tenantmodels.Stats) *TenantStatsResponse {
	return &TenantStatsResponse{
		TenantID:          s.TenantID.String(),
		Subdomain:         s.Subdomain,
		Name:              s.Name,
		StorageLimitMB:    s.StorageLimitMB,
		StorageUsedBytes:  s.StorageUsedBytes,
		StoragePercentage: s.StoragePercentage,
		PhotoCount:        s.PhotoCount,
		UserCount:         s.UserCount,
		IsActive:          s.IsActive,
		CreatedAt:         s.CreatedAt,
		ExpiresAt:         s.ExpiresAt,
	}
}

func toCredentialResponse(c *credentials.Credential) *CredentialResponse {
	resp := &CredentialResponse{
		ID:         c.ID.String(),
		KeyID:      c.KeyID,
		BucketName: c.BucketName,
		Endpoint:   c.Endpoint,
		IsActive:   c.IsActive,
		CreatedAt:  c.CreatedAt,
	}
	if c.TenantID != nil {
		resp.TenantID = c.TenantID.String()
	}
	return resp
}

func toUserResponse(u *authmodels.User) *UserResponse {
	resp := &UserResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		IsAdmin:       u.IsAdmin,
		IsTenantAdmin: u.IsTenantAdmin,
		CreatedAt:     u.CreatedAt,
	}
	if !u.TenantID.IsNil() {
		resp.TenantID = u.TenantID.String()
	}
	return resp
}
