package handler

import (
	"time"

	"photoportal/internal/tenant/models"
)

// InfoResponse is the public portal identity for a tenant subdomain.
type InfoResponse struct {
	ID        string `json:"id"`
	Subdomain string `json:"subdomain"`
	Name      string `json:"name"`
	// DaysRemaining is absent for tenants without an expiry.
	DaysRemaining *int `json:"days_remaining,omitempty"`
}

// StorageResponse is the tenant's quota dashboard.
type StorageResponse struct {
	StorageLimitMB    int        `json:"storage_limit_mb"`
	StorageUsedBytes  int64      `json:"storage_used_bytes"`
	AvailableBytes    int64      `json:"available_bytes"`
	StoragePercentage float64    `json:"storage_percentage"`
	PhotoCount        int        `json:"photo_count"`
	UserCount         int        `json:"user_count"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

func toInfoResponse(t *models.Tenant, now time.Time) *InfoResponse {
	resp := &InfoResponse{
		ID:        t.ID.String(),
		Subdomain: t.Subdomain,
		Name:      t.Name,
	}
	if t.ExpiresAt != nil {
		days := int(t.ExpiresAt.Sub(now).Hours() / 24)
		if days < 0 {
			days = 0
		}
		resp.DaysRemaining = &days
	}
	return resp
}

func toStorageResponse(stats *models.Stats) *StorageResponse {
	limitBytes := int64(stats.StorageLimitMB) * models.BytesPerMB
	available := limitBytes - stats.StorageUsedBytes
	if available < 0 {
		available = 0
	}
	return &StorageResponse{
		StorageLimitMB:    stats.StorageLimitMB,
		StorageUsedBytes:  stats.StorageUsedBytes,
		AvailableBytes:    available,
		StoragePercentage: stats.StoragePercentage,
		PhotoCount:        stats.PhotoCount,
		UserCount:         stats.UserCount,
		ExpiresAt:         stats.ExpiresAt,
	}
}
