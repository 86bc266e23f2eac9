// Package models holds the tenant aggregate and its invariants.
package models

import (
	"regexp"
	"strings"
	"time"

	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
)

// BytesPerMB converts the tenant storage limit (whole megabytes) to bytes.
const BytesPerMB = int64(1024 * 1024)

// ReservedSubdomains can never be claimed by a tenant; they route to the
// admin surface or the bare portal.
var ReservedSubdomains = map[string]bool{
	"www":   true,
	"admin": true,
	"api":   true,
}

// validSubdomain enforces DNS-label-safe tenant subdomains.
var validSubdomain = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Tenant is an isolated customer account identified by a unique subdomain.
// StorageUsedBytes is the denormalized running total of the usage ledger and
// must only be adjusted through the quota accountant.
type Tenant struct {
	ID        id.TenantID `json:"id"`
	Subdomain string      `json:"subdomain"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`

	// Optional tenant-specific object storage credentials. When empty the
	// shared default credentials are used.
	StorageKeyID  string `json:"-"`
	StorageKey    string `json:"-"`
	StorageBucket string `json:"-"`

	StorageLimitMB   int   `json:"storage_limit_mb"`
	StorageUsedBytes int64 `json:"storage_used_bytes"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// NewTenant validates inputs and builds an active tenant.
func NewTenant(tenantID id.TenantID, subdomain, name, email string, limitMB int, expiresAt *time.Time, now time.Time) (*Tenant, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if !validSubdomain.MatchString(subdomain) {
		return nil, dErrors.New(dErrors.CodeValidation, "subdomain must be a valid DNS label")
	}
	if ReservedSubdomains[subdomain] {
		return nil, dErrors.New(dErrors.CodeValidation, "subdomain is reserved")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name cannot be empty")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name must be 200 characters or less")
	}
	if !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "contact email is invalid")
	}
	if limitMB <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "storage limit must be positive")
	}

	return &Tenant{
		ID:             tenantID,
		Subdomain:      subdomain,
		Name:           name,
		Email:          email,
		StorageLimitMB: limitMB,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      expiresAt,
		IsActive:       true,
	}, nil
}

// StorageLimitBytes returns the quota ceiling in bytes.
func (t *Tenant) StorageLimitBytes() int64 {
	return int64(t.StorageLimitMB) * BytesPerMB
}

// AvailableBytes returns the remaining headroom under the quota, never negative.
func (t *Tenant) AvailableBytes() int64 {
	avail := t.StorageLimitBytes() - t.StorageUsedBytes
	if avail < 0 {
		return 0
	}
	return avail
}

// IsExpired reports whether the tenant's subscription lapsed before now.
func (t *Tenant) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// HasOwnCredentials reports whether the tenant carries storage credentials of its own.
func (t *Tenant) HasOwnCredentials() bool {
	return t.StorageKeyID != "" && t.StorageKey != "" && t.StorageBucket != ""
}

// Deactivate transitions the tenant to inactive status.
// Returns an error if the tenant is already inactive.
func (t *Tenant) Deactivate(now time.Time) error {
	if !t.IsActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already inactive")
	}
	t.IsActive = false
	t.UpdatedAt = now
	return nil
}

// Reactivate transitions the tenant to active status.
// Returns an error if the tenant is already active.
func (t *Tenant) Reactivate(now time.Time) error {
	if t.IsActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already active")
	}
	t.IsActive = true
	t.UpdatedAt = now
	return nil
}

// Stats aggregates tenant quota state for dashboards.
// Internal type - converted to a response DTO for HTTP serialization.
type Stats struct {
	TenantID          id.TenantID
	Subdomain         string
	Name              string
	StorageLimitMB    int
	StorageUsedBytes  int64
	StoragePercentage float64
	PhotoCount        int
	UserCount         int
	CreatedAt         time.Time
	ExpiresAt         *time.Time
	IsActive          bool
}

// NewStats derives the dashboard view from a tenant and its counts.
func NewStats(t *Tenant, photoCount, userCount int) Stats {
	pct := 0.0
	if limit := t.StorageLimitBytes(); limit > 0 {
		pct = float64(t.StorageUsedBytes) / float64(limit) * 100
	}
	return Stats{
		TenantID:          t.ID,
		Subdomain:         t.Subdomain,
		Name:              t.Name,
		StorageLimitMB:    t.StorageLimitMB,
		StorageUsedBytes:  t.StorageUsedBytes,
		StoragePercentage: pct,
		PhotoCount:        photoCount,
		UserCount:         userCount,
		CreatedAt:         t.CreatedAt,
		ExpiresAt:         t.ExpiresAt,
		IsActive:          t.IsActive,
	}
}
