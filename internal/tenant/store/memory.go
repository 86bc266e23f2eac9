package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"photoportal/internal/sentinel"
	"photoportal/internal/tenant/models"
	id "photoportal/pkg/domain"
)

// InMemory stores tenants in memory for tests and the demo environment.
type InMemory struct {
	mu           sync.RWMutex
	tenants      map[string]*models.Tenant
	subdomainIdx map[string]string
}

// NewInMemory creates an in-memory tenant store.
func NewInMemory() *InMemory {
	return &InMemory{
		tenants:      make(map[string]*models.Tenant),
		subdomainIdx: make(map[string]string),
	}
}

// CreateIfSubdomainAvailable atomically creates the tenant if the subdomain is
// not already taken (case-insensitive).
func (s *InMemory) CreateIfSubdomainAvailable(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(t.Subdomain)
	if _, exists := s.subdomainIdx[lower]; exists {
		return fmt.Errorf("tenant subdomain must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	key := t.ID.String()
	cp := *t
	s.tenants[key] = &cp
	s.subdomainIdx[lower] = key
	return nil
}

// FindByID retrieves a tenant by its UUID.
func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID.String()]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, ErrNotFound
}

// FindBySubdomain retrieves a tenant by subdomain (case-insensitive).
func (s *InMemory) FindBySubdomain(_ context.Context, subdomain string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok := s.subdomainIdx[strings.ToLower(subdomain)]; ok {
		cp := *s.tenants[key]
		return &cp, nil
	}
	return nil, ErrNotFound
}

// List returns tenants ordered by creation time, newest first.
func (s *InMemory) List(_ context.Context, offset, limit int) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		cp := *t
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Update replaces the stored tenant.
func (s *InMemory) Update(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := t.ID.String()
	existing, ok := s.tenants[key]
	if !ok {
		return ErrNotFound
	}
	// Subdomain is immutable after creation; keep the index consistent.
	cp := *t
	cp.Subdomain = existing.Subdomain
	s.tenants[key] = &cp
	return nil
}

// Delete removes the tenant and its subdomain index entry.
func (s *InMemory) Delete(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenantID.String()
	t, ok := s.tenants[key]
	if !ok {
		return ErrNotFound
	}
	delete(s.subdomainIdx, strings.ToLower(t.Subdomain))
	delete(s.tenants, key)
	return nil
}

// Count returns the total number of tenants.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants), nil
}

// SumStorageUsed returns the platform-wide sum of used-bytes counters.
func (s *InMemory) SumStorageUsed(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, t := range s.tenants {
		total += t.StorageUsedBytes
	}
	return total, nil
}

// ReserveStorage performs the check-and-reserve under the store mutex so two
// concurrent reservations against one tenant cannot jointly overshoot.
func (s *InMemory) ReserveStorage(_ context.Context, tenantID id.TenantID, delta int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID.String()]
	if !ok {
		return 0, false, ErrNotFound
	}

	if delta > 0 && t.StorageUsedBytes+delta > t.StorageLimitBytes() {
		return t.StorageUsedBytes, false, nil
	}

	t.StorageUsedBytes += delta
	if t.StorageUsedBytes < 0 {
		t.StorageUsedBytes = 0
	}
	return t.StorageUsedBytes, true, nil
}

// AdjustStorage unconditionally applies delta, clamping at zero.
func (s *InMemory) AdjustStorage(_ context.Context, tenantID id.TenantID, delta int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID.String()]
	if !ok {
		return 0, false, ErrNotFound
	}

	next := t.StorageUsedBytes + delta
	clamped := next < 0
	if clamped {
		next = 0
	}
	t.StorageUsedBytes = next
	return next, clamped, nil
}
