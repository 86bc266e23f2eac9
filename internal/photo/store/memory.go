package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"photoportal/internal/photo/models"
	"photoportal/internal/sentinel"
	id "photoportal/pkg/domain"
)

// InMemory stores photos in memory for tests and the demo environment.
type InMemory struct {
	mu     sync.RWMutex
	photos map[string]*models.Photo
	keyIdx map[string]string
}

// NewInMemory creates an in-memory photo store.
func NewInMemory() *InMemory {
	return &InMemory{
		photos: make(map[string]*models.Photo),
		keyIdx: make(map[string]string),
	}
}

// Create inserts the photo; the storage key must be unique.
func (s *InMemory) Create(_ context.Context, p *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keyIdx[p.StorageKey]; exists {
		return fmt.Errorf("photo storage key must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *p
	s.photos[p.ID.String()] = &cp
	s.keyIdx[p.StorageKey] = p.ID.String()
	return nil
}

// FindByID retrieves a photo by its UUID.
func (s *InMemory) FindByID(_ context.Context, photoID id.PhotoID) (*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.photos[photoID.String()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

// ListByTenant returns the tenant's photos, newest first.
func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID, offset, limit int) ([]*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Photo
	for _, p := range s.photos {
		if p.TenantID == tenantID {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UploadedAt.After(matched[j].UploadedAt) })

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// Update replaces the stored photo.
func (s *InMemory) Update(_ context.Context, p *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.photos[p.ID.String()]; !ok {
		return ErrNotFound
	}
	cp := *p
	s.photos[p.ID.String()] = &cp
	return nil
}

// Delete removes the photo and its key index entry.
func (s *InMemory) Delete(_ context.Context, photoID id.PhotoID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[photoID.String()]
	if !ok {
		return ErrNotFound
	}
	delete(s.keyIdx, p.StorageKey)
	delete(s.photos, photoID.String())
	return nil
}

// DeleteByTenant removes all photos belonging to the tenant.
func (s *InMemory) DeleteByTenant(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, p := range s.photos {
		if p.TenantID == tenantID {
			delete(s.keyIdx, p.StorageKey)
			delete(s.photos, key)
		}
	}
	return nil
}

// CountByTenant returns the number of photos belonging to the tenant.
func (s *InMemory) CountByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.photos {
		if p.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// Count returns the total number of photos across all tenants.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos), nil
}

// ListUnconfirmedBefore returns pending photos uploaded before the cutoff.
func (s *InMemory) ListUnconfirmedBefore(_ context.Context, cutoff time.Time) ([]*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Photo
	for _, p := range s.photos {
		if !p.IsConfirmed() && p.UploadedAt.Before(cutoff) {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UploadedAt.Before(matched[j].UploadedAt) })
	return matched, nil
}

var _ Store = (*InMemory)(nil)

// UsageInMemory stores ledger entries in memory.
type UsageInMemory struct {
	mu      sync.RWMutex
	entries []*models.UsageLog
}

// NewUsageInMemory creates an in-memory usage ledger.
func NewUsageInMemory() *UsageInMemory {
	return &UsageInMemory{}
}

// Append adds the entry to the ledger.
func (s *UsageInMemory) Append(_ context.Context, entry *models.UsageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

// ListByTenant returns the tenant's entries, newest first.
func (s *UsageInMemory) ListByTenant(_ context.Context, tenantID id.TenantID, offset, limit int) ([]*models.UsageLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.UsageLog
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].TenantID == tenantID {
			cp := *s.entries[i]
			matched = append(matched, &cp)
		}
	}

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// SumStorageByTenant returns the signed sum of the tenant's storage-affecting
// entries. Download entries track bandwidth and are excluded.
func (s *UsageInMemory) SumStorageByTenant(_ context.Context, tenantID id.TenantID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.LogType != models.LogDownload {
			sum += e.BytesTransferred
		}
	}
	return sum, nil
}

// DeleteByTenant removes all entries belonging to the tenant.
func (s *UsageInMemory) DeleteByTenant(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.TenantID != tenantID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

var _ UsageStore = (*UsageInMemory)(nil)
