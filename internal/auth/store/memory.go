package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"photoportal/internal/auth/models"
	"photoportal/internal/sentinel"
	id "photoportal/pkg/domain"
)

// InMemory stores users in memory for tests and the demo environment.
type InMemory struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	emailIdx map[string]string
}

// NewInMemory creates an in-memory user store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:    make(map[string]*models.User),
		emailIdx: make(map[string]string),
	}
}

// CreateIfEmailAvailable atomically creates the user if the email is not
// already taken (case-insensitive).
func (s *InMemory) CreateIfEmailAvailable(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(u.Email)
	if _, exists := s.emailIdx[lower]; exists {
		return fmt.Errorf("user email must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	key := u.ID.String()
	cp := *u
	s.users[key] = &cp
	s.emailIdx[lower] = key
	return nil
}

// FindByID retrieves a user by its UUID.
func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID.String()]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

// FindByEmail retrieves a user by email (case-insensitive).
func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok := s.emailIdx[strings.ToLower(email)]; ok {
		cp := *s.users[key]
		return &cp, nil
	}
	return nil, ErrNotFound
}

// List returns users ordered by creation time, newest first.
func (s *InMemory) List(_ context.Context, offset, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
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

// ListByTenant returns the tenant's users ordered by creation time, newest first.
func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.User
	for _, u := range s.users {
		if u.TenantID == tenantID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update replaces the stored user. Email is immutable after creation.
func (s *InMemory) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := u.ID.String()
	existing, ok := s.users[key]
	if !ok {
		return ErrNotFound
	}
	cp := *u
	cp.Email = existing.Email
	s.users[key] = &cp
	return nil
}

// DeleteByTenant removes all users belonging to the tenant.
func (s *InMemory) DeleteByTenant(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, u := range s.users {
		if u.TenantID == tenantID {
			delete(s.emailIdx, strings.ToLower(u.Email))
			delete(s.users, key)
		}
	}
	return nil
}

// CountByTenant returns the number of users belonging to the tenant.
func (s *InMemory) CountByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// Count returns the total number of accounts.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

var _ Store = (*InMemory)(nil)
