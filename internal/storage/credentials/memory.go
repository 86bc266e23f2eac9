package credentials

import (
	"context"
	"sort"
	"sync"

	id "photoportal/pkg/domain"
)

// InMemory stores credentials in memory for tests and the demo environment.
type InMemory struct {
	mu    sync.RWMutex
	creds map[string]*Credential
}

// NewInMemory creates an in-memory credential store.
func NewInMemory() *InMemory {
	return &InMemory{creds: make(map[string]*Credential)}
}

// Create stores the credential set.
func (s *InMemory) Create(_ context.Context, c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.creds[c.ID.String()] = &cp
	return nil
}

// FindByID retrieves a credential set by its UUID.
func (s *InMemory) FindByID(_ context.Context, credID id.CredentialID) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.creds[credID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrNotFound
}

// FindByTenant returns the tenant's active credential set.
func (s *InMemory) FindByTenant(_ context.Context, tenantID id.TenantID) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.creds {
		if c.IsActive && c.TenantID != nil && *c.TenantID == tenantID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// FindDefault returns the active shared default credential set.
func (s *InMemory) FindDefault(_ context.Context) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.creds {
		if c.IsActive && c.TenantID == nil {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// List returns all credential sets, newest first.
func (s *InMemory) List(_ context.Context) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*Credential, 0, len(s.creds))
	for _, c := range s.creds {
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}

// Update replaces the stored credential set.
func (s *InMemory) Update(_ context.Context, c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[c.ID.String()]; !ok {
		return ErrNotFound
	}
	cp := *c
	s.creds[c.ID.String()] = &cp
	return nil
}

// Delete removes the credential set.
func (s *InMemory) Delete(_ context.Context, credID id.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[credID.String()]; !ok {
		return ErrNotFound
	}
	delete(s.creds, credID.String())
	return nil
}

var _ Store = (*InMemory)(nil)
