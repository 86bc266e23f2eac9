package apilog

import (
	"context"
	"sync"
)

// memoryCap bounds the in-memory audit buffer; oldest entries are dropped.
const memoryCap = 10000

// InMemory keeps a bounded, newest-first audit buffer for tests and the demo
// environment.
type InMemory struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewInMemory creates an in-memory audit store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Record appends the entry, evicting the oldest past capacity.
func (s *InMemory) Record(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries = append(s.entries, &cp)
	if len(s.entries) > memoryCap {
		s.entries = s.entries[len(s.entries)-memoryCap:]
	}
	return nil
}

// List returns entries newest first, optionally filtered by tenant.
func (s *InMemory) List(_ context.Context, filter ListFilter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.TenantID != nil && (e.TenantID == nil || *e.TenantID != *filter.TenantID) {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	end := filter.Offset + filter.Limit
	if filter.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

var _ Store = (*InMemory)(nil)
