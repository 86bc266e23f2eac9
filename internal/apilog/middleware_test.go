package apilog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "photoportal/pkg/domain"
)

// syncStore signals when an entry lands, since the middleware records
// asynchronously.
type syncStore struct {
	mu      sync.Mutex
	entries []*Entry
	done    chan struct{}
}

func newSyncStore() *syncStore {
	return &syncStore{done: make(chan struct{}, 8)}
}

func (s *syncStore) Record(_ context.Context, e *Entry) error {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *syncStore) List(context.Context, ListFilter) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries, nil
}

func (s *syncStore) wait(t *testing.T) *Entry {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit entry")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.entries)
	return s.entries[len(s.entries)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMiddlewareRecordsRequest(t *testing.T) {
	store := newSyncStore()
	userID := id.UserID(uuid.New())
	tenantID := id.TenantID(uuid.New())

	handler := Middleware(store, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AnnotateUser(r.Context(), userID)
		AnnotateTenant(r.Context(), tenantID)
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/photos/upload", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.RemoteAddr = "203.0.113.9:51234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	entry := store.wait(t)
	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, "/api/photos/upload", entry.Path)
	assert.Equal(t, http.StatusCreated, entry.StatusCode)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, userID, *entry.UserID)
	require.NotNil(t, entry.TenantID)
	assert.Equal(t, tenantID, *entry.TenantID)
	assert.Equal(t, "203.0.113.9", entry.IPAddress)
	assert.Equal(t, "Chrome", entry.Browser)
	assert.Contains(t, entry.OS, "Mac")
}

func TestMiddlewarePrefersForwardedFor(t *testing.T) {
	store := newSyncStore()
	handler := Middleware(store, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/photos", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	entry := store.wait(t)
	assert.Equal(t, "198.51.100.7", entry.IPAddress)
}

func TestMiddlewareSkipsInfraPaths(t *testing.T) {
	store := newSyncStore()
	handler := Middleware(store, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	select {
	case <-store.done:
		t.Fatal("infrastructure path should not be audited")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInMemoryListFiltersByTenant(t *testing.T) {
	store := NewInMemory()
	tenantA := id.TenantID(uuid.New())
	tenantB := id.TenantID(uuid.New())

	for i, tid := range []id.TenantID{tenantA, tenantB, tenantA} {
		err := store.Record(context.Background(), &Entry{
			ID:        uuid.New().String(),
			Method:    http.MethodGet,
			Path:      "/api/photos",
			TenantID:  &tid,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	entries, err := store.List(context.Background(), ListFilter{TenantID: &tenantA})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, tenantA, *e.TenantID)
	}
}

func TestParseUserAgentEmpty(t *testing.T) {
	browser, osName := ParseUserAgent("")
	assert.Empty(t, browser)
	assert.Empty(t, osName)
}
