package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoportal/internal/sentinel"
	"photoportal/internal/tenant/models"
	id "photoportal/pkg/domain"
)

func seedTenant(t *testing.T, s *InMemory, subdomain string, limitMB int) *models.Tenant {
	t.Helper()
	tenant, err := models.NewTenant(id.TenantID(uuid.New()), subdomain, "Tenant "+subdomain, subdomain+"@test.io", limitMB, nil, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, s.CreateIfSubdomainAvailable(context.Background(), tenant))
	return tenant
}

func TestCreateRejectsDuplicateSubdomain(t *testing.T) {
	s := NewInMemory()
	seedTenant(t, s, "acme", 500)

	dup, err := models.NewTenant(id.TenantID(uuid.New()), "ACME", "Other", "o@test.io", 100, nil, time.Now().UTC())
	require.NoError(t, err)
	err = s.CreateIfSubdomainAvailable(context.Background(), dup)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestFindBySubdomainCaseInsensitive(t *testing.T) {
	s := NewInMemory()
	created := seedTenant(t, s, "acme", 500)

	found, err := s.FindBySubdomain(context.Background(), "AcMe")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = s.FindBySubdomain(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesSubdomainIndex(t *testing.T) {
	s := NewInMemory()
	created := seedTenant(t, s, "acme", 500)

	require.NoError(t, s.Delete(context.Background(), created.ID))
	_, err := s.FindBySubdomain(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrNotFound)

	// Subdomain can be reused after deletion.
	seedTenant(t, s, "acme", 250)
}

func TestReserveStorageWithinLimit(t *testing.T) {
	s := NewInMemory()
	tenant := seedTenant(t, s, "acme", 500)
	ctx := context.Background()

	used, ok, err := s.ReserveStorage(ctx, tenant.ID, 100*models.BytesPerMB)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 100*models.BytesPerMB, used)

	// 490MB total would fit; 500MB limit with 100 used means 410 is too much.
	used, ok, err = s.ReserveStorage(ctx, tenant.ID, 410*models.BytesPerMB)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 100*models.BytesPerMB, used, "rejected reserve must not mutate")
}

func TestReserveStorageNegativeDeltaAlwaysSucceeds(t *testing.T) {
	s := NewInMemory()
	tenant := seedTenant(t, s, "acme", 500)
	ctx := context.Background()

	_, ok, err := s.ReserveStorage(ctx, tenant.ID, 50*models.BytesPerMB)
	require.NoError(t, err)
	require.True(t, ok)

	used, ok, err := s.ReserveStorage(ctx, tenant.ID, -80*models.BytesPerMB)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, used, "negative reserve clamps at zero")
}

func TestAdjustStorageClamps(t *testing.T) {
	s := NewInMemory()
	tenant := seedTenant(t, s, "acme", 500)
	ctx := context.Background()

	used, clamped, err := s.AdjustStorage(ctx, tenant.ID, 10*models.BytesPerMB)
	require.NoError(t, err)
	assert.False(t, clamped)
	assert.Equal(t, 10*models.BytesPerMB, used)

	used, clamped, err = s.AdjustStorage(ctx, tenant.ID, -25*models.BytesPerMB)
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.Zero(t, used)
}

func TestReserveStorageMissingTenant(t *testing.T) {
	s := NewInMemory()
	_, _, err := s.ReserveStorage(context.Background(), id.TenantID(uuid.New()), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Concurrent reservations against one tenant must never jointly overshoot the
// limit: with a 100MB limit and fifty 10MB requests, at most ten can win.
func TestReserveStorageConcurrentNeverOvershoots(t *testing.T) {
	s := NewInMemory()
	tenant := seedTenant(t, s, "acme", 100)
	ctx := context.Background()

	const attempts = 50
	delta := 10 * models.BytesPerMB

	var wg sync.WaitGroup
	admitted := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.ReserveStorage(ctx, tenant.ID, delta)
			require.NoError(t, err)
			if ok {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	wins := 0
	for range admitted {
		wins++
	}
	assert.Equal(t, 10, wins)

	final, err := s.FindByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, final.StorageUsedBytes, final.StorageLimitBytes())
	assert.Equal(t, int64(wins)*delta, final.StorageUsedBytes)
}
