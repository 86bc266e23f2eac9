package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoportal/internal/storage/credentials"
	"photoportal/internal/tenant/models"
	id "photoportal/pkg/domain"
)

func testTenant(t *testing.T) *models.Tenant {
	t.Helper()
	tenant, err := models.NewTenant(id.TenantID(uuid.New()), "acme", "Acme", "a@b.c", 500, nil, time.Now().UTC())
	require.NoError(t, err)
	return tenant
}

// buildRecorder tracks which credential sets were used to build stores.
type buildRecorder struct {
	built []Credentials
}

func (b *buildRecorder) build(c Credentials) (ObjectStore, error) {
	b.built = append(b.built, c)
	return NewInMemory(c.Bucket), nil
}

func newTestProvider(creds credentials.Store, rec *buildRecorder) *Provider {
	fallback := Credentials{
		KeyID:    "fallbackkeyid0",
		Key:      "fallback-secret-key-0000",
		Bucket:   "shared-bucket",
		Endpoint: "https://s3.us-west-000.backblazeb2.com",
	}
	return NewProvider(creds, fallback, rec.build, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestForTenantPrefersInlineCredentials(t *testing.T) {
	rec := &buildRecorder{}
	provider := newTestProvider(credentials.NewInMemory(), rec)

	tenant := testTenant(t)
	tenant.StorageKeyID = "tenantkeyid00"
	tenant.StorageKey = "tenant-secret-key-000000"
	tenant.StorageBucket = "tenant-bucket"

	_, err := provider.ForTenant(context.Background(), tenant)
	require.NoError(t, err)
	require.Len(t, rec.built, 1)
	assert.Equal(t, "tenant-bucket", rec.built[0].Bucket)
	assert.Equal(t, "tenantkeyid00", rec.built[0].KeyID)
}

func TestForTenantUsesCredentialStoreRow(t *testing.T) {
	store := credentials.NewInMemory()
	tenant := testTenant(t)
	tid := tenant.ID
	require.NoError(t, store.Create(context.Background(), &credentials.Credential{
		ID:         id.CredentialID(uuid.New()),
		TenantID:   &tid,
		KeyID:      "rowkeyid0000",
		Key:        "row-secret-key-00000000",
		BucketName: "row-bucket",
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}))

	rec := &buildRecorder{}
	provider := newTestProvider(store, rec)

	_, err := provider.ForTenant(context.Background(), tenant)
	require.NoError(t, err)
	require.Len(t, rec.built, 1)
	assert.Equal(t, "row-bucket", rec.built[0].Bucket)
}

func TestForTenantFallsBackToDefaultRow(t *testing.T) {
	store := credentials.NewInMemory()
	require.NoError(t, store.Create(context.Background(), &credentials.Credential{
		ID:        id.CredentialID(uuid.New()),
		KeyID:     "defaultkeyid",
		Key:       "default-secret-key-00000",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}))

	rec := &buildRecorder{}
	provider := newTestProvider(store, rec)

	_, err := provider.ForTenant(context.Background(), testTenant(t))
	require.NoError(t, err)
	require.Len(t, rec.built, 1)
	assert.Equal(t, "defaultkeyid", rec.built[0].KeyID)
	// Bucket and endpoint inherit the configured fallback when the row
	// leaves them empty.
	assert.Equal(t, "shared-bucket", rec.built[0].Bucket)
}

func TestForTenantFallsBackToConfig(t *testing.T) {
	rec := &buildRecorder{}
	provider := newTestProvider(credentials.NewInMemory(), rec)

	_, err := provider.ForTenant(context.Background(), testTenant(t))
	require.NoError(t, err)
	require.Len(t, rec.built, 1)
	assert.Equal(t, "fallbackkeyid0", rec.built[0].KeyID)
}

func TestStoreCacheReusesClients(t *testing.T) {
	rec := &buildRecorder{}
	provider := newTestProvider(credentials.NewInMemory(), rec)

	tenant := testTenant(t)
	_, err := provider.ForTenant(context.Background(), tenant)
	require.NoError(t, err)
	_, err = provider.ForTenant(context.Background(), tenant)
	require.NoError(t, err)

	assert.Len(t, rec.built, 1)
}

func TestAggregateSize(t *testing.T) {
	rec := &buildRecorder{}
	provider := newTestProvider(credentials.NewInMemory(), rec)

	mem := NewInMemory("bucket")
	mem.SeedObject("tenant_a/one.jpg", 100, "image/jpeg")
	mem.SeedObject("tenant_a/two.jpg", 250, "image/jpeg")
	mem.SeedObject("tenant_b/other.jpg", 999, "image/jpeg")

	total, count, err := provider.AggregateSize(context.Background(), mem, "tenant_a/")
	require.NoError(t, err)
	assert.Equal(t, int64(350), total)
	assert.Equal(t, 2, count)
}

func TestCredentialsValidate(t *testing.T) {
	cases := []struct {
		name  string
		creds Credentials
		ok    bool
	}{
		{"valid", Credentials{KeyID: "0123456789ab", Key: "01234567890123456789", Bucket: "b"}, true},
		{"key id too short", Credentials{KeyID: "short", Key: "01234567890123456789", Bucket: "b"}, false},
		{"key too short", Credentials{KeyID: "0123456789ab", Key: "short", Bucket: "b"}, false},
		{"missing bucket", Credentials{KeyID: "0123456789ab", Key: "01234567890123456789"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.creds.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRegionFromEndpoint(t *testing.T) {
	assert.Equal(t, "us-west-000", regionFromEndpoint("https://s3.us-west-000.backblazeb2.com"))
	assert.Equal(t, "eu-central-003", regionFromEndpoint("https://s3.eu-central-003.backblazeb2.com"))
	assert.Equal(t, "us-east-1", regionFromEndpoint(""))
	assert.Equal(t, "us-east-1", regionFromEndpoint("https://minio.internal:9000"))
}
