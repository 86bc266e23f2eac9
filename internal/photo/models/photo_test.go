package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "photoportal/pkg/domain"
)

func TestNewPhotoBuildsPendingPhoto(t *testing.T) {
	tenantID := id.TenantID(uuid.New())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	photo, err := NewPhoto(id.PhotoID(uuid.New()), tenantID, "summer trip.jpg", "image/jpeg", 1024, now)
	require.NoError(t, err)

	assert.Equal(t, "summer_trip.jpg", photo.Filename)
	assert.Equal(t, "summer trip.jpg", photo.OriginalFilename)
	assert.True(t, strings.HasPrefix(photo.StorageKey, "tenant_"+tenantID.String()+"/"))
	assert.True(t, strings.HasSuffix(photo.StorageKey, "_summer_trip.jpg"))
	assert.False(t, photo.IsConfirmed())
}

func TestNewPhotoValidation(t *testing.T) {
	tenantID := id.TenantID(uuid.New())
	now := time.Now().UTC()

	cases := []struct {
		name     string
		filename string
		size     int64
		tenantID id.TenantID
	}{
		{"empty filename", "", 100, tenantID},
		{"whitespace filename", "   ", 100, tenantID},
		{"too long filename", strings.Repeat("a", 300) + ".jpg", 100, tenantID},
		{"zero size", "a.jpg", 0, tenantID},
		{"negative size", "a.jpg", -5, tenantID},
		{"nil tenant", "a.jpg", 100, id.TenantID{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPhoto(id.PhotoID(uuid.New()), tc.tenantID, tc.filename, "", tc.size, now)
			assert.Error(t, err)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"my photo (1).jpg", "my_photo__1_.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\pic.png`, "pic.png"},
		{"Ünïcode.jpg", "_n_code.jpg"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeFilename(tc.in), tc.in)
	}
}

func TestConfirmSetsSizeAndTimestamp(t *testing.T) {
	photo, err := NewPhoto(id.PhotoID(uuid.New()), id.TenantID(uuid.New()), "a.jpg", "image/jpeg", 100, time.Now().UTC())
	require.NoError(t, err)

	confirmedAt := time.Now().UTC()
	photo.Confirm(250, confirmedAt)

	assert.True(t, photo.IsConfirmed())
	assert.Equal(t, int64(250), photo.FileSizeBytes)
	assert.Equal(t, confirmedAt, *photo.ConfirmedAt)
}

func TestTenantPrefixIsolation(t *testing.T) {
	a := id.TenantID(uuid.New())
	b := id.TenantID(uuid.New())
	assert.NotEqual(t, TenantPrefix(a), TenantPrefix(b))
	assert.True(t, strings.HasPrefix(StorageKey(a, "x.jpg", time.Now()), TenantPrefix(a)))
}
