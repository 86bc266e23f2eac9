package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"photoportal/internal/photo/models"
	"photoportal/internal/photo/service"
	photostore "photoportal/internal/photo/store"
	"photoportal/internal/quota"
	"photoportal/internal/storage"
	tenantmodels "photoportal/internal/tenant/models"
	tenantstore "photoportal/internal/tenant/store"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/requestcontext"
)

const mb = int64(1024 * 1024)

type staticProvider struct {
	store storage.ObjectStore
}

func (p *staticProvider) ForTenant(context.Context, *tenantmodels.Tenant) (storage.ObjectStore, error) {
	return p.store, nil
}

// failingPresignStore delegates everything except upload URL minting.
type failingPresignStore struct {
	storage.ObjectStore
}

func (failingPresignStore) PresignUpload(context.Context, string, string) (string, error) {
	return "", dErrors.New(dErrors.CodeUnavailable, "storage unreachable")
}

type PhotoServiceSuite struct {
	suite.Suite

	tenants *tenantstore.InMemory
	photos  *photostore.InMemory
	usage   *photostore.UsageInMemory
	objects *storage.InMemory
	svc     *service.PhotoService
	tenant  *tenantmodels.Tenant
	ctx     context.Context
}

func (s *PhotoServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.tenants = tenantstore.NewInMemory()
	s.photos = photostore.NewInMemory()
	s.usage = photostore.NewUsageInMemory()
	s.objects = storage.NewInMemory("photos-test")
	s.ctx = requestcontext.WithNow(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	accountant := quota.New(s.tenants, logger)
	s.svc = service.NewPhotoService(s.photos, s.usage, accountant, &staticProvider{store: s.objects}, logger)

	tenant, err := tenantmodels.NewTenant(id.TenantID(uuid.New()), "acme", "Acme Studios", "owner@acme.test", 500, nil, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.tenants.CreateIfSubdomainAvailable(s.ctx, tenant))
	s.tenant = tenant
}

func (s *PhotoServiceSuite) usedBytes() int64 {
	t, err := s.tenants.FindByID(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	return t.StorageUsedBytes
}

func (s *PhotoServiceSuite) upload(ctx context.Context, name string, sizeBytes int64) *service.UploadGrant {
	grant, err := s.svc.RequestUpload(ctx, s.tenant, service.UploadRequest{
		Filename:    name,
		ContentType: "image/jpeg",
		SizeBytes:   sizeBytes,
	})
	s.Require().NoError(err)
	return grant
}

// uploadConfirmed runs the full upload flow: reserve, simulate the client
// PUT, confirm.
func (s *PhotoServiceSuite) uploadConfirmed(ctx context.Context, name string, sizeBytes int64) *models.Photo {
	grant := s.upload(ctx, name, sizeBytes)
	s.objects.SeedObject(grant.Photo.StorageKey, sizeBytes, "image/jpeg")
	photo, err := s.svc.ConfirmUpload(ctx, s.tenant, grant.Photo.ID)
	s.Require().NoError(err)
	return photo
}

func (s *PhotoServiceSuite) TestRequestUploadReservesQuota() {
	grant := s.upload(s.ctx, "holiday.jpg", 10*mb)

	s.NotEmpty(grant.UploadURL)
	s.Equal(storage.UploadURLTTL, grant.ExpiresIn)
	s.False(grant.Photo.IsConfirmed())
	s.Equal(10*mb, s.usedBytes())

	entries, err := s.usage.ListByTenant(s.ctx, s.tenant.ID, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.LogUpload, entries[0].LogType)
	s.Equal(10*mb, entries[0].BytesTransferred)
}

func (s *PhotoServiceSuite) TestRequestUploadPresignFailureRollsBack() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accountant := quota.New(s.tenants, logger)
	svc := service.NewPhotoService(s.photos, s.usage, accountant, &staticProvider{store: failingPresignStore{s.objects}}, logger)

	_, err := svc.RequestUpload(s.ctx, s.tenant, service.UploadRequest{
		Filename:    "holiday.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   10 * mb,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	// No residue waits for the reaper: counter back to zero, row removed,
	// ledger balanced by the reclaim entry.
	s.Zero(s.usedBytes())
	count, err := s.photos.CountByTenant(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Zero(count)
	sum, err := s.usage.SumStorageByTenant(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Zero(sum)
}

func (s *PhotoServiceSuite) TestRequestUploadRejectedOverLimit() {
	s.uploadConfirmed(s.ctx, "archive.jpg", 490*mb)

	_, err := s.svc.RequestUpload(s.ctx, s.tenant, service.UploadRequest{
		Filename:    "big.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   20 * mb,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))

	// The rejection leaves no trace: no counter movement, no row, no entry.
	s.Equal(490*mb, s.usedBytes())
	count, err := s.photos.CountByTenant(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Equal(1, count)
	sum, err := s.usage.SumStorageByTenant(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Equal(490*mb, sum)
}

func (s *PhotoServiceSuite) TestUploadAtExactLimitAdmitted() {
	grant := s.upload(s.ctx, "full.jpg", 500*mb)
	s.NotNil(grant)
	s.Equal(500*mb, s.usedBytes())
}

func (s *PhotoServiceSuite) TestConfirmReconcilesActualSize() {
	grant := s.upload(s.ctx, "photo.jpg", 10*mb)
	s.objects.SeedObject(grant.Photo.StorageKey, 12*mb, "image/jpeg")

	photo, err := s.svc.ConfirmUpload(s.ctx, s.tenant, grant.Photo.ID)
	s.Require().NoError(err)

	s.True(photo.IsConfirmed())
	s.Equal(12*mb, photo.FileSizeBytes)
	s.Equal(12*mb, s.usedBytes())

	sum, err := s.usage.SumStorageByTenant(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Equal(12*mb, sum)
}

func (s *PhotoServiceSuite) TestConfirmIsIdempotent() {
	photo := s.uploadConfirmed(s.ctx, "photo.jpg", 10*mb)

	again, err := s.svc.ConfirmUpload(s.ctx, s.tenant, photo.ID)
	s.Require().NoError(err)
	s.Equal(photo.FileSizeBytes, again.FileSizeBytes)
	s.Equal(10*mb, s.usedBytes())

	sum, err := s.usage.SumStorageByTenant(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Equal(10*mb, sum)
}

func (s *PhotoServiceSuite) TestConfirmMissingObjectReclaimsReservation() {
	grant := s.upload(s.ctx, "ghost.jpg", 10*mb)

	_, err := s.svc.ConfirmUpload(s.ctx, s.tenant, grant.Photo.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	s.Equal(int64(0), s.usedBytes())
	sum, err := s.usage.SumStorageByTenant(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Equal(int64(0), sum)

	_, err = s.photos.FindByID(s.ctx, grant.Photo.ID)
	s.ErrorIs(err, photostore.ErrNotFound)
}

func (s *PhotoServiceSuite) TestDeleteReleasesBytes() {
	s.uploadConfirmed(s.ctx, "keep.jpg", 45*mb)
	victim := s.uploadConfirmed(requestcontext.WithNow(s.ctx, time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)), "victim.jpg", 5*mb)
	s.Require().Equal(50*mb, s.usedBytes())

	s.Require().NoError(s.svc.Delete(s.ctx, s.tenant, victim.ID))

	s.Equal(45*mb, s.usedBytes())
	entries, err := s.usage.ListByTenant(s.ctx, s.tenant.ID, 0, 10)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	s.Equal(models.LogDelete, entries[0].LogType)
	s.Equal(-5*mb, entries[0].BytesTransferred)

	_, err = s.objects.Head(s.ctx, victim.StorageKey)
	s.Error(err)
	_, err = s.photos.FindByID(s.ctx, victim.ID)
	s.ErrorIs(err, photostore.ErrNotFound)
}

func (s *PhotoServiceSuite) TestDeleteAbsentObjectStillSucceeds() {
	photo := s.uploadConfirmed(s.ctx, "gone.jpg", 5*mb)
	s.Require().NoError(s.objects.Delete(s.ctx, photo.StorageKey))

	s.Require().NoError(s.svc.Delete(s.ctx, s.tenant, photo.ID))
	s.Equal(int64(0), s.usedBytes())
}

func (s *PhotoServiceSuite) TestLedgerTracksCounter() {
	s.uploadConfirmed(s.ctx, "a.jpg", 10*mb)
	ctx2 := requestcontext.WithNow(s.ctx, time.Date(2026, 3, 1, 12, 2, 0, 0, time.UTC))
	b := s.uploadConfirmed(ctx2, "b.jpg", 20*mb)
	s.Require().NoError(s.svc.Delete(ctx2, s.tenant, b.ID))

	// A download entry tracks bandwidth and must not skew the storage sum.
	a, err := s.photos.ListByTenant(s.ctx, s.tenant.ID, 0, 1)
	s.Require().NoError(err)
	s.Require().Len(a, 1)
	_, err = s.svc.Get(s.ctx, s.tenant, a[0].ID)
	s.Require().NoError(err)

	sum, err := s.usage.SumStorageByTenant(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Equal(s.usedBytes(), sum)
	s.Equal(10*mb, sum)
}

func (s *PhotoServiceSuite) TestGetMintsDownloadURLAndLogsBandwidth() {
	photo := s.uploadConfirmed(s.ctx, "view.jpg", 3*mb)

	d, err := s.svc.Get(s.ctx, s.tenant, photo.ID)
	s.Require().NoError(err)
	s.NotEmpty(d.DownloadURL)

	entries, err := s.usage.ListByTenant(s.ctx, s.tenant.ID, 0, 10)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	s.Equal(models.LogDownload, entries[0].LogType)
	s.Equal(3*mb, entries[0].BytesTransferred)
}

func (s *PhotoServiceSuite) TestListSkipsURLForPendingPhotos() {
	s.uploadConfirmed(s.ctx, "ready.jpg", 2*mb)
	s.upload(requestcontext.WithNow(s.ctx, time.Date(2026, 3, 1, 12, 3, 0, 0, time.UTC)), "pending.jpg", 1*mb)

	downloads, err := s.svc.List(s.ctx, s.tenant, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(downloads, 2)

	urls := 0
	for _, d := range downloads {
		if d.DownloadURL != "" {
			urls++
			s.True(d.Photo.IsConfirmed())
		}
	}
	s.Equal(1, urls)
}

func (s *PhotoServiceSuite) TestCrossTenantAccessIsNotFound() {
	photo := s.uploadConfirmed(s.ctx, "private.jpg", 1*mb)

	other, err := tenantmodels.NewTenant(id.TenantID(uuid.New()), "rival", "Rival Co", "owner@rival.test", 500, nil, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.tenants.CreateIfSubdomainAvailable(s.ctx, other))

	_, err = s.svc.Get(s.ctx, other, photo.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.svc.Delete(s.ctx, other, photo.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PhotoServiceSuite) TestReapAbandonedReleasesStaleReservations() {
	staleCtx := requestcontext.WithNow(context.Background(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	s.upload(staleCtx, "stale.jpg", 7*mb)
	s.uploadConfirmed(s.ctx, "live.jpg", 2*mb)
	fresh := s.upload(requestcontext.WithNow(s.ctx, time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)), "fresh.jpg", 1*mb)

	reaped, err := s.svc.ReapAbandoned(s.ctx, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Equal(1, reaped)

	s.Equal(3*mb, s.usedBytes())
	count, err := s.photos.CountByTenant(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Equal(2, count)

	_, err = s.photos.FindByID(s.ctx, fresh.Photo.ID)
	s.NoError(err)
}

func (s *PhotoServiceSuite) TestRequestUploadValidation() {
	_, err := s.svc.RequestUpload(s.ctx, s.tenant, service.UploadRequest{
		Filename:  "",
		SizeBytes: 1 * mb,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.RequestUpload(s.ctx, s.tenant, service.UploadRequest{
		Filename:  "zero.jpg",
		SizeBytes: 0,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(int64(0), s.usedBytes())
}

func TestPhotoServiceSuite(t *testing.T) {
	suite.Run(t, new(PhotoServiceSuite))
}
