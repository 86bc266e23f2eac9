// Package service implements the photo lifecycle: presigned upload
// reservation, confirmation against the stored object, download URL minting
// and deletion, with every byte movement mirrored into the usage ledger.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"photoportal/internal/photo/metrics"
	"photoportal/internal/photo/models"
	"photoportal/internal/photo/store"
	"photoportal/internal/quota"
	"photoportal/internal/sentinel"
	"photoportal/internal/storage"
	tenantmodels "photoportal/internal/tenant/models"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/requestcontext"
)

// StoreProvider resolves the object store backing a tenant's photos.
type StoreProvider interface {
	ForTenant(ctx context.Context, t *tenantmodels.Tenant) (storage.ObjectStore, error)
}

// PhotoService orchestrates photo uploads, confirmations, downloads and
// deletes for one tenant at a time. The quota accountant is the only writer
// of the tenant's used-bytes counter; the ledger records the same deltas so
// the two stay reconcilable.
type PhotoService struct {
	photos   store.Store
	usage    store.UsageStore
	quota    *quota.Accountant
	provider StoreProvider
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures optional collaborators on the PhotoService.
type Option func(*PhotoService)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PhotoService) {
		s.metrics = m
	}
}

// NewPhotoService creates a PhotoService.
func NewPhotoService(photos store.Store, usage store.UsageStore, accountant *quota.Accountant, provider StoreProvider, logger *slog.Logger, opts ...Option) *PhotoService {
	s := &PhotoService{
		photos:   photos,
		usage:    usage,
		quota:    accountant,
		provider: provider,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadRequest describes an upload the client wants to perform.
type UploadRequest struct {
	Filename    string
	ContentType string
	SizeBytes   int64
}

// UploadGrant is a reserved upload slot: the pending photo row plus the
// presigned URL the client PUTs the bytes to.
type UploadGrant struct {
	Photo     *models.Photo
	UploadURL string
	ExpiresIn time.Duration
}

// Download pairs a photo with a presigned URL for its bytes.
type Download struct {
	Photo       *models.Photo
	DownloadURL string
}

// RequestUpload reserves quota for the declared size, creates the pending
// photo row and mints a presigned upload URL. When the reservation would
// push the tenant over its limit the request is rejected without any state
// change.
func (s *PhotoService) RequestUpload(ctx context.Context, tenant *tenantmodels.Tenant, req UploadRequest) (*UploadGrant, error) {
	now := requestcontext.Now(ctx)

	photo, err := models.NewPhoto(id.PhotoID(uuid.New()), tenant.ID, req.Filename, req.ContentType, req.SizeBytes, now)
	if err != nil {
		return nil, err
	}

	used, ok, err := s.quota.Reserve(ctx, tenant.ID, req.SizeBytes)
	if err != nil {
		return nil, err
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.IncrementQuotaRejection()
		}
		s.logger.InfoContext(ctx, "upload rejected by quota",
			"tenant_id", tenant.ID,
			"requested_bytes", req.SizeBytes,
			"used_bytes", used,
			"limit_mb", tenant.StorageLimitMB,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.New(dErrors.CodeQuotaExceeded, "storage quota exceeded")
	}

	if err := s.photos.Create(ctx, photo); err != nil {
		s.release(ctx, tenant.ID, req.SizeBytes)
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "storage key already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create photo")
	}

	s.appendLedger(ctx, tenant.ID, models.LogUpload, req.SizeBytes, now)

	objStore, err := s.provider.ForTenant(ctx, tenant)
	if err != nil {
		s.abortPending(ctx, tenant.ID, photo, now)
		return nil, err
	}
	uploadURL, err := objStore.PresignUpload(ctx, photo.StorageKey, photo.ContentType)
	if err != nil {
		s.abortPending(ctx, tenant.ID, photo, now)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementUploadRequested()
	}
	return &UploadGrant{
		Photo:     photo,
		UploadURL: uploadURL,
		ExpiresIn: storage.UploadURLTTL,
	}, nil
}

// ConfirmUpload verifies the object landed in storage and reconciles the
// reservation against the object's actual size. Confirming an already
// confirmed photo is a no-op. When the object never arrived the reservation
// is reclaimed and the pending row removed.
func (s *PhotoService) ConfirmUpload(ctx context.Context, tenant *tenantmodels.Tenant, photoID id.PhotoID) (*models.Photo, error) {
	now := requestcontext.Now(ctx)

	photo, err := s.findOwned(ctx, tenant.ID, photoID)
	if err != nil {
		return nil, err
	}
	if photo.IsConfirmed() {
		return photo, nil
	}

	objStore, err := s.provider.ForTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}

	info, err := objStore.Head(ctx, photo.StorageKey)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.release(ctx, tenant.ID, photo.FileSizeBytes)
		s.appendLedger(ctx, tenant.ID, models.LogReclaim, -photo.FileSizeBytes, now)
		if s.metrics != nil {
			s.metrics.AddReclaimedBytes(photo.FileSizeBytes)
		}
		if delErr := s.photos.Delete(ctx, photo.ID); delErr != nil && !errors.Is(delErr, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to remove unconfirmed photo",
				"error", delErr,
				"photo_id", photo.ID,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, "object was not uploaded")
	}
	if err != nil {
		return nil, err
	}

	// The object's actual size is authoritative. Settle the difference
	// between it and the reserved size in both the counter and the ledger.
	delta := info.SizeBytes - photo.FileSizeBytes
	if delta != 0 {
		if _, err := s.quota.Apply(ctx, tenant.ID, delta); err != nil {
			return nil, err
		}
		s.appendLedger(ctx, tenant.ID, models.LogUpload, delta, now)
	}

	photo.Confirm(info.SizeBytes, now)
	if err := s.photos.Update(ctx, photo); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "photo not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm photo")
	}
	if s.metrics != nil {
		s.metrics.IncrementUploadConfirmed()
	}
	return photo, nil
}

// List returns a page of the tenant's photos with presigned download URLs.
func (s *PhotoService) List(ctx context.Context, tenant *tenantmodels.Tenant, offset, limit int) ([]*Download, error) {
	photos, err := s.photos.ListByTenant(ctx, tenant.ID, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list photos")
	}

	objStore, err := s.provider.ForTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}

	downloads := make([]*Download, 0, len(photos))
	for _, p := range photos {
		d := &Download{Photo: p}
		if p.IsConfirmed() {
			url, err := objStore.PresignDownload(ctx, p.StorageKey)
			if err != nil {
				return nil, err
			}
			d.DownloadURL = url
		}
		downloads = append(downloads, d)
	}
	return downloads, nil
}

// Get returns one photo with a presigned download URL and records the
// download in the bandwidth ledger.
func (s *PhotoService) Get(ctx context.Context, tenant *tenantmodels.Tenant, photoID id.PhotoID) (*Download, error) {
	photo, err := s.findOwned(ctx, tenant.ID, photoID)
	if err != nil {
		return nil, err
	}

	d := &Download{Photo: photo}
	if !photo.IsConfirmed() {
		return d, nil
	}

	objStore, err := s.provider.ForTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	url, err := objStore.PresignDownload(ctx, photo.StorageKey)
	if err != nil {
		return nil, err
	}
	d.DownloadURL = url

	s.appendLedger(ctx, tenant.ID, models.LogDownload, photo.FileSizeBytes, requestcontext.Now(ctx))
	return d, nil
}

// Delete removes the object from storage, releases the photo's bytes from
// the quota and deletes the catalog row. An object already absent from
// storage does not fail the delete.
func (s *PhotoService) Delete(ctx context.Context, tenant *tenantmodels.Tenant, photoID id.PhotoID) error {
	now := requestcontext.Now(ctx)

	photo, err := s.findOwned(ctx, tenant.ID, photoID)
	if err != nil {
		return err
	}

	objStore, err := s.provider.ForTenant(ctx, tenant)
	if err != nil {
		return err
	}
	if err := objStore.Delete(ctx, photo.StorageKey); err != nil {
		return err
	}

	if _, err := s.quota.Apply(ctx, tenant.ID, -photo.FileSizeBytes); err != nil {
		return err
	}
	logType := models.LogDelete
	if !photo.IsConfirmed() {
		logType = models.LogReclaim
	}
	s.appendLedger(ctx, tenant.ID, logType, -photo.FileSizeBytes, now)

	if err := s.photos.Delete(ctx, photo.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete photo")
	}
	if s.metrics != nil {
		s.metrics.IncrementPhotoDeleted()
	}
	return nil
}

// ReapAbandoned releases reservations for photos whose upload was never
// confirmed before the cutoff. It returns how many were reaped.
func (s *PhotoService) ReapAbandoned(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.photos.ListUnconfirmedBefore(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list unconfirmed photos")
	}

	now := requestcontext.Now(ctx)
	reaped := 0
	for _, p := range stale {
		if _, err := s.quota.Apply(ctx, p.TenantID, -p.FileSizeBytes); err != nil {
			s.logger.ErrorContext(ctx, "failed to release abandoned reservation",
				"error", err,
				"photo_id", p.ID,
				"tenant_id", p.TenantID,
			)
			continue
		}
		s.appendLedger(ctx, p.TenantID, models.LogReclaim, -p.FileSizeBytes, now)
		if s.metrics != nil {
			s.metrics.AddReclaimedBytes(p.FileSizeBytes)
		}
		if err := s.photos.Delete(ctx, p.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to delete abandoned photo",
				"error", err,
				"photo_id", p.ID,
			)
			continue
		}
		reaped++
	}

	if reaped > 0 {
		s.logger.InfoContext(ctx, "reaped abandoned uploads", "count", reaped, "cutoff", cutoff)
	}
	return reaped, nil
}

// UsageEntries returns a page of the tenant's usage ledger, newest first.
func (s *PhotoService) UsageEntries(ctx context.Context, tenant *tenantmodels.Tenant, offset, limit int) ([]*models.UsageLog, error) {
	entries, err := s.usage.ListByTenant(ctx, tenant.ID, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list usage logs")
	}
	return entries, nil
}

// findOwned loads the photo and hides other tenants' photos behind not-found.
func (s *PhotoService) findOwned(ctx context.Context, tenantID id.TenantID, photoID id.PhotoID) (*models.Photo, error) {
	photo, err := s.photos.FindByID(ctx, photoID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "photo not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find photo")
	}
	if photo.TenantID != tenantID {
		return nil, dErrors.New(dErrors.CodeNotFound, "photo not found")
	}
	return photo, nil
}

// abortPending rolls back a pending photo whose upload URL could not be
// minted: the reservation is released, a reclaim entry balances the ledger,
// and the row is removed so nothing waits for the reaper.
func (s *PhotoService) abortPending(ctx context.Context, tenantID id.TenantID, photo *models.Photo, now time.Time) {
	s.release(ctx, tenantID, photo.FileSizeBytes)
	s.appendLedger(ctx, tenantID, models.LogReclaim, -photo.FileSizeBytes, now)
	if err := s.photos.Delete(ctx, photo.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to remove pending photo",
			"error", err,
			"photo_id", photo.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// release undoes a reservation after a later step failed.
func (s *PhotoService) release(ctx context.Context, tenantID id.TenantID, bytes int64) {
	if _, err := s.quota.Apply(ctx, tenantID, -bytes); err != nil {
		s.logger.ErrorContext(ctx, "failed to release storage reservation",
			"error", err,
			"tenant_id", tenantID,
			"bytes", bytes,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// appendLedger records one usage entry. Ledger writes are best-effort; a
// failure is logged but never fails the operation that moved the bytes.
func (s *PhotoService) appendLedger(ctx context.Context, tenantID id.TenantID, logType models.LogType, bytes int64, now time.Time) {
	entry := &models.UsageLog{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		LogType:          logType,
		BytesTransferred: bytes,
		CreatedAt:        now,
	}
	if err := s.usage.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to append usage log",
			"error", err,
			"tenant_id", tenantID,
			"log_type", logType,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
