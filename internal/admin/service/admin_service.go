// Package service implements the platform admin operations: system-wide
// statistics, storage credential management and audit log access. Tenant
// lifecycle operations are delegated to the tenant service.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"photoportal/internal/apilog"
	"photoportal/internal/sentinel"
	"photoportal/internal/storage"
	"photoportal/internal/storage/credentials"
	"photoportal/internal/storage/tracer"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/requestcontext"
)

// TenantCounter is the slice of the tenant store the dashboard needs.
type TenantCounter interface {
	Count(ctx context.Context) (int, error)
	SumStorageUsed(ctx context.Context) (int64, error)
}

// UserCounter counts accounts across all tenants.
type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

// PhotoCounter counts photos across all tenants.
type PhotoCounter interface {
	Count(ctx context.Context) (int, error)
}

// BucketProvider resolves the shared object store and aggregates its size.
type BucketProvider interface {
	Default(ctx context.Context) (storage.ObjectStore, error)
	AggregateSize(ctx context.Context, store storage.ObjectStore, prefix string) (int64, int, error)
}

// ConnectionTestFunc probes a credential set against its provider. It reports
// whether the bucket answers a head request and whether listing is permitted.
// Production builds an S3 client per probe.
type ConnectionTestFunc func(ctx context.Context, creds storage.Credentials) (bucketOK, listOK bool, err error)

// AdminService owns the platform admin surface.
type AdminService struct {
	tenants  TenantCounter
	users    UserCounter
	photos   PhotoCounter
	creds    credentials.Store
	provider BucketProvider
	logs     apilog.Store
	testConn ConnectionTestFunc
	logger   *slog.Logger
}

// NewAdminService creates an AdminService. A nil testConn builds a real S3
// client per probe.
func NewAdminService(tenants TenantCounter, users UserCounter, photos PhotoCounter, creds credentials.Store, provider BucketProvider, logs apilog.Store, testConn ConnectionTestFunc, logger *slog.Logger) *AdminService {
	if testConn == nil {
		testConn = func(ctx context.Context, c storage.Credentials) (bool, bool, error) {
			s3, err := storage.NewS3Store(c, tracer.NewNoop())
			if err != nil {
				return false, false, err
			}
			if err := s3.TestConnection(ctx); err != nil {
				return false, false, err
			}
			if _, err := s3.ListPrefix(ctx, ""); err != nil {
				return true, false, nil
			}
			return true, true, nil
		}
	}
	return &AdminService{
		tenants:  tenants,
		users:    users,
		photos:   photos,
		creds:    creds,
		provider: provider,
		logs:     logs,
		testConn: testConn,
		logger:   logger,
	}
}

// SystemStats is the platform-wide dashboard view.
type SystemStats struct {
	TenantCount       int   `json:"tenant_count"`
	UserCount         int   `json:"user_count"`
	PhotoCount        int   `json:"photo_count"`
	StorageUsedBytes  int64 `json:"storage_used_bytes"`
	BucketTotalBytes  int64 `json:"bucket_total_bytes"`
	BucketObjectCount int   `json:"bucket_object_count"`
	// BucketScanFailed marks the bucket figures as stale zeros because the
	// provider could not be reached.
	BucketScanFailed bool `json:"bucket_scan_failed"`
}

// Stats aggregates the platform dashboard. The bucket walk degrades to zeros
// when the storage provider is unreachable; the database counts are
// authoritative and their failure fails the call.
func (s *AdminService) Stats(ctx context.Context) (*SystemStats, error) {
	tenantCount, err := s.tenants.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count tenants")
	}
	userCount, err := s.users.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
	}
	photoCount, err := s.photos.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count photos")
	}
	usedBytes, err := s.tenants.SumStorageUsed(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sum storage usage")
	}

	stats := &SystemStats{
		TenantCount:      tenantCount,
		UserCount:        userCount,
		PhotoCount:       photoCount,
		StorageUsedBytes: usedBytes,
	}

	objStore, err := s.provider.Default(ctx)
	if err == nil {
		stats.BucketTotalBytes, stats.BucketObjectCount, err = s.provider.AggregateSize(ctx, objStore, "")
	}
	if err != nil {
		stats.BucketScanFailed = true
		s.logger.WarnContext(ctx, "bucket aggregate failed, reporting zeros",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return stats, nil
}

// CredentialInput describes a credential set to store.
type CredentialInput struct {
	TenantID   *id.TenantID
	KeyID      string
	Key        string
	BucketName string
	Endpoint   string
	IsActive   bool
}

func (in CredentialInput) validate() error {
	return storage.Credentials{
		KeyID:  in.KeyID,
		Key:    in.Key,
		Bucket: in.BucketName,
	}.Validate()
}

// CreateCredential stores a new credential set after shape validation.
func (s *AdminService) CreateCredential(ctx context.Context, in CredentialInput) (*credentials.Credential, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	cred := &credentials.Credential{
		ID:         id.CredentialID(uuid.New()),
		TenantID:   in.TenantID,
		KeyID:      in.KeyID,
		Key:        in.Key,
		BucketName: in.BucketName,
		Endpoint:   in.Endpoint,
		IsActive:   in.IsActive,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create credential")
	}
	return cred, nil
}

// ListCredentials returns all stored credential sets.
func (s *AdminService) ListCredentials(ctx context.Context) ([]*credentials.Credential, error) {
	creds, err := s.creds.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return creds, nil
}

// UpdateCredential replaces a credential set's fields. An empty Key keeps the
// stored secret.
func (s *AdminService) UpdateCredential(ctx context.Context, credID id.CredentialID, in CredentialInput) (*credentials.Credential, error) {
	cred, err := s.creds.FindByID(ctx, credID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find credential")
	}

	if in.Key == "" {
		in.Key = cred.Key
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	cred.TenantID = in.TenantID
	cred.KeyID = in.KeyID
	cred.Key = in.Key
	cred.BucketName = in.BucketName
	cred.Endpoint = in.Endpoint
	cred.IsActive = in.IsActive

	if err := s.creds.Update(ctx, cred); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update credential")
	}
	return cred, nil
}

// DeleteCredential removes a stored credential set.
func (s *AdminService) DeleteCredential(ctx context.Context, credID id.CredentialID) error {
	err := s.creds.Delete(ctx, credID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete credential")
	}
	return nil
}

// ConnectionReport is the outcome of probing a credential set.
type ConnectionReport struct {
	BucketAccessible bool  `json:"bucket_accessible"`
	ListAccessible   bool  `json:"list_accessible"`
	ResponseTimeMS   int64 `json:"response_time_ms"`
}

// TestCredential probes a stored credential set against its provider. An
// unreachable bucket fails the call; a bucket that answers but refuses
// listing comes back as a partial report.
func (s *AdminService) TestCredential(ctx context.Context, credID id.CredentialID) (*ConnectionReport, error) {
	cred, err := s.creds.FindByID(ctx, credID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find credential")
	}

	start := time.Now()
	bucketOK, listOK, err := s.testConn(ctx, storage.Credentials{
		KeyID:    cred.KeyID,
		Key:      cred.Key,
		Bucket:   cred.BucketName,
		Endpoint: cred.Endpoint,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "storage connection test failed")
	}
	return &ConnectionReport{
		BucketAccessible: bucketOK,
		ListAccessible:   listOK,
		ResponseTimeMS:   time.Since(start).Milliseconds(),
	}, nil
}

// APILogs returns a page of the request audit trail, optionally narrowed to
// one tenant.
func (s *AdminService) APILogs(ctx context.Context, filter apilog.ListFilter) ([]*apilog.Entry, error) {
	entries, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list api logs")
	}
	return entries, nil
}
