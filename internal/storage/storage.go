// Package storage fronts the S3-compatible object store holding tenant
// photos. All object access is presigned: the service never proxies photo
// bytes, it only mints upload/download URLs and inspects object metadata.
package storage

import (
	"context"
	"regexp"
	"time"

	dErrors "photoportal/pkg/domain-errors"
)

// Presign lifetimes. Upload URLs are short-lived since they grant write
// access; download URLs last an hour.
const (
	UploadURLTTL   = 15 * time.Minute
	DownloadURLTTL = time.Hour
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	SizeBytes    int64
	ContentType  string
	LastModified time.Time
}

// ObjectStore is the object storage contract. Absent objects surface as
// sentinel.ErrNotFound; provider outages as backend_unavailable domain errors.
type ObjectStore interface {
	// PresignUpload mints a URL the client PUTs the object bytes to.
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	// PresignDownload mints a URL the client GETs the object bytes from.
	PresignDownload(ctx context.Context, key string) (string, error)
	// Head returns the object's metadata, with the authoritative size.
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	// Delete removes the object. Deleting an absent object is not an error.
	Delete(ctx context.Context, key string) error
	// ListPrefix returns objects under the prefix.
	ListPrefix(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// AggregateSize sums object sizes under the prefix. An empty prefix
	// aggregates the whole bucket.
	AggregateSize(ctx context.Context, prefix string) (totalBytes int64, count int, err error)
}

// Credentials identify an S3-compatible account and bucket.
type Credentials struct {
	KeyID    string
	Key      string
	Bucket   string
	Endpoint string
}

var keyIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{10,30}$`)

// Validate checks credential shape before any client is built, so obviously
// malformed credentials fail fast instead of on first use.
func (c Credentials) Validate() error {
	if !keyIDPattern.MatchString(c.KeyID) {
		return dErrors.New(dErrors.CodeValidation, "storage key ID must be 10-30 alphanumeric characters")
	}
	if len(c.Key) < 20 {
		return dErrors.New(dErrors.CodeValidation, "storage key must be at least 20 characters")
	}
	if c.Bucket == "" {
		return dErrors.New(dErrors.CodeValidation, "storage bucket is required")
	}
	return nil
}
