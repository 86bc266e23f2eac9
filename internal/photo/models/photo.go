// Package models holds the photo aggregate and the usage ledger entry.
package models

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
)

// MaxFilenameLength bounds stored filenames.
const MaxFilenameLength = 255

// unsafeFilenameChars is everything replaced with '_' when deriving the
// stored filename from the client's original name.
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Photo is one uploaded object in a tenant's catalog. A photo exists in two
// phases: pending (row created, presigned URL issued, bytes not confirmed)
// and confirmed (object verified in storage, ConfirmedAt set).
type Photo struct {
	ID               id.PhotoID  `json:"id"`
	TenantID         id.TenantID `json:"tenant_id"`
	Filename         string      `json:"filename"`
	OriginalFilename string      `json:"original_filename"`
	StorageKey       string      `json:"storage_key"`
	FileSizeBytes    int64       `json:"file_size_bytes"`
	ContentType      string      `json:"content_type,omitempty"`
	UploadedAt       time.Time   `json:"uploaded_at"`
	ConfirmedAt      *time.Time  `json:"confirmed_at,omitempty"`
}

// NewPhoto validates inputs and builds a pending photo with its storage key.
func NewPhoto(photoID id.PhotoID, tenantID id.TenantID, originalFilename, contentType string, sizeBytes int64, now time.Time) (*Photo, error) {
	originalFilename = strings.TrimSpace(originalFilename)
	if originalFilename == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "filename cannot be empty")
	}
	if len(originalFilename) > MaxFilenameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "filename is too long")
	}
	if sizeBytes <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "file size must be positive")
	}
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID is required")
	}

	filename := SanitizeFilename(originalFilename)
	return &Photo{
		ID:               photoID,
		TenantID:         tenantID,
		Filename:         filename,
		OriginalFilename: originalFilename,
		StorageKey:       StorageKey(tenantID, filename, now),
		FileSizeBytes:    sizeBytes,
		ContentType:      contentType,
		UploadedAt:       now,
	}, nil
}

// IsConfirmed reports whether the object's presence in storage was verified.
func (p *Photo) IsConfirmed() bool {
	return p.ConfirmedAt != nil
}

// Confirm marks the photo as verified with the authoritative object size.
func (p *Photo) Confirm(sizeBytes int64, now time.Time) {
	p.FileSizeBytes = sizeBytes
	p.ConfirmedAt = &now
}

// SanitizeFilename strips path components and replaces unsafe characters.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// StorageKey builds the object key: tenant prefix plus a timestamped
// filename, so keys never collide across tenants and rarely within one.
func StorageKey(tenantID id.TenantID, filename string, now time.Time) string {
	return fmt.Sprintf("%s%d_%s", TenantPrefix(tenantID), now.UnixNano(), filename)
}

// TenantPrefix is the object key prefix isolating one tenant's objects.
func TenantPrefix(tenantID id.TenantID) string {
	return fmt.Sprintf("tenant_%s/", tenantID)
}

// LogType classifies usage ledger entries.
type LogType string

const (
	LogUpload   LogType = "upload"
	LogDownload LogType = "download"
	LogDelete   LogType = "delete"
	// LogReclaim records a reservation released because the upload was never
	// completed or its confirmation failed.
	LogReclaim LogType = "reclaim"
)

// UsageLog is one append-only ledger entry. Upload entries carry positive
// byte counts; delete and reclaim entries negative ones, so the sum of a
// tenant's entries tracks its used-storage counter.
type UsageLog struct {
	ID               string      `json:"id"`
	TenantID         id.TenantID `json:"tenant_id"`
	LogType          LogType     `json:"log_type"`
	BytesTransferred int64       `json:"bytes_transferred"`
	CreatedAt        time.Time   `json:"created_at"`
}
