package handler

import (
	"strings"

	"photoportal/internal/photo/models"
	dErrors "photoportal/pkg/domain-errors"
)

// UploadRequest declares an upload: the client names the file and its size
// up front so quota can be reserved before any bytes move.
type UploadRequest struct {
	Filename      string `json:"filename"`
	ContentType   string `json:"content_type"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

func (r *UploadRequest) Normalize() {
	r.Filename = strings.TrimSpace(r.Filename)
	r.ContentType = strings.TrimSpace(r.ContentType)
}

func (r *UploadRequest) Validate() error {
	if r.Filename == "" {
		return dErrors.New(dErrors.CodeValidation, "filename is required")
	}
	if len(r.Filename) > models.MaxFilenameLength {
		return dErrors.New(dErrors.CodeValidation, "filename is too long")
	}
	if r.FileSizeBytes <= 0 {
		return dErrors.New(dErrors.CodeValidation, "file size must be positive")
	}
	return nil
}
