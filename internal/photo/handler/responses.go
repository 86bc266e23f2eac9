package handler

import (
	"time"

	"photoportal/internal/photo/models"
	"photoportal/internal/photo/service"
)

type PhotoResponse struct {
	ID               string     `json:"id"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	FileSizeBytes    int64      `json:"file_size_bytes"`
	ContentType      string     `json:"content_type,omitempty"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	DownloadURL      string     `json:"download_url,omitempty"`
}

type UploadResponse struct {
	Photo            *PhotoResponse `json:"photo"`
	UploadURL        string         `json:"upload_url"`
	ExpiresInSeconds int            `json:"expires_in_seconds"`
}

type ListResponse struct {
	Photos []*PhotoResponse `json:"photos"`
}

type UsageLogResponse struct {
	ID               string    `json:"id"`
	LogType          string    `json:"log_type"`
	BytesTransferred int64     `json:"bytes_transferred"`
	CreatedAt        time.Time `json:"created_at"`
}

type UsageLogListResponse struct {
	Logs []*UsageLogResponse `json:"logs"`
}

func toPhotoResponse(p *models.Photo) *PhotoResponse {
	return &PhotoResponse{
		ID:               p.ID.String(),
		Filename:         p.Filename,
		OriginalFilename: p.OriginalFilename,
		FileSizeBytes:    p.FileSizeBytes,
		ContentType:      p.ContentType,
		UploadedAt:       p.UploadedAt,
		ConfirmedAt:      p.ConfirmedAt,
	}
}

func toDownloadResponse(d *service.Download) *PhotoResponse {
	resp := toPhotoResponse(d.Photo)
	resp.DownloadURL = d.DownloadURL
	return resp
}

func toUsageLogResponse(e *models.UsageLog) *UsageLogResponse {
	return &UsageLogResponse{
		ID:               e.ID,
		LogType:          string(e.LogType),
		BytesTransferred: e.BytesTransferred,
		CreatedAt:        e.CreatedAt,
	}
}
