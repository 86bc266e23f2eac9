package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"photoportal/internal/photo/models"
	"photoportal/internal/sentinel"
	id "photoportal/pkg/domain"
)

// Postgres persists photos in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed photo store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const photoColumns = `
	id, tenant_id, filename, original_filename, storage_key,
	file_size_bytes, content_type, uploaded_at, confirmed_at
`

// Create inserts the photo; the unique index on storage_key enforces key
// uniqueness.
func (s *Postgres) Create(ctx context.Context, p *models.Photo) error {
	if p == nil {
		return fmt.Errorf("photo is required")
	}
	query := `
		INSERT INTO photos (` + photoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID),
		uuid.UUID(p.TenantID),
		p.Filename,
		p.OriginalFilename,
		p.StorageKey,
		p.FileSizeBytes,
		nullString(p.ContentType),
		p.UploadedAt,
		p.ConfirmedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("photo storage key must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create photo: %w", err)
	}
	return nil
}

// FindByID retrieves a photo by its UUID.
func (s *Postgres) FindByID(ctx context.Context, photoID id.PhotoID) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	p, err := scanPhoto(s.db.QueryRowContext(ctx, query, uuid.UUID(photoID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find photo by id: %w", err)
	}
	return p, nil
}

// ListByTenant returns the tenant's photos, newest first.
func (s *Postgres) ListByTenant(ctx context.Context, tenantID id.TenantID, offset, limit int) ([]*models.Photo, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + photoColumns + ` FROM photos
		WHERE tenant_id = $1
		ORDER BY uploaded_at DESC OFFSET $2 LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return collectPhotos(rows)
}

// Update persists mutable photo fields.
func (s *Postgres) Update(ctx context.Context, p *models.Photo) error {
	query := `
		UPDATE photos
		SET file_size_bytes = $2, content_type = $3, confirmed_at = $4
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID),
		p.FileSizeBytes,
		nullString(p.ContentType),
		p.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("update photo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the photo.
func (s *Postgres) Delete(ctx context.Context, photoID id.PhotoID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = $1`, uuid.UUID(photoID))
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByTenant removes all photos belonging to the tenant.
func (s *Postgres) DeleteByTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE tenant_id = $1`, uuid.UUID(tenantID))
	if err != nil {
		return fmt.Errorf("delete photos by tenant: %w", err)
	}
	return nil
}

// CountByTenant returns the number of photos belonging to the tenant.
func (s *Postgres) CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM photos WHERE tenant_id = $1`, uuid.UUID(tenantID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count photos: %w", err)
	}
	return n, nil
}

// Count returns the total number of photos across all tenants.
func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM photos`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count all photos: %w", err)
	}
	return n, nil
}

// ListUnconfirmedBefore returns pending photos uploaded before the cutoff,
// oldest first.
func (s *Postgres) ListUnconfirmedBefore(ctx context.Context, cutoff time.Time) ([]*models.Photo, error) {
	query := `
		SELECT ` + photoColumns + ` FROM photos
		WHERE confirmed_at IS NULL AND uploaded_at < $1
		ORDER BY uploaded_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list unconfirmed photos: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return collectPhotos(rows)
}

// scanner abstracts *sql.Row and *sql.Rows for scanPhoto.
type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row scanner) (*models.Photo, error) {
	var (
		p           models.Photo
		photoID     uuid.UUID
		tenantID    uuid.UUID
		contentType sql.NullString
		confirmed   sql.NullTime
	)
	err := row.Scan(
		&photoID,
		&tenantID,
		&p.Filename,
		&p.OriginalFilename,
		&p.StorageKey,
		&p.FileSizeBytes,
		&contentType,
		&p.UploadedAt,
		&confirmed,
	)
	if err != nil {
		return nil, err
	}
	p.ID = id.PhotoID(photoID)
	p.TenantID = id.TenantID(tenantID)
	p.ContentType = contentType.String
	if confirmed.Valid {
		c := confirmed.Time
		p.ConfirmedAt = &c
	}
	return &p, nil
}

func collectPhotos(rows *sql.Rows) ([]*models.Photo, error) {
	var photos []*models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*Postgres)(nil)
