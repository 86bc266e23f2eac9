package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"photoportal/internal/sentinel"
	"photoportal/internal/tenant/models"
	id "photoportal/pkg/domain"
	"photoportal/pkg/requestcontext"
)

// Postgres persists tenants in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed tenant store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const tenantColumns = `
	id, subdomain, name, email,
	storage_key_id, storage_key, storage_bucket,
	storage_limit_mb, storage_used_bytes,
	created_at, updated_at, expires_at, is_active
`

// CreateIfSubdomainAvailable atomically creates the tenant if the subdomain is
// not already taken; the partial unique index on lower(subdomain) enforces it.
func (s *Postgres) CreateIfSubdomainAvailable(ctx context.Context, t *models.Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant is required")
	}
	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID),
		t.Subdomain,
		t.Name,
		t.Email,
		nullString(t.StorageKeyID),
		nullString(t.StorageKey),
		nullString(t.StorageBucket),
		t.StorageLimitMB,
		t.StorageUsedBytes,
		t.CreatedAt,
		t.UpdatedAt,
		t.ExpiresAt,
		t.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant subdomain must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// FindByID retrieves a tenant by its UUID.
func (s *Postgres) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	t, err := scanTenant(s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by id: %w", err)
	}
	return t, nil
}

// FindBySubdomain retrieves a tenant by subdomain (case-insensitive).
func (s *Postgres) FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE lower(subdomain) = lower($1)`
	t, err := scanTenant(s.db.QueryRowContext(ctx, query, subdomain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by subdomain: %w", err)
	}
	return t, nil
}

// List returns tenants ordered by creation time, newest first.
func (s *Postgres) List(ctx context.Context, offset, limit int) ([]*models.Tenant, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Update persists mutable tenant fields. The subdomain is immutable.
func (s *Postgres) Update(ctx context.Context, t *models.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, email = $3,
		    storage_key_id = $4, storage_key = $5, storage_bucket = $6,
		    storage_limit_mb = $7, updated_at = $8, expires_at = $9, is_active = $10
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID),
		t.Name,
		t.Email,
		nullString(t.StorageKeyID),
		nullString(t.StorageKey),
		nullString(t.StorageBucket),
		t.StorageLimitMB,
		t.UpdatedAt,
		t.ExpiresAt,
		t.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the tenant; foreign keys cascade to users, photos, and logs.
func (s *Postgres) Delete(ctx context.Context, tenantID id.TenantID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, uuid.UUID(tenantID))
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of tenants.
func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM tenants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return n, nil
}

// SumStorageUsed returns the platform-wide sum of used-bytes counters.
func (s *Postgres) SumStorageUsed(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(storage_used_bytes), 0) FROM tenants`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum storage used: %w", err)
	}
	return total, nil
}

// ReserveStorage is a single conditional UPDATE so the check and the mutation
// are one atomic unit per tenant row. Negative deltas always apply, clamped
// at zero.
func (s *Postgres) ReserveStorage(ctx context.Context, tenantID id.TenantID, delta int64) (int64, bool, error) {
	query := `
		UPDATE tenants
		SET storage_used_bytes = GREATEST(storage_used_bytes + $2, 0), updated_at = $3
		WHERE id = $1
		  AND ($2 <= 0 OR storage_used_bytes + $2 <= storage_limit_mb::bigint * 1048576)
		RETURNING storage_used_bytes
	`
	var used int64
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID), delta, requestcontext.Now(ctx)).Scan(&used)
	if err == nil {
		return used, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("reserve storage: %w", err)
	}

	// No row matched: either the tenant is missing or the reservation would
	// exceed the limit. Distinguish with a plain read.
	err = s.db.QueryRowContext(ctx, `SELECT storage_used_bytes FROM tenants WHERE id = $1`, uuid.UUID(tenantID)).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, ErrNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("reserve storage: %w", err)
	}
	return used, false, nil
}

// AdjustStorage unconditionally applies delta, clamping at zero. The CTE reads
// the pre-update counter from the same snapshot so clamping is detectable.
func (s *Postgres) AdjustStorage(ctx context.Context, tenantID id.TenantID, delta int64) (int64, bool, error) {
	query := `
		WITH prev AS (
			SELECT storage_used_bytes FROM tenants WHERE id = $1
		), upd AS (
			UPDATE tenants
			SET storage_used_bytes = GREATEST(storage_used_bytes + $2, 0), updated_at = $3
			WHERE id = $1
			RETURNING storage_used_bytes
		)
		SELECT upd.storage_used_bytes, prev.storage_used_bytes + $2 < 0 FROM upd, prev
	`
	var used int64
	var clamped bool
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID), delta, requestcontext.Now(ctx)).Scan(&used, &clamped)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, ErrNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("adjust storage: %w", err)
	}
	return used, clamped, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanTenant.
type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(row scanner) (*models.Tenant, error) {
	var (
		t        models.Tenant
		tenantID uuid.UUID
		keyID    sql.NullString
		key      sql.NullString
		bucket   sql.NullString
		expires  sql.NullTime
	)
	err := row.Scan(
		&tenantID,
		&t.Subdomain,
		&t.Name,
		&t.Email,
		&keyID,
		&key,
		&bucket,
		&t.StorageLimitMB,
		&t.StorageUsedBytes,
		&t.CreatedAt,
		&t.UpdatedAt,
		&expires,
		&t.IsActive,
	)
	if err != nil {
		return nil, err
	}
	t.ID = id.TenantID(tenantID)
	t.StorageKeyID = keyID.String
	t.StorageKey = key.String
	t.StorageBucket = bucket.String
	if expires.Valid {
		exp := expires.Time
		t.ExpiresAt = &exp
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
