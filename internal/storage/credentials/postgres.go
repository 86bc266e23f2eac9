package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "photoportal/pkg/domain"
)

// Postgres persists credentials in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const credColumns = `
	id, tenant_id, key_id, key, bucket_name, endpoint, is_active, created_at
`

// Create stores the credential set.
func (s *Postgres) Create(ctx context.Context, c *Credential) error {
	query := `
		INSERT INTO storage_credentials (` + credColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID),
		tenantUUID(c.TenantID),
		c.KeyID,
		c.Key,
		nullString(c.BucketName),
		nullString(c.Endpoint),
		c.IsActive,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create storage credential: %w", err)
	}
	return nil
}

// FindByID retrieves a credential set by its UUID.
func (s *Postgres) FindByID(ctx context.Context, credID id.CredentialID) (*Credential, error) {
	query := `SELECT ` + credColumns + ` FROM storage_credentials WHERE id = $1`
	c, err := scanCredential(s.db.QueryRowContext(ctx, query, uuid.UUID(credID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find storage credential: %w", err)
	}
	return c, nil
}

// FindByTenant returns the tenant's active credential set, newest when several
// exist.
func (s *Postgres) FindByTenant(ctx context.Context, tenantID id.TenantID) (*Credential, error) {
	query := `
		SELECT ` + credColumns + ` FROM storage_credentials
		WHERE tenant_id = $1 AND is_active
		ORDER BY created_at DESC LIMIT 1
	`
	c, err := scanCredential(s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find tenant storage credential: %w", err)
	}
	return c, nil
}

// FindDefault returns the active shared default credential set.
func (s *Postgres) FindDefault(ctx context.Context) (*Credential, error) {
	query := `
		SELECT ` + credColumns + ` FROM storage_credentials
		WHERE tenant_id IS NULL AND is_active
		ORDER BY created_at DESC LIMIT 1
	`
	c, err := scanCredential(s.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find default storage credential: %w", err)
	}
	return c, nil
}

// List returns all credential sets, newest first.
func (s *Postgres) List(ctx context.Context) ([]*Credential, error) {
	query := `SELECT ` + credColumns + ` FROM storage_credentials ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list storage credentials: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var creds []*Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan storage credential: %w", err)
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// Update persists mutable credential fields.
func (s *Postgres) Update(ctx context.Context, c *Credential) error {
	query := `
		UPDATE storage_credentials
		SET key_id = $2, key = $3, bucket_name = $4, endpoint = $5, is_active = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID),
		c.KeyID,
		c.Key,
		nullString(c.BucketName),
		nullString(c.Endpoint),
		c.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update storage credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the credential set.
func (s *Postgres) Delete(ctx context.Context, credID id.CredentialID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM storage_credentials WHERE id = $1`, uuid.UUID(credID))
	if err != nil {
		return fmt.Errorf("delete storage credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanCredential.
type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (*Credential, error) {
	var (
		c        Credential
		credID   uuid.UUID
		tenantID uuid.NullUUID
		bucket   sql.NullString
		endpoint sql.NullString
	)
	err := row.Scan(
		&credID,
		&tenantID,
		&c.KeyID,
		&c.Key,
		&bucket,
		&endpoint,
		&c.IsActive,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.CredentialID(credID)
	if tenantID.Valid {
		tid := id.TenantID(tenantID.UUID)
		c.TenantID = &tid
	}
	c.BucketName = bucket.String
	c.Endpoint = endpoint.String
	return &c, nil
}

func tenantUUID(tenantID *id.TenantID) uuid.NullUUID {
	if tenantID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*tenantID), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*Postgres)(nil)
