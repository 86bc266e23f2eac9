package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"photoportal/internal/auth/models"
	"photoportal/internal/sentinel"
	id "photoportal/pkg/domain"
)

// Postgres persists users in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const userColumns = `
	id, tenant_id, email, hashed_password,
	is_admin, is_tenant_admin, created_at
`

// CreateIfEmailAvailable atomically creates the user if the email is not
// already taken; the unique index on lower(email) enforces it.
func (s *Postgres) CreateIfEmailAvailable(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(u.ID),
		nullUUID(uuid.UUID(u.TenantID)),
		u.Email,
		u.HashedPassword,
		u.IsAdmin,
		u.IsTenantAdmin,
		u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user email must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by its UUID.
func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByEmail retrieves a user by email (case-insensitive).
func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// List returns users ordered by creation time, newest first.
func (s *Postgres) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return collectUsers(rows)
}

// ListByTenant returns the tenant's users ordered by creation time, newest first.
func (s *Postgres) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list users by tenant: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return collectUsers(rows)
}

// Update persists mutable user fields. The email is immutable.
func (s *Postgres) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET hashed_password = $2, is_admin = $3, is_tenant_admin = $4
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(u.ID),
		u.HashedPassword,
		u.IsAdmin,
		u.IsTenantAdmin,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByTenant removes all users belonging to the tenant.
func (s *Postgres) DeleteByTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE tenant_id = $1`, uuid.UUID(tenantID))
	if err != nil {
		return fmt.Errorf("delete users by tenant: %w", err)
	}
	return nil
}

// CountByTenant returns the number of users belonging to the tenant.
func (s *Postgres) CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE tenant_id = $1`, uuid.UUID(tenantID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users by tenant: %w", err)
	}
	return n, nil
}

// Count returns the total number of accounts.
func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanUser.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u        models.User
		userID   uuid.UUID
		tenantID uuid.NullUUID
	)
	err := row.Scan(
		&userID,
		&tenantID,
		&u.Email,
		&u.HashedPassword,
		&u.IsAdmin,
		&u.IsTenantAdmin,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	if tenantID.Valid {
		u.TenantID = id.TenantID(tenantID.UUID)
	}
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]*models.User, error) {
	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*Postgres)(nil)
