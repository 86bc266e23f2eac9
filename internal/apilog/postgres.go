package apilog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "photoportal/pkg/domain"
)

// Postgres persists audit entries in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const logColumns = `
	id, method, path, status_code, user_id, tenant_id,
	ip_address, user_agent, browser, os, duration_ms, created_at
`

// Record inserts the audit entry.
func (s *Postgres) Record(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO api_logs (` + logColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	var userID, tenantID uuid.NullUUID
	if e.UserID != nil {
		userID = uuid.NullUUID{UUID: uuid.UUID(*e.UserID), Valid: true}
	}
	if e.TenantID != nil {
		tenantID = uuid.NullUUID{UUID: uuid.UUID(*e.TenantID), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Method,
		e.Path,
		e.StatusCode,
		userID,
		tenantID,
		e.IPAddress,
		e.UserAgent,
		e.Browser,
		e.OS,
		e.DurationMS,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record api log: %w", err)
	}
	return nil
}

// List returns entries newest first, optionally filtered by tenant.
func (s *Postgres) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if filter.TenantID != nil {
		query := `SELECT ` + logColumns + ` FROM api_logs WHERE tenant_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`
		rows, err = s.db.QueryContext(ctx, query, uuid.UUID(*filter.TenantID), filter.Offset, limit)
	} else {
		query := `SELECT ` + logColumns + ` FROM api_logs ORDER BY created_at DESC OFFSET $1 LIMIT $2`
		rows, err = s.db.QueryContext(ctx, query, filter.Offset, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list api logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []*Entry
	for rows.Next() {
		var (
			e        Entry
			userID   uuid.NullUUID
			tenantID uuid.NullUUID
			ip       sql.NullString
			ua       sql.NullString
			browser  sql.NullString
			osName   sql.NullString
			duration sql.NullInt64
		)
		err := rows.Scan(
			&e.ID,
			&e.Method,
			&e.Path,
			&e.StatusCode,
			&userID,
			&tenantID,
			&ip,
			&ua,
			&browser,
			&osName,
			&duration,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan api log: %w", err)
		}
		if userID.Valid {
			uid := id.UserID(userID.UUID)
			e.UserID = &uid
		}
		if tenantID.Valid {
			tid := id.TenantID(tenantID.UUID)
			e.TenantID = &tid
		}
		e.IPAddress = ip.String
		e.UserAgent = ua.String
		e.Browser = browser.String
		e.OS = osName.String
		e.DurationMS = int(duration.Int64)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

var _ Store = (*Postgres)(nil)
