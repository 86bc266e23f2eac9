package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"photoportal/internal/photo/models"
	id "photoportal/pkg/domain"
)

// UsagePostgres persists the usage ledger in PostgreSQL.
type UsagePostgres struct {
	db *sql.DB
}

// NewUsagePostgres constructs a PostgreSQL-backed usage ledger.
func NewUsagePostgres(db *sql.DB) *UsagePostgres {
	return &UsagePostgres{db: db}
}

// Append adds the entry to the ledger.
func (s *UsagePostgres) Append(ctx context.Context, entry *models.UsageLog) error {
	query := `
		INSERT INTO usage_logs (id, tenant_id, log_type, bytes_transferred, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		uuid.UUID(entry.TenantID),
		string(entry.LogType),
		entry.BytesTransferred,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append usage log: %w", err)
	}
	return nil
}

// ListByTenant returns the tenant's entries, newest first.
func (s *UsagePostgres) ListByTenant(ctx context.Context, tenantID id.TenantID, offset, limit int) ([]*models.UsageLog, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, tenant_id, log_type, bytes_transferred, created_at
		FROM usage_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC OFFSET $2 LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list usage logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []*models.UsageLog
	for rows.Next() {
		var (
			e       models.UsageLog
			tid     uuid.UUID
			logType string
		)
		if err := rows.Scan(&e.ID, &tid, &logType, &e.BytesTransferred, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage log: %w", err)
		}
		e.TenantID = id.TenantID(tid)
		e.LogType = models.LogType(logType)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SumStorageByTenant returns the signed sum of the tenant's storage-affecting
// entries. Download entries track bandwidth and are excluded.
func (s *UsagePostgres) SumStorageByTenant(ctx context.Context, tenantID id.TenantID) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(sum(bytes_transferred), 0)
		FROM usage_logs WHERE tenant_id = $1 AND log_type <> 'download'`
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID)).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum usage logs: %w", err)
	}
	return sum, nil
}

// DeleteByTenant removes all entries belonging to the tenant.
func (s *UsagePostgres) DeleteByTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM usage_logs WHERE tenant_id = $1`, uuid.UUID(tenantID))
	if err != nil {
		return fmt.Errorf("delete usage logs by tenant: %w", err)
	}
	return nil
}

var _ UsageStore = (*UsagePostgres)(nil)
