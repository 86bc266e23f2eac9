// Package quota implements storage quota bookkeeping over the tenant directory.
//
// The accountant never talks to object storage; it only moves the tenant's
// used-bytes counter. Serialization of check-and-reserve is delegated to the
// directory implementation (conditional UPDATE in Postgres, mutex in memory)
// so two concurrent uploads can never jointly overshoot the limit.
package quota

import (
	"context"
	"errors"
	"log/slog"

	"photoportal/internal/sentinel"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/requestcontext"
)

// Directory is the slice of the tenant store the accountant needs.
type Directory interface {
	ReserveStorage(ctx context.Context, tenantID id.TenantID, delta int64) (used int64, ok bool, err error)
	AdjustStorage(ctx context.Context, tenantID id.TenantID, delta int64) (used int64, clamped bool, err error)
}

// Accountant adjusts and checks a tenant's used-storage counter relative to
// its fixed limit.
type Accountant struct {
	directory Directory
	logger    *slog.Logger
}

// New creates an Accountant over the given tenant directory.
func New(directory Directory, logger *slog.Logger) *Accountant {
	return &Accountant{directory: directory, logger: logger}
}

// Reserve admits delta bytes against the tenant's quota. It returns the
// resulting used counter and false (without mutating state) when the
// reservation would exceed the limit. Negative deltas always succeed.
func (a *Accountant) Reserve(ctx context.Context, tenantID id.TenantID, delta int64) (int64, bool, error) {
	used, ok, err := a.directory.ReserveStorage(ctx, tenantID, delta)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, false, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return 0, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "quota reservation failed")
	}
	return used, ok, nil
}

// Apply unconditionally adjusts the used counter by delta, for reconciliation
// and deletes. The counter is clamped at zero; a clamp means the ledger and
// the running total disagreed and is logged as a bookkeeping discrepancy.
func (a *Accountant) Apply(ctx context.Context, tenantID id.TenantID, delta int64) (int64, error) {
	used, clamped, err := a.directory.AdjustStorage(ctx, tenantID, delta)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "quota adjustment failed")
	}
	if clamped {
		a.logger.WarnContext(ctx, "storage counter clamped at zero",
			"tenant_id", tenantID,
			"delta_bytes", delta,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return used, nil
}
