package ports

import (
	"context"
	"time"

	"salonpos-backend/internal/domain"
)

// HealthChecker is used to probe dependencies.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// SettlementStore is the persistence boundary of the cash-closure engine.
// Preview is read-only and safe to repeat; Finalize is not idempotent and
// must be guarded by the caller's idempotency key.
type SettlementStore interface {
	Preview(ctx context.Context, salonID, professionalID int64, from, to time.Time) (*domain.SettlementPreview, error)
	Finalize(ctx context.Context, in domain.ClosureFinalization) (*domain.ClosureResult, error)
}
