package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// InsertEvent persists the event and, when the event is new, applies
	// its totals to the daily rollup in the same transaction. A duplicate
	// correlation id inserts nothing and returns inserted=false with no
	// error: first writer wins.
	InsertEvent(ctx context.Context, event *UsageEvent) (inserted bool, err error)

	// TenantSpend returns spend already recorded for the tenant on the
	// given UTC day and in its calendar month.
	TenantSpend(ctx context.Context, tenantID uuid.UUID, day time.Time) (*SpendSnapshot, error)

	DailyTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*DailyUsage, error)

	// RebuildDay recomputes the rollup rows for one tenant-day from the
	// event table, repairing any drift. Idempotent.
	RebuildDay(ctx context.Context, day time.Time) (int64, error)
}
