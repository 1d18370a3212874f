package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitoflow/metering-api/internal/domain/usage"
	"go.uber.org/zap"
)

type UsageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUsageRepository(db *pgxpool.Pool, logger *zap.Logger) *UsageRepository {
	return &UsageRepository{
		db:     db,
		logger: logger.Named("UsageRepository"),
	}
}

var _ usage.Repository = (*UsageRepository)(nil)

// InsertEvent is the idempotency point for billing. The event insert and
// the rollup increment commit together; a duplicate correlation id makes
// the insert a no-op and skips the rollup, so retries can never
// double-count.
func (r *UsageRepository) InsertEvent(ctx context.Context, event *usage.UsageEvent) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.Error("Failed to begin usage transaction", zap.Error(err))
		return false, fmt.Errorf("db error beginning usage tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertQuery := `
		INSERT INTO usage_events (
			correlation_id, tenant_id, api_key_id, tenant_secret_id,
			scope, operation_type, provider, model_used, tokens_input,
			tokens_output, duration_ms, cost_cents, currency, metadata,
			recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (correlation_id) DO NOTHING`

	cmdTag, err := tx.Exec(ctx, insertQuery,
		event.CorrelationID,
		event.TenantID,
		event.APIKeyID,
		event.TenantSecretID,
		event.Scope,
		event.OperationType,
		event.Provider,
		event.ModelUsed,
		event.TokensInput,
		event.TokensOutput,
		event.DurationMs,
		event.CostCents,
		event.Currency,
		event.Metadata,
		event.RecordedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert usage event",
			zap.String("correlation_id", event.CorrelationID),
			zap.Error(err),
		)
		return false, fmt.Errorf("db error inserting usage event: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		// First writer already recorded this call.
		if err := tx.Commit(ctx); err != nil {
			return false, fmt.Errorf("db error committing usage tx: %w", err)
		}
		r.logger.Debug("Duplicate usage event deduplicated",
			zap.String("correlation_id", event.CorrelationID),
		)
		return false, nil
	}

	rollupQuery := `
		INSERT INTO usage_daily (
			tenant_id, usage_date, scope, request_count, tokens_input,
			tokens_output, cost_cents
		)
		VALUES ($1, $2, $3, 1, $4, $5, $6)
		ON CONFLICT (tenant_id, usage_date, scope) DO UPDATE SET
			request_count = usage_daily.request_count + 1,
			tokens_input  = usage_daily.tokens_input + EXCLUDED.tokens_input,
			tokens_output = usage_daily.tokens_output + EXCLUDED.tokens_output,
			cost_cents    = usage_daily.cost_cents + EXCLUDED.cost_cents`

	usageDate := event.RecordedAt.UTC().Truncate(24 * time.Hour)
	_, err = tx.Exec(ctx, rollupQuery,
		event.TenantID,
		usageDate,
		event.Scope,
		event.TokensInput,
		event.TokensOutput,
		event.CostCents,
	)
	if err != nil {
		r.logger.Error("Failed to upsert daily usage rollup",
			zap.String("correlation_id", event.CorrelationID),
			zap.Error(err),
		)
		return false, fmt.Errorf("db error upserting daily usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("Failed to commit usage transaction", zap.Error(err))
		return false, fmt.Errorf("db error committing usage tx: %w", err)
	}

	return true, nil
}

func (r *UsageRepository) TenantSpend(ctx context.Context, tenantID uuid.UUID, day time.Time) (*usage.SpendSnapshot, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)

	query := `
		SELECT
			COALESCE(SUM(cost_cents) FILTER (WHERE usage_date = $2), 0),
			COALESCE(SUM(cost_cents), 0)
		FROM usage_daily
		WHERE tenant_id = $1 AND usage_date >= $3 AND usage_date <= $2`

	var snapshot usage.SpendSnapshot
	err := r.db.QueryRow(ctx, query, tenantID, day, monthStart).Scan(&snapshot.DayCents, &snapshot.MonthCents)
	if err != nil {
		r.logger.Error("Failed to query tenant spend", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error querying tenant spend: %w", err)
	}

	return &snapshot, nil
}

func (r *UsageRepository) DailyTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*usage.DailyUsage, error) {
	query := `
		SELECT tenant_id, usage_date, scope, request_count, tokens_input,
		       tokens_output, cost_cents
		FROM usage_daily
		WHERE tenant_id = $1 AND usage_date >= $2 AND usage_date <= $3
		ORDER BY usage_date, scope`

	rows, err := r.db.Query(ctx, query, tenantID, from.UTC().Truncate(24*time.Hour), to.UTC().Truncate(24*time.Hour))
	if err != nil {
		r.logger.Error("Failed to query daily totals", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error querying daily totals: %w", err)
	}
	defer rows.Close()

	var totals []*usage.DailyUsage
	for rows.Next() {
		var d usage.DailyUsage
		err := rows.Scan(
			&d.TenantID,
			&d.UsageDate,
			&d.Scope,
			&d.RequestCount,
			&d.TokensInput,
			&d.TokensOutput,
			&d.CostCents,
		)
		if err != nil {
			return nil, fmt.Errorf("db error scanning daily usage: %w", err)
		}
		totals = append(totals, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error iterating daily usage: %w", err)
	}

	return totals, nil
}

// RebuildDay rewrites the rollups for one UTC day from the event table.
// Estimate drift between admission-time projections and recorded costs is
// repaired here, never by mutating events.
func (r *UsageRepository) RebuildDay(ctx context.Context, day time.Time) (int64, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	nextDay := day.Add(24 * time.Hour)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("db error beginning rebuild tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM usage_daily WHERE usage_date = $1`, day); err != nil {
		r.logger.Error("Failed to clear daily rollups", zap.Time("usage_date", day), zap.Error(err))
		return 0, fmt.Errorf("db error clearing daily usage: %w", err)
	}

	rebuildQuery := `
		INSERT INTO usage_daily (
			tenant_id, usage_date, scope, request_count, tokens_input,
			tokens_output, cost_cents
		)
		SELECT tenant_id, $1, scope, COUNT(*), COALESCE(SUM(tokens_input), 0),
		       COALESCE(SUM(tokens_output), 0), COALESCE(SUM(cost_cents), 0)
		FROM usage_events
		WHERE recorded_at >= $1 AND recorded_at < $2
		GROUP BY tenant_id, scope`

	cmdTag, err := tx.Exec(ctx, rebuildQuery, day, nextDay)
	if err != nil {
		r.logger.Error("Failed to rebuild daily rollups", zap.Time("usage_date", day), zap.Error(err))
		return 0, fmt.Errorf("db error rebuilding daily usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("db error committing rebuild tx: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}
