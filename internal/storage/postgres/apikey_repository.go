package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitoflow/metering-api/internal/domain/apikey"
	"github.com/vitoflow/metering-api/internal/ierr"
	"go.uber.org/zap"
)

type APIKeyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAPIKeyRepository(db *pgxpool.Pool, logger *zap.Logger) *APIKeyRepository {
	return &APIKeyRepository{
		db:     db,
		logger: logger.Named("APIKeyRepository"),
	}
}

var _ apikey.Repository = (*APIKeyRepository)(nil)

const apiKeyColumns = `
	id, tenant_id, key_name, key_hash, key_prefix, scopes,
	allowed_providers, allowed_models, rate_limit_per_minute,
	rate_limit_per_day, max_cost_per_day_cents, max_cost_per_month_cents,
	is_active, expires_at, created_at, last_used_at`

func scanAPIKey(row pgx.Row) (*apikey.APIKey, error) {
	var key apikey.APIKey
	var maxDay, maxMonth sql.NullInt64
	var expiresAt, lastUsed sql.NullTime

	err := row.Scan(
		&key.ID,
		&key.TenantID,
		&key.KeyName,
		&key.KeyHash,
		&key.KeyPrefix,
		&key.Scopes,
		&key.AllowedProviders,
		&key.AllowedModels,
		&key.RateLimitPerMinute,
		&key.RateLimitPerDay,
		&maxDay,
		&maxMonth,
		&key.IsActive,
		&expiresAt,
		&key.CreatedAt,
		&lastUsed,
	)
	if err != nil {
		return nil, err
	}

	if maxDay.Valid {
		key.MaxCostPerDayCents = &maxDay.Int64
	}
	if maxMonth.Valid {
		key.MaxCostPerMonthCents = &maxMonth.Int64
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		key.ExpiresAt = &t
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		key.LastUsedAt = &t
	}

	return &key, nil
}

func (r *APIKeyRepository) FindCandidatesByPrefix(ctx context.Context, prefix string, limit int) ([]*apikey.APIKey, error) {
	query := `SELECT` + apiKeyColumns + `
		FROM api_keys
		WHERE key_prefix = $1
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, prefix, limit)
	if err != nil {
		r.logger.Error("Failed to query api key candidates", zap.String("key_prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("db error finding api key candidates: %w", err)
	}
	defer rows.Close()

	var keys []*apikey.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			r.logger.Error("Failed to scan api key row", zap.Error(err))
			return nil, fmt.Errorf("db error scanning api key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error iterating api keys: %w", err)
	}

	return keys, nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	query := `SELECT` + apiKeyColumns + `
		FROM api_keys
		WHERE id = $1`

	key, err := scanAPIKey(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.ErrInvalidKey
		}
		r.logger.Error("Failed to find api key by id", zap.String("key_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error finding api key: %w", err)
	}

	return key, nil
}

func (r *APIKeyRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*apikey.APIKey, error) {
	query := `SELECT` + apiKeyColumns + `
		FROM api_keys
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		r.logger.Error("Failed to list api keys", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error listing api keys: %w", err)
	}
	defer rows.Close()

	var keys []*apikey.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("db error scanning api key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error iterating api keys: %w", err)
	}

	return keys, nil
}

func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	query := `
		INSERT INTO api_keys (
			tenant_id, key_name, key_hash, key_prefix, scopes,
			allowed_providers, allowed_models, rate_limit_per_minute,
			rate_limit_per_day, max_cost_per_day_cents,
			max_cost_per_month_cents, is_active, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	var insertedID uuid.UUID
	err := r.db.QueryRow(ctx, query,
		key.TenantID,
		key.KeyName,
		key.KeyHash,
		key.KeyPrefix,
		key.Scopes,
		key.AllowedProviders,
		key.AllowedModels,
		key.RateLimitPerMinute,
		key.RateLimitPerDay,
		key.MaxCostPerDayCents,
		key.MaxCostPerMonthCents,
		key.IsActive,
		key.ExpiresAt,
	).Scan(&insertedID)

	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn("API key unique constraint violation", zap.String("key_prefix", key.KeyPrefix))
			return uuid.Nil, fmt.Errorf("%w: api key", ierr.ErrConflict)
		}
		r.logger.Error("Failed to create api key", zap.Error(err))
		return uuid.Nil, fmt.Errorf("db error creating api key: %w", err)
	}

	r.logger.Info("API key created", zap.String("key_id", insertedID.String()), zap.String("key_prefix", key.KeyPrefix))
	return insertedID, nil
}

func (r *APIKeyRepository) RotateHash(ctx context.Context, id uuid.UUID, keyHash, keyPrefix string) error {
	query := `UPDATE api_keys SET key_hash = $1, key_prefix = $2 WHERE id = $3 AND is_active = TRUE`

	cmdTag, err := r.db.Exec(ctx, query, keyHash, keyPrefix, id)
	if err != nil {
		r.logger.Error("Failed to rotate api key hash", zap.String("key_id", id.String()), zap.Error(err))
		return fmt.Errorf("db error rotating api key: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ierr.ErrNotFound
	}

	r.logger.Info("API key rotated", zap.String("key_id", id.String()))
	return nil
}

func (r *APIKeyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE api_keys SET is_active = FALSE WHERE id = $1`

	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to deactivate api key", zap.String("key_id", id.String()), zap.Error(err))
		return fmt.Errorf("db error deactivating api key: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ierr.ErrNotFound
	}

	return nil
}

func (r *APIKeyRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE api_keys SET is_active = FALSE WHERE is_active = TRUE AND expires_at IS NOT NULL AND expires_at < $1`

	cmdTag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		r.logger.Error("Failed to deactivate expired api keys", zap.Error(err))
		return 0, fmt.Errorf("db error deactivating expired api keys: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}

func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID, lastUsed time.Time) error {
	query := `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, lastUsed, id)
	if err != nil {
		r.logger.Error("Failed to update api key last_used_at", zap.String("key_id", id.String()), zap.Error(err))
		return fmt.Errorf("db error updating last used time: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("API key not found when updating last_used_at", zap.String("key_id", id.String()))
	}

	return nil
}
