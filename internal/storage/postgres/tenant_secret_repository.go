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
	"github.com/vitoflow/metering-api/internal/domain/tenantsecret"
	"github.com/vitoflow/metering-api/internal/ierr"
	"go.uber.org/zap"
)

type TenantSecretRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTenantSecretRepository(db *pgxpool.Pool, logger *zap.Logger) *TenantSecretRepository {
	return &TenantSecretRepository{
		db:     db,
		logger: logger.Named("TenantSecretRepository"),
	}
}

var _ tenantsecret.Repository = (*TenantSecretRepository)(nil)

const tenantSecretColumns = `
	id, tenant_id, name, provider, vault_path, allowed_scopes,
	is_active, expires_at, created_at, rotated_at`

func scanTenantSecret(row pgx.Row) (*tenantsecret.TenantSecret, error) {
	var secret tenantsecret.TenantSecret
	var expiresAt, rotatedAt sql.NullTime

	err := row.Scan(
		&secret.ID,
		&secret.TenantID,
		&secret.Name,
		&secret.Provider,
		&secret.VaultPath,
		&secret.AllowedScopes,
		&secret.IsActive,
		&expiresAt,
		&secret.CreatedAt,
		&rotatedAt,
	)
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		t := expiresAt.Time
		secret.ExpiresAt = &t
	}
	if rotatedAt.Valid {
		t := rotatedAt.Time
		secret.RotatedAt = &t
	}

	return &secret, nil
}

func (r *TenantSecretRepository) FindByTenantAndName(ctx context.Context, tenantID uuid.UUID, name string) (*tenantsecret.TenantSecret, error) {
	query := `SELECT` + tenantSecretColumns + `
		FROM tenant_secrets
		WHERE tenant_id = $1 AND name = $2`

	secret, err := scanTenantSecret(r.db.QueryRow(ctx, query, tenantID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.ErrSecretNotFound
		}
		r.logger.Error("Failed to find tenant secret",
			zap.String("tenant_id", tenantID.String()),
			zap.String("name", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("db error finding tenant secret: %w", err)
	}

	return secret, nil
}

func (r *TenantSecretRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenantsecret.TenantSecret, error) {
	query := `SELECT` + tenantSecretColumns + `
		FROM tenant_secrets
		WHERE id = $1`

	secret, err := scanTenantSecret(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.ErrSecretNotFound
		}
		r.logger.Error("Failed to find tenant secret by id", zap.String("secret_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error finding tenant secret: %w", err)
	}

	return secret, nil
}

func (r *TenantSecretRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*tenantsecret.TenantSecret, error) {
	query := `SELECT` + tenantSecretColumns + `
		FROM tenant_secrets
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		r.logger.Error("Failed to list tenant secrets", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error listing tenant secrets: %w", err)
	}
	defer rows.Close()

	var secrets []*tenantsecret.TenantSecret
	for rows.Next() {
		secret, err := scanTenantSecret(rows)
		if err != nil {
			return nil, fmt.Errorf("db error scanning tenant secret: %w", err)
		}
		secrets = append(secrets, secret)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error iterating tenant secrets: %w", err)
	}

	return secrets, nil
}

func (r *TenantSecretRepository) Create(ctx context.Context, secret *tenantsecret.TenantSecret) (uuid.UUID, error) {
	query := `
		INSERT INTO tenant_secrets (
			tenant_id, name, provider, vault_path, allowed_scopes,
			is_active, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var insertedID uuid.UUID
	err := r.db.QueryRow(ctx, query,
		secret.TenantID,
		secret.Name,
		secret.Provider,
		secret.VaultPath,
		secret.AllowedScopes,
		secret.IsActive,
		secret.ExpiresAt,
	).Scan(&insertedID)

	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn("Tenant secret unique constraint violation",
				zap.String("tenant_id", secret.TenantID.String()),
				zap.String("name", secret.Name),
			)
			return uuid.Nil, fmt.Errorf("%w: tenant secret name", ierr.ErrConflict)
		}
		r.logger.Error("Failed to create tenant secret", zap.Error(err))
		return uuid.Nil, fmt.Errorf("db error creating tenant secret: %w", err)
	}

	r.logger.Info("Tenant secret created",
		zap.String("secret_id", insertedID.String()),
		zap.String("tenant_id", secret.TenantID.String()),
		zap.String("name", secret.Name),
	)
	return insertedID, nil
}

func (r *TenantSecretRepository) Rotate(ctx context.Context, id uuid.UUID, vaultPath string, rotatedAt time.Time) error {
	query := `UPDATE tenant_secrets SET vault_path = $1, rotated_at = $2 WHERE id = $3 AND is_active = TRUE`

	cmdTag, err := r.db.Exec(ctx, query, vaultPath, rotatedAt, id)
	if err != nil {
		r.logger.Error("Failed to rotate tenant secret", zap.String("secret_id", id.String()), zap.Error(err))
		return fmt.Errorf("db error rotating tenant secret: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ierr.ErrSecretNotFound
	}

	r.logger.Info("Tenant secret rotated", zap.String("secret_id", id.String()))
	return nil
}

func (r *TenantSecretRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE tenant_secrets SET is_active = FALSE WHERE id = $1`

	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to deactivate tenant secret", zap.String("secret_id", id.String()), zap.Error(err))
		return fmt.Errorf("db error deactivating tenant secret: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ierr.ErrSecretNotFound
	}

	return nil
}
