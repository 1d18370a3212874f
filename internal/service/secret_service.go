package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitoflow/metering-api/internal/domain/tenantsecret"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/metrics"
	"github.com/vitoflow/metering-api/internal/vault"
	"go.uber.org/zap"
)

// SecretService resolves tenant-owned provider credentials through the
// vault boundary and owns their lifecycle. Scope checks always run
// against the current database row; only the vault round-trip is cached.
type SecretService struct {
	repo   tenantsecret.Repository
	vault  *vault.Client
	cache  *vault.HandleCache
	logger *zap.Logger
	now    func() time.Time
}

func NewSecretService(repo tenantsecret.Repository, vaultClient *vault.Client, cache *vault.HandleCache, logger *zap.Logger) *SecretService {
	return &SecretService{
		repo:   repo,
		vault:  vaultClient,
		cache:  cache,
		logger: logger.Named("SecretService"),
		now:    time.Now,
	}
}

// Resolve returns an opaque handle for the named secret, releasable only
// under a scope the secret allows. Inactive and expired secrets resolve
// as not-found; a scope mismatch is reported distinctly because callers
// operate within their own tenant's namespace.
func (s *SecretService) Resolve(ctx context.Context, tenantID uuid.UUID, name, requiredScope string) (*vault.SecretHandle, error) {
	secret, err := s.repo.FindByTenantAndName(ctx, tenantID, name)
	if err != nil {
		metrics.SecretResolutionsTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if !secret.IsUsable(s.now()) {
		metrics.SecretResolutionsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: %s", ierr.ErrSecretNotFound, name)
	}
	if !secret.AllowsScope(requiredScope) {
		s.logger.Warn("Secret scope denied",
			zap.String("tenant_id", tenantID.String()),
			zap.String("secret_id", secret.ID.String()),
			zap.String("required_scope", requiredScope),
		)
		metrics.SecretResolutionsTotal.WithLabelValues("scope_denied").Inc()
		return nil, fmt.Errorf("%w: %s", ierr.ErrSecretScopeDenied, requiredScope)
	}

	if handle, ok := s.cache.Get(tenantID, name); ok {
		metrics.SecretCacheHitsTotal.WithLabelValues("hit").Inc()
		metrics.SecretResolutionsTotal.WithLabelValues("resolved").Inc()
		return handle, nil
	}
	metrics.SecretCacheHitsTotal.WithLabelValues("miss").Inc()

	value, err := s.vault.ReadSecretValue(ctx, secret.VaultPath)
	if err != nil {
		s.logger.Error("Vault resolution failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("secret_id", secret.ID.String()),
			zap.Error(err),
		)
		metrics.SecretResolutionsTotal.WithLabelValues("vault_error").Inc()
		return nil, fmt.Errorf("%w: vault resolution failed", ierr.ErrSecretNotFound)
	}

	handle := vault.NewSecretHandle(secret.ID, secret.TenantID, secret.Name, secret.Provider, value)
	s.cache.Put(tenantID, name, handle)

	metrics.SecretResolutionsTotal.WithLabelValues("resolved").Inc()
	return handle, nil
}

func vaultPathFor(tenantID uuid.UUID, name string) string {
	return fmt.Sprintf("tenants/%s/%s", tenantID, name)
}

// CreateSecret writes the credential to the vault and registers its
// reference row. The plaintext value is dropped after the vault write.
func (s *SecretService) CreateSecret(ctx context.Context, req *dto.CreateSecretRequest) (*dto.SecretResponse, error) {
	path := vaultPathFor(req.TenantID, req.Name)
	if err := s.vault.WriteSecretValue(ctx, path, req.Value); err != nil {
		return nil, fmt.Errorf("%w: vault write failed", ierr.ErrInternalServer)
	}

	secret := &tenantsecret.TenantSecret{
		TenantID:      req.TenantID,
		Name:          req.Name,
		Provider:      req.Provider,
		VaultPath:     path,
		AllowedScopes: req.AllowedScopes,
		IsActive:      true,
		ExpiresAt:     req.ExpiresAt,
	}

	insertedID, err := s.repo.Create(ctx, secret)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tenant secret registered",
		zap.String("secret_id", insertedID.String()),
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("provider", req.Provider),
	)

	return &dto.SecretResponse{
		ID:            insertedID,
		TenantID:      req.TenantID,
		Name:          req.Name,
		Provider:      req.Provider,
		AllowedScopes: req.AllowedScopes,
		IsActive:      true,
		ExpiresAt:     req.ExpiresAt,
	}, nil
}

// RotateSecret replaces the credential value. The cached handle is
// dropped immediately so no caller can see the old value past this call.
func (s *SecretService) RotateSecret(ctx context.Context, id uuid.UUID, newValue string) error {
	secret, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.vault.WriteSecretValue(ctx, secret.VaultPath, newValue); err != nil {
		return fmt.Errorf("%w: vault write failed", ierr.ErrInternalServer)
	}
	if err := s.repo.Rotate(ctx, id, secret.VaultPath, s.now().UTC()); err != nil {
		return err
	}

	s.cache.Invalidate(secret.TenantID, secret.Name)
	s.logger.Info("Tenant secret rotated", zap.String("secret_id", id.String()))
	return nil
}

func (s *SecretService) DeactivateSecret(ctx context.Context, id uuid.UUID) error {
	secret, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(secret.TenantID, secret.Name)
	s.logger.Info("Tenant secret deactivated", zap.String("secret_id", id.String()))
	return nil
}

func (s *SecretService) ListSecrets(ctx context.Context, tenantID uuid.UUID) ([]*dto.SecretResponse, error) {
	secrets, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.SecretResponse, len(secrets))
	for i, secret := range secrets {
		responses[i] = &dto.SecretResponse{
			ID:            secret.ID,
			TenantID:      secret.TenantID,
			Name:          secret.Name,
			Provider:      secret.Provider,
			AllowedScopes: secret.AllowedScopes,
			IsActive:      secret.IsActive,
			ExpiresAt:     secret.ExpiresAt,
			CreatedAt:     secret.CreatedAt,
			RotatedAt:     secret.RotatedAt,
		}
	}
	return responses, nil
}
