package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vitoflow/metering-api/internal/domain/apikey"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/util"
	"go.uber.org/zap"
)

// APIKeyService handles key lifecycle for the management API: minting,
// listing, rotation, and soft revocation. Revoked keys stay on disk so
// usage rows keep their referent.
type APIKeyService struct {
	repo   apikey.Repository
	logger *zap.Logger
}

func NewAPIKeyService(repo apikey.Repository, logger *zap.Logger) *APIKeyService {
	return &APIKeyService{
		repo:   repo,
		logger: logger.Named("APIKeyService"),
	}
}

func (s *APIKeyService) CreateAPIKey(ctx context.Context, req *dto.CreateAPIKeyRequest) (*dto.CreateAPIKeyResponse, error) {
	s.logger.Info("Generating new API key",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("key_name", req.KeyName),
	)

	fullKey, prefix, keyHash, err := util.GenerateAPIKey(req.Scopes[0])
	if err != nil {
		s.logger.Error("Failed to generate api key components", zap.Error(err))
		return nil, fmt.Errorf("%w: failed generating key: %v", ierr.ErrInternalServer, err)
	}

	newKey := &apikey.APIKey{
		TenantID:             req.TenantID,
		KeyName:              req.KeyName,
		KeyHash:              keyHash,
		KeyPrefix:            prefix,
		Scopes:               req.Scopes,
		AllowedProviders:     req.AllowedProviders,
		AllowedModels:        req.AllowedModels,
		RateLimitPerMinute:   req.RateLimitPerMinute,
		RateLimitPerDay:      req.RateLimitPerDay,
		MaxCostPerDayCents:   req.MaxCostPerDayCents,
		MaxCostPerMonthCents: req.MaxCostPerMonthCents,
		IsActive:             true,
		ExpiresAt:            req.ExpiresAt,
	}

	insertedID, err := s.repo.Create(ctx, newKey)
	if err != nil {
		s.logger.Error("Failed to save new api key", zap.Error(err))
		return nil, fmt.Errorf("repository error creating api key: %w", err)
	}

	s.logger.Info("API key created",
		zap.String("key_id", insertedID.String()),
		zap.String("key_prefix", prefix),
	)

	return &dto.CreateAPIKeyResponse{
		ID:        insertedID,
		TenantID:  req.TenantID,
		FullKey:   fullKey,
		KeyPrefix: prefix,
		KeyName:   req.KeyName,
		Scopes:    req.Scopes,
	}, nil
}

func (s *APIKeyService) ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*dto.APIKeyResponse, error) {
	keys, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to list api keys", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, fmt.Errorf("repository error listing api keys: %w", err)
	}

	responses := make([]*dto.APIKeyResponse, len(keys))
	for i, key := range keys {
		responses[i] = &dto.APIKeyResponse{
			ID:                   key.ID,
			TenantID:             key.TenantID,
			KeyName:              key.KeyName,
			KeyPrefix:            key.KeyPrefix,
			Scopes:               key.Scopes,
			AllowedProviders:     key.AllowedProviders,
			AllowedModels:        key.AllowedModels,
			RateLimitPerMinute:   key.RateLimitPerMinute,
			RateLimitPerDay:      key.RateLimitPerDay,
			MaxCostPerDayCents:   key.MaxCostPerDayCents,
			MaxCostPerMonthCents: key.MaxCostPerMonthCents,
			IsActive:             key.IsActive,
			ExpiresAt:            key.ExpiresAt,
			CreatedAt:            key.CreatedAt,
			LastUsedAt:           key.LastUsedAt,
		}
	}
	return responses, nil
}

// RotateAPIKey mints a fresh secret for an existing key row. Scopes and
// limits carry over; the previous plaintext stops validating as soon as
// the new hash lands.
func (s *APIKeyService) RotateAPIKey(ctx context.Context, id uuid.UUID) (*dto.RotateAPIKeyResponse, error) {
	key, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !key.IsActive {
		return nil, fmt.Errorf("%w: cannot rotate inactive key", ierr.ErrConflict)
	}

	scope := ""
	if len(key.Scopes) > 0 {
		scope = key.Scopes[0]
	}
	fullKey, prefix, keyHash, err := util.GenerateAPIKey(scope)
	if err != nil {
		s.logger.Error("Failed to generate rotated key components", zap.Error(err))
		return nil, fmt.Errorf("%w: failed generating key: %v", ierr.ErrInternalServer, err)
	}

	if err := s.repo.RotateHash(ctx, id, keyHash, prefix); err != nil {
		s.logger.Error("Failed to rotate api key", zap.String("key_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("repository error rotating api key: %w", err)
	}

	s.logger.Info("API key rotated", zap.String("key_id", id.String()), zap.String("key_prefix", prefix))

	return &dto.RotateAPIKeyResponse{
		ID:        id,
		FullKey:   fullKey,
		KeyPrefix: prefix,
	}, nil
}

func (s *APIKeyService) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		s.logger.Error("Failed to revoke api key", zap.String("key_id", id.String()), zap.Error(err))
		return fmt.Errorf("repository error revoking api key %s: %w", id, err)
	}

	s.logger.Info("API key revoked", zap.String("key_id", id.String()))
	return nil
}
