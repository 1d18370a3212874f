package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitoflow/metering-api/internal/domain/apikey"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/metrics"
	"github.com/vitoflow/metering-api/internal/util"
	"go.uber.org/zap"
)

// ValidationService is the single entry point for authenticating a raw
// API key against a requested (scope, provider, model) and deciding
// admission. It never returns a partially-valid result: either the full
// tenant context comes back, or a typed error does.
type ValidationService struct {
	keyRepo        apikey.Repository
	admission      *AdmissionService
	candidateLimit int
	logger         *zap.Logger
	now            func() time.Time
}

func NewValidationService(keyRepo apikey.Repository, admission *AdmissionService, candidateLimit int, logger *zap.Logger) *ValidationService {
	if candidateLimit <= 0 {
		candidateLimit = 50
	}
	return &ValidationService{
		keyRepo:        keyRepo,
		admission:      admission,
		candidateLimit: candidateLimit,
		logger:         logger.Named("ValidationService"),
		now:            time.Now,
	}
}

func (s *ValidationService) Validate(ctx context.Context, rawKey, scope, provider, model string, estimatedCostCents int64) (*dto.ValidationResult, error) {
	if !util.ValidKeyFormat(rawKey) {
		metrics.ValidationsTotal.WithLabelValues("invalid_format").Inc()
		return nil, fmt.Errorf("%w: malformed key", ierr.ErrInvalidKey)
	}

	prefix := util.DeriveKeyPrefix(rawKey)

	candidates, err := s.keyRepo.FindCandidatesByPrefix(ctx, prefix, s.candidateLimit)
	if err != nil {
		s.logger.Error("Candidate lookup failed", zap.String("key_prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("%w: key lookup failed", ierr.ErrInternalServer)
	}
	if len(candidates) == 0 {
		metrics.ValidationsTotal.WithLabelValues("not_found").Inc()
		return nil, ierr.ErrInvalidKey
	}
	if len(candidates) >= s.candidateLimit {
		// Hitting the cap means either a prefix-collision flood or a
		// misconfigured prefix length; refuse rather than compare an
		// attacker-controlled number of hashes.
		s.logger.Warn("Prefix candidate limit reached",
			zap.String("key_prefix", prefix),
			zap.Int("count", len(candidates)),
		)
		metrics.ValidationsTotal.WithLabelValues("prefix_collision").Inc()
		return nil, ierr.ErrInvalidKey
	}

	providedHash := util.HashAPIKey(rawKey)

	var matched *apikey.APIKey
	for _, candidate := range candidates {
		if subtle.ConstantTimeCompare([]byte(providedHash), []byte(candidate.KeyHash)) == 1 && matched == nil {
			matched = candidate
		}
	}
	if matched == nil {
		s.logger.Warn("API key hash mismatch", zap.String("key_prefix", prefix))
		metrics.ValidationsTotal.WithLabelValues("hash_mismatch").Inc()
		return nil, ierr.ErrInvalidKey
	}

	if !matched.IsActive {
		metrics.ValidationsTotal.WithLabelValues("inactive").Inc()
		return nil, fmt.Errorf("%w: key %s", ierr.ErrKeyInactive, matched.ID)
	}
	if matched.IsExpired(s.now()) {
		metrics.ValidationsTotal.WithLabelValues("expired").Inc()
		return nil, fmt.Errorf("%w: key %s", ierr.ErrExpiredKey, matched.ID)
	}

	if !matched.HasScope(scope) {
		metrics.ValidationsTotal.WithLabelValues("scope_denied").Inc()
		return nil, fmt.Errorf("%w: %s", ierr.ErrScopeDenied, scope)
	}
	if provider != "" && !matched.AllowsProvider(provider) {
		metrics.ValidationsTotal.WithLabelValues("provider_denied").Inc()
		return nil, fmt.Errorf("%w: %s", ierr.ErrProviderNotAllowed, provider)
	}
	if model != "" && !matched.AllowsModel(model) {
		metrics.ValidationsTotal.WithLabelValues("model_denied").Inc()
		return nil, fmt.Errorf("%w: %s", ierr.ErrModelNotAllowed, model)
	}

	admissionResult, err := s.admission.CheckKey(ctx, matched, scope, estimatedCostCents)
	if err != nil {
		return nil, err
	}
	if !admissionResult.Admitted {
		metrics.ValidationsTotal.WithLabelValues("denied_admission").Inc()
		if admissionResult.Reason == ReasonCostCapExceeded {
			return nil, fmt.Errorf("%w: key %s", ierr.ErrCostCapExceeded, matched.ID)
		}
		return nil, fmt.Errorf("%w: retry after %ds", ierr.ErrRateLimitExceeded, admissionResult.RetryAfterSeconds)
	}

	s.touchLastUsed(matched.ID)

	metrics.ValidationsTotal.WithLabelValues("valid").Inc()
	s.logger.Debug("API key validated",
		zap.String("key_id", matched.ID.String()),
		zap.String("key_prefix", matched.KeyPrefix),
		zap.String("scope", scope),
	)

	return &dto.ValidationResult{
		IsValid:          true,
		TenantID:         matched.TenantID,
		KeyID:            matched.ID,
		KeyPrefix:        matched.KeyPrefix,
		Scopes:           matched.Scopes,
		AllowedProviders: matched.AllowedProviders,
		AllowedModels:    matched.AllowedModels,
	}, nil
}

// touchLastUsed updates last_used_at best-effort off the request path; a
// lost update here is acceptable.
func (s *ValidationService) touchLastUsed(id uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.keyRepo.UpdateLastUsed(ctx, id, time.Now().UTC()); err != nil {
			s.logger.Warn("Failed to update last_used_at asynchronously",
				zap.String("key_id", id.String()),
				zap.Error(err),
			)
		}
	}()
}
