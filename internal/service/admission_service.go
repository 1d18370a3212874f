package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitoflow/metering-api/internal/domain/apikey"
	"github.com/vitoflow/metering-api/internal/domain/usage"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/metrics"
	"github.com/vitoflow/metering-api/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	ReasonRateLimitExceeded = "rate_limit_exceeded"
	ReasonCostCapExceeded   = "cost_cap_exceeded"
)

// AdmissionService decides whether an already-authenticated call may
// proceed. Rate counters are check-and-incremented atomically in Redis;
// the cost guard is a read-only projection against the daily rollups, so
// a cancelled call needs no reservation release.
type AdmissionService struct {
	keyRepo   apikey.Repository
	usageRepo usage.Repository
	limiter   ratelimit.Limiter
	logger    *zap.Logger
	now       func() time.Time
}

func NewAdmissionService(keyRepo apikey.Repository, usageRepo usage.Repository, limiter ratelimit.Limiter, logger *zap.Logger) *AdmissionService {
	return &AdmissionService{
		keyRepo:   keyRepo,
		usageRepo: usageRepo,
		limiter:   limiter,
		logger:    logger.Named("AdmissionService"),
		now:       time.Now,
	}
}

// Check loads the key and runs the admission pipeline. Every call that
// reaches the rate limiter consumes one slot in each window it touches,
// admitted or not.
func (s *AdmissionService) Check(ctx context.Context, keyID, tenantID uuid.UUID, scope string, estimatedCostCents int64) (*dto.AdmissionResult, error) {
	key, err := s.keyRepo.FindByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key.TenantID != tenantID {
		s.logger.Warn("Admission check with mismatched tenant",
			zap.String("key_id", keyID.String()),
			zap.String("tenant_id", tenantID.String()),
		)
		return nil, ierr.ErrInvalidKey
	}

	return s.CheckKey(ctx, key, scope, estimatedCostCents)
}

// CheckKey runs the admission pipeline for a key the caller has already
// loaded and authenticated.
func (s *AdmissionService) CheckKey(ctx context.Context, key *apikey.APIKey, scope string, estimatedCostCents int64) (*dto.AdmissionResult, error) {
	start := s.now()
	defer func() {
		metrics.AdmissionCheckDuration.Observe(s.now().Sub(start).Seconds())
	}()

	minuteResult, err := s.limiter.Allow(ctx, key.ID.String(), key.RateLimitPerMinute, ratelimit.PerMinute)
	if err != nil {
		return nil, fmt.Errorf("admission rate check failed: %w", err)
	}
	if !minuteResult.Allowed {
		return s.denyRate(key, ratelimit.PerMinute, minuteResult), nil
	}

	dayResult, err := s.limiter.Allow(ctx, key.ID.String(), key.RateLimitPerDay, ratelimit.PerDay)
	if err != nil {
		return nil, fmt.Errorf("admission rate check failed: %w", err)
	}
	if !dayResult.Allowed {
		return s.denyRate(key, ratelimit.PerDay, dayResult), nil
	}

	if key.MaxCostPerDayCents != nil || key.MaxCostPerMonthCents != nil {
		spend, err := s.usageRepo.TenantSpend(ctx, key.TenantID, s.now())
		if err != nil {
			return nil, fmt.Errorf("admission cost check failed: %w", err)
		}

		if exceeded := costCapExceeded(key, spend, estimatedCostCents); exceeded {
			s.logger.Info("Cost cap exceeded",
				zap.String("key_id", key.ID.String()),
				zap.String("tenant_id", key.TenantID.String()),
				zap.Int64("estimated_cost_cents", estimatedCostCents),
				zap.Int64("day_spend_cents", spend.DayCents),
				zap.Int64("month_spend_cents", spend.MonthCents),
			)
			metrics.AdmissionDecisionsTotal.WithLabelValues(ReasonCostCapExceeded).Inc()
			return &dto.AdmissionResult{
				Admitted: false,
				Reason:   ReasonCostCapExceeded,
			}, nil
		}
	}

	metrics.AdmissionDecisionsTotal.WithLabelValues("admitted").Inc()
	return &dto.AdmissionResult{Admitted: true}, nil
}

func (s *AdmissionService) denyRate(key *apikey.APIKey, granularity ratelimit.Granularity, result *ratelimit.Result) *dto.AdmissionResult {
	s.logger.Info("Rate limit exceeded",
		zap.String("key_id", key.ID.String()),
		zap.String("window", string(granularity)),
		zap.Int("limit", result.Limit),
	)
	metrics.AdmissionDecisionsTotal.WithLabelValues(ReasonRateLimitExceeded).Inc()

	retryAfter := int64(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	return &dto.AdmissionResult{
		Admitted:          false,
		RetryAfterSeconds: retryAfter,
		Reason:            ReasonRateLimitExceeded,
	}
}

// costCapExceeded projects the pending estimate onto recorded spend. A
// nil cap is unlimited. Because estimates can lag actual costs, the guard
// tolerates at most one in-flight estimate of drift; the rollup rebuild
// task repairs the rest.
func costCapExceeded(key *apikey.APIKey, spend *usage.SpendSnapshot, estimatedCostCents int64) bool {
	if key.MaxCostPerDayCents != nil && spend.DayCents+estimatedCostCents > *key.MaxCostPerDayCents {
		return true
	}
	if key.MaxCostPerMonthCents != nil && spend.MonthCents+estimatedCostCents > *key.MaxCostPerMonthCents {
		return true
	}
	return false
}
