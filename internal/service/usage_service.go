package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitoflow/metering-api/internal/domain/usage"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/metrics"
	"github.com/vitoflow/metering-api/internal/util"
	"go.uber.org/zap"
)

const defaultCurrency = "USD"

// UsageService records billable usage exactly once per correlation id and
// serves the daily aggregates billing reads.
type UsageService struct {
	repo   usage.Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewUsageService(repo usage.Repository, logger *zap.Logger) *UsageService {
	return &UsageService{
		repo:   repo,
		logger: logger.Named("UsageService"),
		now:    time.Now,
	}
}

// Record persists the event. A correlation id seen before is a
// deduplicated success, not an error; a storage failure is surfaced as
// ErrUsageRecordingFailed so the caller can retry the (idempotent) write
// without re-executing the paid operation.
func (s *UsageService) Record(ctx context.Context, req *dto.RecordUsageRequest) (*dto.RecordUsageResponse, error) {
	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	event := &usage.UsageEvent{
		CorrelationID:  req.CorrelationID,
		TenantID:       req.TenantID,
		APIKeyID:       req.APIKeyID,
		TenantSecretID: req.TenantSecretID,
		Scope:          req.Scope,
		OperationType:  util.NormalizeOperation(req.OperationType),
		Provider:       req.Provider,
		ModelUsed:      req.ModelUsed,
		TokensInput:    req.TokensInput,
		TokensOutput:   req.TokensOutput,
		DurationMs:     req.DurationMs,
		CostCents:      req.CostCents,
		Currency:       currency,
		Metadata:       req.Metadata,
		RecordedAt:     s.now().UTC(),
	}

	inserted, err := s.repo.InsertEvent(ctx, event)
	if err != nil {
		s.logger.Error("Usage event persistence failed",
			zap.String("correlation_id", req.CorrelationID),
			zap.String("tenant_id", req.TenantID.String()),
			zap.Error(err),
		)
		metrics.UsageEventsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", ierr.ErrUsageRecordingFailed, err)
	}

	if !inserted {
		metrics.UsageEventsTotal.WithLabelValues("deduplicated").Inc()
		return &dto.RecordUsageResponse{Accepted: true, Deduplicated: true}, nil
	}

	metrics.UsageEventsTotal.WithLabelValues("recorded").Inc()
	s.logger.Debug("Usage event recorded",
		zap.String("correlation_id", req.CorrelationID),
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("operation_type", event.OperationType),
		zap.Int64("cost_cents", event.CostCents),
	)

	return &dto.RecordUsageResponse{Accepted: true, Deduplicated: false}, nil
}

func (s *UsageService) DailyTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*dto.DailyUsageResponse, error) {
	totals, err := s.repo.DailyTotals(ctx, tenantID, from, to)
	if err != nil {
		s.logger.Error("Failed to read daily totals", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, fmt.Errorf("repository error reading daily totals: %w", err)
	}

	responses := make([]*dto.DailyUsageResponse, len(totals))
	for i, t := range totals {
		responses[i] = &dto.DailyUsageResponse{
			UsageDate:    t.UsageDate,
			Scope:        t.Scope,
			RequestCount: t.RequestCount,
			TokensInput:  t.TokensInput,
			TokensOutput: t.TokensOutput,
			CostCents:    t.CostCents,
		}
	}
	return responses, nil
}
