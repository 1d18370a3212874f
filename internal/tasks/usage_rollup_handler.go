package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vitoflow/metering-api/internal/domain/usage"
	"go.uber.org/zap"
)

// UsageRollupVerifyHandler rebuilds a day's rollups from the event table.
// Cost-guard decisions run against rollups, so this sweep is what bounds
// estimate drift over time.
type UsageRollupVerifyHandler struct {
	repo   usage.Repository
	logger *zap.Logger
}

func NewUsageRollupVerifyHandler(repo usage.Repository, logger *zap.Logger) *UsageRollupVerifyHandler {
	return &UsageRollupVerifyHandler{
		repo:   repo,
		logger: logger.Named("UsageRollupVerifyHandler"),
	}
}

func (h *UsageRollupVerifyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeUsageRollupVerify {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p UsageRollupVerifyPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal rollup verify payload", zap.Error(err))
		return fmt.Errorf("invalid payload: %v", err)
	}

	day := p.Day
	if day.IsZero() {
		day = time.Now().UTC().AddDate(0, 0, -1)
	}

	rows, err := h.repo.RebuildDay(ctx, day)
	if err != nil {
		h.logger.Error("Rollup rebuild failed", zap.Time("usage_date", day), zap.Error(err))
		return fmt.Errorf("rollup rebuild error: %w", err)
	}

	h.logger.Info("Daily usage rollups verified",
		zap.Time("usage_date", day),
		zap.Int64("rows", rows),
	)
	return nil
}
