package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vitoflow/metering-api/internal/domain/apikey"
	"go.uber.org/zap"
)

// APIKeyExpireSweepHandler deactivates keys past their expiry so expired
// keys stop matching candidate lookups even before a validation touches
// them.
type APIKeyExpireSweepHandler struct {
	repo   apikey.Repository
	logger *zap.Logger
}

func NewAPIKeyExpireSweepHandler(repo apikey.Repository, logger *zap.Logger) *APIKeyExpireSweepHandler {
	return &APIKeyExpireSweepHandler{
		repo:   repo,
		logger: logger.Named("APIKeyExpireSweepHandler"),
	}
}

func (h *APIKeyExpireSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeAPIKeyExpireSweep {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	count, err := h.repo.DeactivateExpired(ctx, time.Now().UTC())
	if err != nil {
		h.logger.Error("API key expiry sweep failed", zap.Error(err))
		return fmt.Errorf("repository error sweeping expired keys: %w", err)
	}

	if count > 0 {
		h.logger.Info("Deactivated expired API keys", zap.Int64("count", count))
	}
	return nil
}
