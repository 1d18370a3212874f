package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/vitoflow/metering-api/internal/vault"
	"go.uber.org/zap"
)

type HealthHandler struct {
	db     *pgxpool.Pool
	redis  *redis.Client
	vault  *vault.Client
	logger *zap.Logger
}

func NewHealthHandler(db *pgxpool.Pool, redisClient *redis.Client, vaultClient *vault.Client, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redisClient,
		vault:  vaultClient,
		logger: logger,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	dbStatus := "ok"
	if err := h.db.Ping(c.Request.Context()); err != nil {
		dbStatus = "error"
		h.logger.Error("Health check: PostgreSQL ping failed", zap.Error(err))
	}

	redisStatus := "ok"
	if _, err := h.redis.Ping(c.Request.Context()).Result(); err != nil {
		redisStatus = "error"
		h.logger.Error("Health check: Redis ping failed", zap.Error(err))
	}

	vaultStatus := "ok"
	if err := h.vault.Health(c.Request.Context()); err != nil {
		vaultStatus = "error"
		h.logger.Error("Health check: Vault ping failed", zap.Error(err))
	}

	status := http.StatusOK
	overall := "ok"
	if dbStatus == "error" || redisStatus == "error" || vaultStatus == "error" {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status": overall,
		"dependencies": gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
			"vault":    vaultStatus,
		},
	})
}
