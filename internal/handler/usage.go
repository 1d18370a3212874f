package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/service"
	"go.uber.org/zap"
)

type UsageHandler struct {
	service *service.UsageService
	logger  *zap.Logger
}

func NewUsageHandler(service *service.UsageService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		service: service,
		logger:  logger.Named("UsageHandler"),
	}
}

func (h *UsageHandler) Record(c *gin.Context) {
	var req dto.RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	resp, err := h.service.Record(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusCreated
	if resp.Deduplicated {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (h *UsageHandler) DailyTotals(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid tenant id format", ierr.ErrValidation))
		return
	}

	from, err := parseDateParam(c.DefaultQuery("from", time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid 'from' date", ierr.ErrValidation))
		return
	}
	to, err := parseDateParam(c.DefaultQuery("to", time.Now().UTC().Format("2006-01-02")))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid 'to' date", ierr.ErrValidation))
		return
	}

	totals, err := h.service.DailyTotals(c.Request.Context(), tenantID, from, to)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, totals)
}

func parseDateParam(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}
