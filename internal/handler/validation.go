package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/service"
	"go.uber.org/zap"
)

// ValidationHandler exposes the gateway-facing validate and admission
// operations.
type ValidationHandler struct {
	validation *service.ValidationService
	admission  *service.AdmissionService
	logger     *zap.Logger
}

func NewValidationHandler(validation *service.ValidationService, admission *service.AdmissionService, logger *zap.Logger) *ValidationHandler {
	return &ValidationHandler{
		validation: validation,
		admission:  admission,
		logger:     logger.Named("ValidationHandler"),
	}
}

func (h *ValidationHandler) Validate(c *gin.Context) {
	var req dto.ValidateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	result, err := h.validation.Validate(c.Request.Context(), req.Key, req.Scope, req.Provider, req.Model, 0)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ValidationHandler) CheckAdmission(c *gin.Context) {
	var req dto.AdmissionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	result, err := h.admission.Check(c.Request.Context(), req.KeyID, req.TenantID, req.Scope, req.EstimatedCostCents)
	if err != nil {
		_ = c.Error(err)
		return
	}

	// Denials are decisions, not errors: the gateway inspects the
	// payload and propagates retry_after_seconds to its client.
	c.JSON(http.StatusOK, result)
}
