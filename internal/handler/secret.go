package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/service"
	"go.uber.org/zap"
)

type SecretHandler struct {
	service *service.SecretService
	logger  *zap.Logger
}

func NewSecretHandler(service *service.SecretService, logger *zap.Logger) *SecretHandler {
	return &SecretHandler{
		service: service,
		logger:  logger.Named("SecretHandler"),
	}
}

// Resolve answers the gateway with a reference to the secret; the value
// stays behind the vault boundary and is dereferenced in-process by the
// component executing the provider call.
func (h *SecretHandler) Resolve(c *gin.Context) {
	var req dto.ResolveSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	handle, err := h.service.Resolve(c.Request.Context(), req.TenantID, req.Name, req.Scope)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.SecretRefResponse{
		SecretID: handle.SecretID,
		Provider: handle.Provider,
		Name:     handle.Name,
	})
}

func (h *SecretHandler) Create(c *gin.Context) {
	var req dto.CreateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	resp, err := h.service.CreateSecret(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *SecretHandler) List(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid tenant id format", ierr.ErrValidation))
		return
	}

	secrets, err := h.service.ListSecrets(c.Request.Context(), tenantID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, secrets)
}

func (h *SecretHandler) Rotate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid secret id format", ierr.ErrValidation))
		return
	}

	var req dto.RotateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	if err := h.service.RotateSecret(c.Request.Context(), id, req.Value); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *SecretHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid secret id format", ierr.ErrValidation))
		return
	}

	if err := h.service.DeactivateSecret(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
