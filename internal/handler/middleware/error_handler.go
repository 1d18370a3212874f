package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"go.uber.org/zap"
)

func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))

		status := http.StatusInternalServerError
		errResponse := dto.APIErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "An unexpected error occurred.",
		}

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			status = http.StatusBadRequest
			errResponse.Code = "VALIDATION_ERROR"
			errResponse.Message = "Input validation failed."
			errResponse.Details = buildValidationErrors(ve)
		} else {
			switch {
			case errors.Is(err, ierr.ErrValidation):
				status = http.StatusBadRequest
				errResponse.Code = "VALIDATION_ERROR"
				errResponse.Message = err.Error()
			case errors.Is(err, ierr.ErrKeyInactive):
				status = http.StatusUnauthorized
				errResponse.Code = "KEY_INACTIVE"
				errResponse.Message = "API key is inactive."
			case errors.Is(err, ierr.ErrExpiredKey):
				status = http.StatusUnauthorized
				errResponse.Code = "KEY_EXPIRED"
				errResponse.Message = "API key is expired."
			case errors.Is(err, ierr.ErrInvalidKey):
				status = http.StatusUnauthorized
				errResponse.Code = "INVALID_KEY"
				errResponse.Message = "API key is invalid."
			case errors.Is(err, ierr.ErrScopeDenied):
				status = http.StatusForbidden
				errResponse.Code = "SCOPE_DENIED"
				errResponse.Message = err.Error()
			case errors.Is(err, ierr.ErrProviderNotAllowed), errors.Is(err, ierr.ErrModelNotAllowed):
				status = http.StatusForbidden
				errResponse.Code = "PROVIDER_NOT_ALLOWED"
				errResponse.Message = err.Error()
			case errors.Is(err, ierr.ErrRateLimitExceeded):
				status = http.StatusTooManyRequests
				errResponse.Code = "RATE_LIMIT_EXCEEDED"
				errResponse.Message = err.Error()
			case errors.Is(err, ierr.ErrCostCapExceeded):
				status = http.StatusPaymentRequired
				errResponse.Code = "COST_CAP_EXCEEDED"
				errResponse.Message = "Cost cap exceeded for this key."
			case errors.Is(err, ierr.ErrSecretScopeDenied):
				status = http.StatusForbidden
				errResponse.Code = "SECRET_SCOPE_DENIED"
				errResponse.Message = err.Error()
			case errors.Is(err, ierr.ErrSecretNotFound):
				status = http.StatusNotFound
				errResponse.Code = "SECRET_NOT_FOUND"
				errResponse.Message = "Tenant secret not found."
			case errors.Is(err, ierr.ErrUsageRecordingFailed):
				// Retryable: the usage write is idempotent per
				// correlation id.
				status = http.StatusServiceUnavailable
				errResponse.Code = "USAGE_RECORDING_FAILED"
				errResponse.Message = "Usage recording failed, retry the recording step."
			case errors.Is(err, ierr.ErrUnauthorized), errors.Is(err, ierr.ErrInvalidCredentials), errors.Is(err, ierr.ErrInvalidToken):
				status = http.StatusUnauthorized
				errResponse.Code = "UNAUTHENTICATED"
				errResponse.Message = "Authentication required or failed."
			case errors.Is(err, ierr.ErrForbidden):
				status = http.StatusForbidden
				errResponse.Code = "FORBIDDEN"
				errResponse.Message = "Access denied."
			case errors.Is(err, ierr.ErrNotFound), errors.Is(err, ierr.ErrUserNotFound):
				status = http.StatusNotFound
				errResponse.Code = "NOT_FOUND"
				errResponse.Message = "The requested resource was not found."
			case errors.Is(err, ierr.ErrConflict):
				status = http.StatusConflict
				errResponse.Code = "CONFLICT"
				errResponse.Message = err.Error()
			default:
				errResponse.Message = err.Error()
			}
		}

		c.AbortWithStatusJSON(status, errResponse)
	}
}

func buildValidationErrors(ve validator.ValidationErrors) []dto.FieldError {
	details := make([]dto.FieldError, len(ve))
	for i, fe := range ve {
		details[i] = dto.FieldError{
			Field:   fe.Field(),
			Message: getValidationErrorMsg(fe),
		}
	}
	return details
}

func getValidationErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "min":
		return fmt.Sprintf("Field '%s' must have at least %s items", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("Field '%s' must be greater than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}
