package dto

import "github.com/google/uuid"

type ValidateKeyRequest struct {
	Key      string `json:"key" binding:"required"`
	Scope    string `json:"scope" binding:"required"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// ValidationResult is returned to the gateway on a successful validation.
// Failures surface as typed errors; there is no partially-valid state.
type ValidationResult struct {
	IsValid          bool      `json:"is_valid"`
	TenantID         uuid.UUID `json:"tenant_id"`
	KeyID            uuid.UUID `json:"key_id"`
	KeyPrefix        string    `json:"key_prefix"`
	Scopes           []string  `json:"scopes"`
	AllowedProviders []string  `json:"allowed_providers"`
	AllowedModels    []string  `json:"allowed_models"`
}
