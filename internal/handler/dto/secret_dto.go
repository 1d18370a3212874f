package dto

import (
	"time"

	"github.com/google/uuid"
)

type ResolveSecretRequest struct {
	TenantID uuid.UUID `json:"tenant_id" binding:"required"`
	Name     string    `json:"name" binding:"required"`
	Scope    string    `json:"scope" binding:"required"`
}

// SecretRefResponse references a resolved secret. The value itself never
// appears in a response body.
type SecretRefResponse struct {
	SecretID uuid.UUID `json:"secret_id"`
	Provider string    `json:"provider"`
	Name     string    `json:"name"`
}

type CreateSecretRequest struct {
	TenantID      uuid.UUID  `json:"tenant_id" binding:"required"`
	Name          string     `json:"name" binding:"required"`
	Provider      string     `json:"provider" binding:"required"`
	Value         string     `json:"value" binding:"required"`
	AllowedScopes []string   `json:"allowed_scopes" binding:"required,min=1"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

type RotateSecretRequest struct {
	Value string `json:"value" binding:"required"`
}

type SecretResponse struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	Name          string     `json:"name"`
	Provider      string     `json:"provider"`
	AllowedScopes []string   `json:"allowed_scopes"`
	IsActive      bool       `json:"is_active"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	RotatedAt     *time.Time `json:"rotated_at,omitempty"`
}
