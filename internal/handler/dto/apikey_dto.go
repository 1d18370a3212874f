package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateAPIKeyRequest struct {
	TenantID             uuid.UUID  `json:"tenant_id" binding:"required"`
	KeyName              string     `json:"key_name" binding:"required"`
	Scopes               []string   `json:"scopes" binding:"required,min=1"`
	AllowedProviders     []string   `json:"allowed_providers"`
	AllowedModels        []string   `json:"allowed_models"`
	RateLimitPerMinute   int        `json:"rate_limit_per_minute" binding:"gte=0"`
	RateLimitPerDay      int        `json:"rate_limit_per_day" binding:"gte=0"`
	MaxCostPerDayCents   *int64     `json:"max_cost_per_day_cents,omitempty"`
	MaxCostPerMonthCents *int64     `json:"max_cost_per_month_cents,omitempty"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
}

// CreateAPIKeyResponse is the only place the full key ever appears; it is
// shown once and cannot be recovered afterwards.
type CreateAPIKeyResponse struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	FullKey   string    `json:"full_key"`
	KeyPrefix string    `json:"key_prefix"`
	KeyName   string    `json:"key_name"`
	Scopes    []string  `json:"scopes"`
}

type RotateAPIKeyResponse struct {
	ID        uuid.UUID `json:"id"`
	FullKey   string    `json:"full_key"`
	KeyPrefix string    `json:"key_prefix"`
}

type APIKeyResponse struct {
	ID                   uuid.UUID  `json:"id"`
	TenantID             uuid.UUID  `json:"tenant_id"`
	KeyName              string     `json:"key_name"`
	KeyPrefix            string     `json:"key_prefix"`
	Scopes               []string   `json:"scopes"`
	AllowedProviders     []string   `json:"allowed_providers"`
	AllowedModels        []string   `json:"allowed_models"`
	RateLimitPerMinute   int        `json:"rate_limit_per_minute"`
	RateLimitPerDay      int        `json:"rate_limit_per_day"`
	MaxCostPerDayCents   *int64     `json:"max_cost_per_day_cents,omitempty"`
	MaxCostPerMonthCents *int64     `json:"max_cost_per_month_cents,omitempty"`
	IsActive             bool       `json:"is_active"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	LastUsedAt           *time.Time `json:"last_used_at,omitempty"`
}
