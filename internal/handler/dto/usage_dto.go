package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RecordUsageRequest struct {
	CorrelationID  string          `json:"correlation_id" binding:"required"`
	TenantID       uuid.UUID       `json:"tenant_id" binding:"required"`
	APIKeyID       uuid.UUID       `json:"api_key_id" binding:"required"`
	TenantSecretID *uuid.UUID      `json:"tenant_secret_id,omitempty"`
	Scope          string          `json:"scope" binding:"required"`
	OperationType  string          `json:"operation_type" binding:"required"`
	Provider       string          `json:"provider,omitempty"`
	ModelUsed      string          `json:"model_used,omitempty"`
	TokensInput    int64           `json:"tokens_input" binding:"gte=0"`
	TokensOutput   int64           `json:"tokens_output" binding:"gte=0"`
	DurationMs     int64           `json:"duration_ms" binding:"gte=0"`
	CostCents      int64           `json:"cost_cents" binding:"gte=0"`
	Currency       string          `json:"currency,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

type RecordUsageResponse struct {
	Accepted     bool `json:"accepted"`
	Deduplicated bool `json:"deduplicated"`
}

type DailyUsageResponse struct {
	UsageDate    time.Time `json:"usage_date"`
	Scope        string    `json:"scope"`
	RequestCount int64     `json:"request_count"`
	TokensInput  int64     `json:"tokens_input"`
	TokensOutput int64     `json:"tokens_output"`
	CostCents    int64     `json:"cost_cents"`
}
