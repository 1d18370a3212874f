package dto

import "github.com/google/uuid"

type AdmissionCheckRequest struct {
	KeyID              uuid.UUID `json:"key_id" binding:"required"`
	TenantID           uuid.UUID `json:"tenant_id" binding:"required"`
	Scope              string    `json:"scope" binding:"required"`
	EstimatedCostCents int64     `json:"estimated_cost_cents" binding:"gte=0"`
}

type AdmissionResult struct {
	Admitted          bool   `json:"admitted"`
	RetryAfterSeconds int64  `json:"retry_after_seconds,omitempty"`
	Reason            string `json:"reason,omitempty"`
}
