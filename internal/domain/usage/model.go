package usage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UsageEvent is one billable call. Rows are immutable after insert and
// unique per CorrelationID: retries of the same logical call land on the
// existing row and are reported as deduplicated.
type UsageEvent struct {
	ID             uuid.UUID       `db:"id"`
	CorrelationID  string          `db:"correlation_id"`
	TenantID       uuid.UUID       `db:"tenant_id"`
	APIKeyID       uuid.UUID       `db:"api_key_id"`
	TenantSecretID *uuid.UUID      `db:"tenant_secret_id"`
	Scope          string          `db:"scope"`
	OperationType  string          `db:"operation_type"`
	Provider       string          `db:"provider"`
	ModelUsed      string          `db:"model_used"`
	TokensInput    int64           `db:"tokens_input"`
	TokensOutput   int64           `db:"tokens_output"`
	DurationMs     int64           `db:"duration_ms"`
	CostCents      int64           `db:"cost_cents"`
	Currency       string          `db:"currency"`
	Metadata       json.RawMessage `db:"metadata"`
	RecordedAt     time.Time       `db:"recorded_at"`
}

// DailyUsage is the per-(tenant, UTC day, scope) rollup maintained
// transactionally alongside event inserts. Billing reads these rows
// instead of scanning events.
type DailyUsage struct {
	TenantID     uuid.UUID `db:"tenant_id"`
	UsageDate    time.Time `db:"usage_date"`
	Scope        string    `db:"scope"`
	RequestCount int64     `db:"request_count"`
	TokensInput  int64     `db:"tokens_input"`
	TokensOutput int64     `db:"tokens_output"`
	CostCents    int64     `db:"cost_cents"`
}

// SpendSnapshot carries the current day and calendar-month spend used by
// the cost guard.
type SpendSnapshot struct {
	DayCents   int64
	MonthCents int64
}
