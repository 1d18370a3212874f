package apikey

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is the persisted record of an issued tenant API key. Only the
// SHA-256 digest of the issued key is stored; the plaintext exists solely
// in the create/rotate response.
type APIKey struct {
	ID                  uuid.UUID  `db:"id"`
	TenantID            uuid.UUID  `db:"tenant_id"`
	KeyName             string     `db:"key_name"`
	KeyHash             string     `db:"key_hash"`
	KeyPrefix           string     `db:"key_prefix"`
	Scopes              []string   `db:"scopes"`
	AllowedProviders    []string   `db:"allowed_providers"`
	AllowedModels       []string   `db:"allowed_models"`
	RateLimitPerMinute  int        `db:"rate_limit_per_minute"`
	RateLimitPerDay     int        `db:"rate_limit_per_day"`
	MaxCostPerDayCents  *int64     `db:"max_cost_per_day_cents"`
	MaxCostPerMonthCents *int64    `db:"max_cost_per_month_cents"`
	IsActive            bool       `db:"is_active"`
	ExpiresAt           *time.Time `db:"expires_at"`
	CreatedAt           time.Time  `db:"created_at"`
	LastUsedAt          *time.Time `db:"last_used_at"`
}

const (
	// Issued keys look like "vito_{scope}_{random}". The prefix column
	// stores the first KeyPrefixLength characters of the full key for
	// candidate lookup; it is not secret.
	KeyFormat       = "vito_%s_%s"
	KeyPrefixLength = 16
	KeySecretLength = 32
	MinKeyLength    = 20
)

// HasScope reports whether the key grants the named scope.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// AllowsProvider reports whether the key may call the named provider.
// An empty allow-list permits nothing.
func (k *APIKey) AllowsProvider(provider string) bool {
	for _, p := range k.AllowedProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// AllowsModel reports whether the key may use the named model.
// An empty allow-list permits nothing.
func (k *APIKey) AllowsModel(model string) bool {
	for _, m := range k.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

// IsExpired reports whether the key is past its expiry. Keys without an
// expiry never expire.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}
