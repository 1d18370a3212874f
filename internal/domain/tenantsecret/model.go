package tenantsecret

import (
	"time"

	"github.com/google/uuid"
)

// TenantSecret references a tenant-owned provider credential held in the
// external vault. VaultPath is an opaque pointer; the secret value itself
// is never persisted here.
type TenantSecret struct {
	ID            uuid.UUID  `db:"id"`
	TenantID      uuid.UUID  `db:"tenant_id"`
	Name          string     `db:"name"`
	Provider      string     `db:"provider"`
	VaultPath     string     `db:"vault_path"`
	AllowedScopes []string   `db:"allowed_scopes"`
	IsActive      bool       `db:"is_active"`
	ExpiresAt     *time.Time `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	RotatedAt     *time.Time `db:"rotated_at"`
}

// AllowsScope reports whether the secret may be released under the named
// scope.
func (s *TenantSecret) AllowsScope(scope string) bool {
	for _, sc := range s.AllowedScopes {
		if sc == scope {
			return true
		}
	}
	return false
}

// IsUsable reports whether the secret is active and unexpired at now.
func (s *TenantSecret) IsUsable(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
