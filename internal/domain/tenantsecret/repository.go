package tenantsecret

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	FindByTenantAndName(ctx context.Context, tenantID uuid.UUID, name string) (*TenantSecret, error)
	FindByID(ctx context.Context, id uuid.UUID) (*TenantSecret, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*TenantSecret, error)
	Create(ctx context.Context, secret *TenantSecret) (uuid.UUID, error)
	// Rotate points the row at a new vault path and stamps rotated_at.
	Rotate(ctx context.Context, id uuid.UUID, vaultPath string, rotatedAt time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}
