package apikey

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// FindCandidatesByPrefix returns active-or-not key rows sharing the
	// given prefix, capped at limit rows. The caller is responsible for
	// hash comparison; the prefix only narrows the candidate set.
	FindCandidatesByPrefix(ctx context.Context, prefix string, limit int) ([]*APIKey, error)
	FindByID(ctx context.Context, id uuid.UUID) (*APIKey, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*APIKey, error)
	Create(ctx context.Context, key *APIKey) (uuid.UUID, error)
	// RotateHash replaces hash and prefix on an existing row, keeping its
	// identity and limits.
	RotateHash(ctx context.Context, id uuid.UUID, keyHash, keyPrefix string) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	UpdateLastUsed(ctx context.Context, id uuid.UUID, lastUsed time.Time) error
}
