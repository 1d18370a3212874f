package user

import "github.com/google/uuid"

// User is an administrative account for the management API. Tenant-facing
// traffic authenticates with API keys, not users.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         string
}
