package vault

import (
	"github.com/google/uuid"
)

// SecretHandle is an opaque reference to a resolved tenant credential.
// The value is only reachable through Reveal at the point of use;
// fmt verbs and JSON encoding see the redacted form.
type SecretHandle struct {
	SecretID uuid.UUID
	TenantID uuid.UUID
	Name     string
	Provider string

	value string
}

func NewSecretHandle(secretID, tenantID uuid.UUID, name, provider, value string) *SecretHandle {
	return &SecretHandle{
		SecretID: secretID,
		TenantID: tenantID,
		Name:     name,
		Provider: provider,
		value:    value,
	}
}

// Reveal returns the underlying credential. Callers must not persist or
// log the result.
func (h *SecretHandle) Reveal() string {
	return h.value
}

func (h *SecretHandle) String() string {
	return "SecretHandle(" + h.Provider + "/" + h.Name + ":[REDACTED])"
}

// MarshalJSON serializes only the reference, never the value.
func (h *SecretHandle) MarshalJSON() ([]byte, error) {
	return []byte(`{"secret_id":"` + h.SecretID.String() +
		`","provider":"` + h.Provider +
		`","name":"` + h.Name + `"}`), nil
}
