package vault

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretHandleReveal(t *testing.T) {
	handle := NewSecretHandle(uuid.New(), uuid.New(), "openai-prod", "openai", "sk-super-secret")
	assert.Equal(t, "sk-super-secret", handle.Reveal())
}

func TestSecretHandleStringRedacts(t *testing.T) {
	handle := NewSecretHandle(uuid.New(), uuid.New(), "openai-prod", "openai", "sk-super-secret")

	rendered := fmt.Sprintf("%s %v %+v", handle, handle, handle)
	assert.NotContains(t, rendered, "sk-super-secret")
	assert.Contains(t, rendered, "[REDACTED]")
}

func TestSecretHandleJSONRedacts(t *testing.T) {
	secretID := uuid.New()
	handle := NewSecretHandle(secretID, uuid.New(), "openai-prod", "openai", "sk-super-secret")

	data, err := json.Marshal(handle)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "sk-super-secret")

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, secretID.String(), decoded["secret_id"])
	assert.Equal(t, "openai", decoded["provider"])
	assert.Equal(t, "openai-prod", decoded["name"])
}
