package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitoflow/metering-api/internal/domain/tenantsecret"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/vault"
	"go.uber.org/zap"
)

func newTestSecret() *tenantsecret.TenantSecret {
	tenantID := uuid.New()
	return &tenantsecret.TenantSecret{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Name:          "openai-prod",
		Provider:      "openai",
		VaultPath:     "tenants/" + tenantID.String() + "/openai-prod",
		AllowedScopes: []string{"chat"},
		IsActive:      true,
	}
}

func newSecretService(repo *fakeSecretRepo, cache *vault.HandleCache) *SecretService {
	return NewSecretService(repo, nil, cache, zap.NewNop())
}

func TestResolveFromCache(t *testing.T) {
	secret := newTestSecret()
	cache := vault.NewHandleCache(30 * time.Second)
	handle := vault.NewSecretHandle(secret.ID, secret.TenantID, secret.Name, secret.Provider, "sk-live")
	cache.Put(secret.TenantID, secret.Name, handle)

	svc := newSecretService(newFakeSecretRepo(secret), cache)

	got, err := svc.Resolve(context.Background(), secret.TenantID, secret.Name, "chat")
	require.NoError(t, err)
	assert.Same(t, handle, got)
	assert.Equal(t, "sk-live", got.Reveal())
}

func TestResolveUnknownName(t *testing.T) {
	svc := newSecretService(newFakeSecretRepo(), vault.NewHandleCache(30*time.Second))

	_, err := svc.Resolve(context.Background(), uuid.New(), "nope", "chat")
	assert.ErrorIs(t, err, ierr.ErrSecretNotFound)
}

func TestResolveInactiveSecret(t *testing.T) {
	secret := newTestSecret()
	secret.IsActive = false
	svc := newSecretService(newFakeSecretRepo(secret), vault.NewHandleCache(30*time.Second))

	_, err := svc.Resolve(context.Background(), secret.TenantID, secret.Name, "chat")
	assert.ErrorIs(t, err, ierr.ErrSecretNotFound)
}

func TestResolveExpiredSecret(t *testing.T) {
	secret := newTestSecret()
	expiry := time.Now().UTC().Add(-time.Hour)
	secret.ExpiresAt = &expiry
	svc := newSecretService(newFakeSecretRepo(secret), vault.NewHandleCache(30*time.Second))

	_, err := svc.Resolve(context.Background(), secret.TenantID, secret.Name, "chat")
	assert.ErrorIs(t, err, ierr.ErrSecretNotFound)
}

func TestResolveScopeDenied(t *testing.T) {
	secret := newTestSecret()
	svc := newSecretService(newFakeSecretRepo(secret), vault.NewHandleCache(30*time.Second))

	_, err := svc.Resolve(context.Background(), secret.TenantID, secret.Name, "embeddings")
	assert.ErrorIs(t, err, ierr.ErrSecretScopeDenied)
}

func TestResolveScopeDeniedEvenWhenCached(t *testing.T) {
	// A cached handle must not bypass the per-request scope check.
	secret := newTestSecret()
	cache := vault.NewHandleCache(30 * time.Second)
	cache.Put(secret.TenantID, secret.Name,
		vault.NewSecretHandle(secret.ID, secret.TenantID, secret.Name, secret.Provider, "sk-live"))

	svc := newSecretService(newFakeSecretRepo(secret), cache)

	_, err := svc.Resolve(context.Background(), secret.TenantID, secret.Name, "embeddings")
	assert.ErrorIs(t, err, ierr.ErrSecretScopeDenied)
}

func TestResolveDeactivatedSecretIgnoresCache(t *testing.T) {
	// Deactivation must win over a still-fresh cache entry.
	secret := newTestSecret()
	cache := vault.NewHandleCache(30 * time.Second)
	cache.Put(secret.TenantID, secret.Name,
		vault.NewSecretHandle(secret.ID, secret.TenantID, secret.Name, secret.Provider, "sk-live"))
	secret.IsActive = false

	svc := newSecretService(newFakeSecretRepo(secret), cache)

	_, err := svc.Resolve(context.Background(), secret.TenantID, secret.Name, "chat")
	assert.ErrorIs(t, err, ierr.ErrSecretNotFound)
}

func TestDeactivateSecretInvalidatesCache(t *testing.T) {
	secret := newTestSecret()
	cache := vault.NewHandleCache(30 * time.Second)
	cache.Put(secret.TenantID, secret.Name,
		vault.NewSecretHandle(secret.ID, secret.TenantID, secret.Name, secret.Provider, "sk-live"))

	repo := newFakeSecretRepo(secret)
	svc := newSecretService(repo, cache)

	require.NoError(t, svc.DeactivateSecret(context.Background(), secret.ID))

	_, ok := cache.Get(secret.TenantID, secret.Name)
	assert.False(t, ok)
	assert.False(t, secret.IsActive)
}

func TestListSecretsOmitsVaultDetails(t *testing.T) {
	secret := newTestSecret()
	svc := newSecretService(newFakeSecretRepo(secret), vault.NewHandleCache(30*time.Second))

	list, err := svc.ListSecrets(context.Background(), secret.TenantID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Equal(t, secret.ID, list[0].ID)
	assert.Equal(t, secret.Name, list[0].Name)
	assert.Equal(t, secret.AllowedScopes, list[0].AllowedScopes)
}
