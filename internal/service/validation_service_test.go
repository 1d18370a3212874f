package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitoflow/metering-api/internal/domain/apikey"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/util"
	"go.uber.org/zap"
)

func newTestKey(t *testing.T) (*apikey.APIKey, string) {
	t.Helper()

	fullKey, prefix, keyHash, err := util.GenerateAPIKey("chat")
	require.NoError(t, err)

	return &apikey.APIKey{
		ID:                 uuid.New(),
		TenantID:           uuid.New(),
		KeyName:            "test-key",
		KeyHash:            keyHash,
		KeyPrefix:          prefix,
		Scopes:             []string{"chat", "embeddings"},
		AllowedProviders:   []string{"openai"},
		AllowedModels:      []string{"gpt-4o"},
		RateLimitPerMinute: 100,
		RateLimitPerDay:    1000,
		IsActive:           true,
	}, fullKey
}

func newValidationService(repo *fakeKeyRepo, usageRepo *fakeUsageRepo, limiter *fakeLimiter) *ValidationService {
	admission := NewAdmissionService(repo, usageRepo, limiter, zap.NewNop())
	return NewValidationService(repo, admission, 50, zap.NewNop())
}

func TestValidateSuccess(t *testing.T) {
	key, fullKey := newTestKey(t)
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	result, err := svc.Validate(context.Background(), fullKey, "chat", "openai", "gpt-4o", 0)
	require.NoError(t, err)

	assert.True(t, result.IsValid)
	assert.Equal(t, key.TenantID, result.TenantID)
	assert.Equal(t, key.ID, result.KeyID)
	assert.Equal(t, key.KeyPrefix, result.KeyPrefix)
	assert.Equal(t, key.Scopes, result.Scopes)
}

func TestValidateMalformedKey(t *testing.T) {
	svc := newValidationService(newFakeKeyRepo(), newFakeUsageRepo(), newFakeLimiter())

	for _, raw := range []string{"", "short", "sk_wrong_marker_aaaaaaaaaa", "vito_"} {
		_, err := svc.Validate(context.Background(), raw, "chat", "", "", 0)
		assert.ErrorIs(t, err, ierr.ErrInvalidKey, "raw=%q", raw)
	}
}

func TestValidateUnknownPrefix(t *testing.T) {
	key, _ := newTestKey(t)
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	_, err := svc.Validate(context.Background(), "vito_chat_nosuchkeyanywhere123456", "chat", "", "", 0)
	assert.ErrorIs(t, err, ierr.ErrInvalidKey)
}

func TestValidateHashMismatch(t *testing.T) {
	key, fullKey := newTestKey(t)
	// Same prefix, different secret tail: candidate matches, hash does not.
	tampered := fullKey[:len(fullKey)-4] + "XXXX"
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	_, err := svc.Validate(context.Background(), tampered, "chat", "", "", 0)
	assert.ErrorIs(t, err, ierr.ErrInvalidKey)
}

func TestValidateInactiveKey(t *testing.T) {
	key, fullKey := newTestKey(t)
	key.IsActive = false
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	_, err := svc.Validate(context.Background(), fullKey, "chat", "", "", 0)
	assert.ErrorIs(t, err, ierr.ErrKeyInactive)
}

func TestValidateExpiredKey(t *testing.T) {
	key, fullKey := newTestKey(t)
	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	key.ExpiresAt = &expiry
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())
	svc.now = func() time.Time { return expiry.Add(time.Hour) }

	_, err := svc.Validate(context.Background(), fullKey, "chat", "", "", 0)
	assert.ErrorIs(t, err, ierr.ErrExpiredKey)
}

func TestValidateFutureExpiryStillValid(t *testing.T) {
	key, fullKey := newTestKey(t)
	expiry := time.Now().UTC().Add(24 * time.Hour)
	key.ExpiresAt = &expiry
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	result, err := svc.Validate(context.Background(), fullKey, "chat", "", "", 0)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestValidateScopeDenied(t *testing.T) {
	key, fullKey := newTestKey(t)
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	_, err := svc.Validate(context.Background(), fullKey, "admin", "", "", 0)
	assert.ErrorIs(t, err, ierr.ErrScopeDenied)
}

func TestValidateProviderDenied(t *testing.T) {
	key, fullKey := newTestKey(t)
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	_, err := svc.Validate(context.Background(), fullKey, "chat", "anthropic", "", 0)
	assert.ErrorIs(t, err, ierr.ErrProviderNotAllowed)
}

func TestValidateModelDenied(t *testing.T) {
	key, fullKey := newTestKey(t)
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	_, err := svc.Validate(context.Background(), fullKey, "chat", "openai", "gpt-3.5-turbo", 0)
	assert.ErrorIs(t, err, ierr.ErrModelNotAllowed)
}

func TestValidateEmptyAllowListDeniesEverything(t *testing.T) {
	key, fullKey := newTestKey(t)
	key.AllowedProviders = nil
	key.AllowedModels = nil
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	_, err := svc.Validate(context.Background(), fullKey, "chat", "openai", "", 0)
	assert.ErrorIs(t, err, ierr.ErrProviderNotAllowed)
}

func TestValidateEmptyProviderSkipsCheck(t *testing.T) {
	key, fullKey := newTestKey(t)
	key.AllowedProviders = nil
	key.AllowedModels = nil
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	result, err := svc.Validate(context.Background(), fullKey, "chat", "", "", 0)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestValidateRateLimited(t *testing.T) {
	key, fullKey := newTestKey(t)
	key.RateLimitPerMinute = 2
	svc := newValidationService(newFakeKeyRepo(key), newFakeUsageRepo(), newFakeLimiter())

	for i := 0; i < 2; i++ {
		_, err := svc.Validate(context.Background(), fullKey, "chat", "", "", 0)
		require.NoError(t, err)
	}

	_, err := svc.Validate(context.Background(), fullKey, "chat", "", "", 0)
	assert.ErrorIs(t, err, ierr.ErrRateLimitExceeded)
}

func TestValidateCostCapExceeded(t *testing.T) {
	key, fullKey := newTestKey(t)
	dayCap := int64(1000)
	key.MaxCostPerDayCents = &dayCap
	repo := newFakeKeyRepo(key)
	usageRepo := newFakeUsageRepo()
	usageRepo.spend.DayCents = 950
	svc := newValidationService(repo, usageRepo, newFakeLimiter())

	_, err := svc.Validate(context.Background(), fullKey, "chat", "", "", 100)
	assert.ErrorIs(t, err, ierr.ErrCostCapExceeded)
}

func TestValidatePrefixCollisionCapRefuses(t *testing.T) {
	key, fullKey := newTestKey(t)
	repo := newFakeKeyRepo(key)
	// Flood the prefix with colliding rows up to the candidate cap.
	for i := 0; i < 5; i++ {
		collider, _ := newTestKey(t)
		collider.KeyPrefix = key.KeyPrefix
		repo.keys[collider.ID] = collider
	}

	admission := NewAdmissionService(repo, newFakeUsageRepo(), newFakeLimiter(), zap.NewNop())
	svc := NewValidationService(repo, admission, 5, zap.NewNop())

	_, err := svc.Validate(context.Background(), fullKey, "chat", "", "", 0)
	assert.ErrorIs(t, err, ierr.ErrInvalidKey)
}
