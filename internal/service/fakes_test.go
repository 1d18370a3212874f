package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitoflow/metering-api/internal/domain/apikey"
	"github.com/vitoflow/metering-api/internal/domain/tenantsecret"
	"github.com/vitoflow/metering-api/internal/domain/usage"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/ratelimit"
)

var (
	_ apikey.Repository       = (*fakeKeyRepo)(nil)
	_ usage.Repository        = (*fakeUsageRepo)(nil)
	_ ratelimit.Limiter       = (*fakeLimiter)(nil)
	_ tenantsecret.Repository = (*fakeSecretRepo)(nil)
)

type fakeKeyRepo struct {
	mu            sync.Mutex
	keys          map[uuid.UUID]*apikey.APIKey
	candidatesErr error
	lastUsedCalls int
}

func newFakeKeyRepo(keys ...*apikey.APIKey) *fakeKeyRepo {
	repo := &fakeKeyRepo{keys: make(map[uuid.UUID]*apikey.APIKey)}
	for _, k := range keys {
		repo.keys[k.ID] = k
	}
	return repo
}

func (r *fakeKeyRepo) FindCandidatesByPrefix(ctx context.Context, prefix string, limit int) ([]*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.candidatesErr != nil {
		return nil, r.candidatesErr
	}
	var out []*apikey.APIKey
	for _, k := range r.keys {
		if k.KeyPrefix == prefix && len(out) < limit {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *fakeKeyRepo) FindByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return nil, ierr.ErrInvalidKey
	}
	return k, nil
}

func (r *fakeKeyRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*apikey.APIKey
	for _, k := range r.keys {
		if k.TenantID == tenantID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *fakeKeyRepo) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key.ID = uuid.New()
	r.keys[key.ID] = key
	return key.ID, nil
}

func (r *fakeKeyRepo) RotateHash(ctx context.Context, id uuid.UUID, keyHash, keyPrefix string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return ierr.ErrNotFound
	}
	k.KeyHash = keyHash
	k.KeyPrefix = keyPrefix
	return nil
}

func (r *fakeKeyRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return ierr.ErrNotFound
	}
	k.IsActive = false
	return nil
}

func (r *fakeKeyRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, k := range r.keys {
		if k.IsActive && k.IsExpired(now) {
			k.IsActive = false
			count++
		}
	}
	return count, nil
}

func (r *fakeKeyRepo) UpdateLastUsed(ctx context.Context, id uuid.UUID, lastUsed time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastUsedCalls++
	return nil
}

type fakeUsageRepo struct {
	mu        sync.Mutex
	events    map[string]*usage.UsageEvent
	spend     usage.SpendSnapshot
	insertErr error
	spendErr  error
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{events: make(map[string]*usage.UsageEvent)}
}

func (r *fakeUsageRepo) InsertEvent(ctx context.Context, event *usage.UsageEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return false, r.insertErr
	}
	if _, exists := r.events[event.CorrelationID]; exists {
		return false, nil
	}
	r.events[event.CorrelationID] = event
	return true, nil
}

func (r *fakeUsageRepo) TenantSpend(ctx context.Context, tenantID uuid.UUID, day time.Time) (*usage.SpendSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spendErr != nil {
		return nil, r.spendErr
	}
	snapshot := r.spend
	return &snapshot, nil
}

func (r *fakeUsageRepo) DailyTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*usage.DailyUsage, error) {
	return nil, nil
}

func (r *fakeUsageRepo) RebuildDay(ctx context.Context, day time.Time) (int64, error) {
	return 0, nil
}

// fakeLimiter counts in-process, honoring the same semantics as the Redis
// implementation: atomic check-and-increment, limit <= 0 denies.
type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: make(map[string]int)}
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int, granularity ratelimit.Granularity) (*ratelimit.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}

	if limit <= 0 {
		return &ratelimit.Result{Allowed: false, Limit: limit, RetryAfter: granularity.Duration()}, nil
	}

	counterKey := fmt.Sprintf("%s:%s", key, granularity)
	l.counts[counterKey]++
	current := l.counts[counterKey]

	result := &ratelimit.Result{
		Allowed:   current <= limit,
		Limit:     limit,
		Remaining: limit - current,
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if !result.Allowed {
		result.RetryAfter = granularity.Duration() / 2
	}
	return result, nil
}

type fakeSecretRepo struct {
	mu          sync.Mutex
	secrets     map[uuid.UUID]*tenantsecret.TenantSecret
	deactivated []uuid.UUID
	rotated     []uuid.UUID
}

func newFakeSecretRepo(secrets ...*tenantsecret.TenantSecret) *fakeSecretRepo {
	repo := &fakeSecretRepo{secrets: make(map[uuid.UUID]*tenantsecret.TenantSecret)}
	for _, s := range secrets {
		repo.secrets[s.ID] = s
	}
	return repo
}

func (r *fakeSecretRepo) FindByTenantAndName(ctx context.Context, tenantID uuid.UUID, name string) (*tenantsecret.TenantSecret, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.secrets {
		if s.TenantID == tenantID && s.Name == name {
			return s, nil
		}
	}
	return nil, ierr.ErrSecretNotFound
}

func (r *fakeSecretRepo) FindByID(ctx context.Context, id uuid.UUID) (*tenantsecret.TenantSecret, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.secrets[id]
	if !ok {
		return nil, ierr.ErrSecretNotFound
	}
	return s, nil
}

func (r *fakeSecretRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*tenantsecret.TenantSecret, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*tenantsecret.TenantSecret
	for _, s := range r.secrets {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSecretRepo) Create(ctx context.Context, secret *tenantsecret.TenantSecret) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	secret.ID = uuid.New()
	r.secrets[secret.ID] = secret
	return secret.ID, nil
}

func (r *fakeSecretRepo) Rotate(ctx context.Context, id uuid.UUID, vaultPath string, rotatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.secrets[id]
	if !ok {
		return ierr.ErrSecretNotFound
	}
	s.VaultPath = vaultPath
	s.RotatedAt = &rotatedAt
	r.rotated = append(r.rotated, id)
	return nil
}

func (r *fakeSecretRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.secrets[id]
	if !ok {
		return ierr.ErrSecretNotFound
	}
	s.IsActive = false
	r.deactivated = append(r.deactivated, id)
	return nil
}
