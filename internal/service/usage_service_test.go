package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"go.uber.org/zap"
)

func newRecordRequest() *dto.RecordUsageRequest {
	return &dto.RecordUsageRequest{
		CorrelationID: uuid.NewString(),
		TenantID:      uuid.New(),
		APIKeyID:      uuid.New(),
		Scope:         "chat",
		OperationType: "/v1/chat/completions",
		Provider:      "openai",
		ModelUsed:     "gpt-4o",
		TokensInput:   120,
		TokensOutput:  340,
		DurationMs:    800,
		CostCents:     12,
	}
}

func TestRecordSuccess(t *testing.T) {
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, zap.NewNop())
	req := newRecordRequest()

	resp, err := svc.Record(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.False(t, resp.Deduplicated)

	event := repo.events[req.CorrelationID]
	require.NotNil(t, event)
	assert.Equal(t, "USD", event.Currency)
	assert.Equal(t, req.TenantID, event.TenantID)
	assert.False(t, event.RecordedAt.IsZero())
}

func TestRecordDuplicateCorrelationID(t *testing.T) {
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, zap.NewNop())
	req := newRecordRequest()

	first, err := svc.Record(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Deduplicated)

	// A retry with different figures must not overwrite the first write.
	retry := *req
	retry.CostCents = 9999
	second, err := svc.Record(context.Background(), &retry)
	require.NoError(t, err)
	assert.True(t, second.Accepted)
	assert.True(t, second.Deduplicated)

	assert.Equal(t, int64(12), repo.events[req.CorrelationID].CostCents)
}

func TestRecordNormalizesOperation(t *testing.T) {
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, zap.NewNop())
	req := newRecordRequest()
	req.OperationType = "/v1/conversations/12345/messages"

	_, err := svc.Record(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "/v1/conversations/:id/messages", repo.events[req.CorrelationID].OperationType)
}

func TestRecordKeepsExplicitCurrency(t *testing.T) {
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, zap.NewNop())
	req := newRecordRequest()
	req.Currency = "EUR"

	_, err := svc.Record(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "EUR", repo.events[req.CorrelationID].Currency)
}

func TestRecordStorageFailure(t *testing.T) {
	repo := newFakeUsageRepo()
	repo.insertErr = assert.AnError
	svc := NewUsageService(repo, zap.NewNop())

	_, err := svc.Record(context.Background(), newRecordRequest())
	assert.ErrorIs(t, err, ierr.ErrUsageRecordingFailed)
}

func TestRecordConcurrentSameCorrelationID(t *testing.T) {
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, zap.NewNop())
	req := newRecordRequest()

	const workers = 16
	results := make([]*dto.RecordUsageResponse, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Record(context.Background(), req)
			assert.NoError(t, err)
			results[i] = resp
		}(i)
	}
	wg.Wait()

	inserted := 0
	for _, resp := range results {
		assert.True(t, resp.Accepted)
		if !resp.Deduplicated {
			inserted++
		}
	}
	assert.Equal(t, 1, inserted)
	assert.Len(t, repo.events, 1)
}
