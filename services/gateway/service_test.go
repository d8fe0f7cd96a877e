package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/internal/observability"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"github.com/upb/llm-gateway/services/failover"
	"github.com/upb/llm-gateway/services/providers"
	"go.uber.org/zap"
)

// memoryResolutionRepo is an in-memory ResolutionRepository for tests
type memoryResolutionRepo struct {
	mu      sync.Mutex
	records []*models.ResolutionRecord
}

func (m *memoryResolutionRepo) Create(ctx context.Context, record *models.ResolutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryResolutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ResolutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memoryResolutionRepo) GetByRequestID(ctx context.Context, requestID string) (*models.ResolutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.RequestID == requestID {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memoryResolutionRepo) List(ctx context.Context, filter repositories.ResolutionFilter) ([]*models.ResolutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ResolutionRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memoryResolutionRepo) CountByStatus(ctx context.Context, chainName string) (map[models.ResolutionStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.ResolutionStatus]int)
	for _, r := range m.records {
		if r.ChainName == chainName {
			counts[r.Status]++
		}
	}
	return counts, nil
}

func (m *memoryResolutionRepo) last() *models.ResolutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil
	}
	return m.records[len(m.records)-1]
}

// flakyProvider fails a configured number of times per model, then succeeds
type flakyProvider struct {
	name     string
	failures map[string]error
}

func (p *flakyProvider) Name() string {
	return p.name
}

func (p *flakyProvider) ChatCompletion(ctx context.Context, region, model string, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	if err, ok := p.failures[model]; ok && err != nil {
		return nil, err
	}
	return &providers.ChatResponse{
		ID:           "resp-1",
		Model:        model,
		Provider:     p.name,
		Content:      "pong",
		FinishReason: "stop",
		Usage:        providers.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	}, nil
}

const testChainsYAML = `
defaults:
  per_attempt_timeout: 5s
default_chain: primary
chains:
  primary:
    endpoints:
      - id: first
        provider: test
        model: model-a
      - id: second
        provider: test
        model: model-b
`

func newTestService(t *testing.T, failures map[string]error) (*GatewayService, *memoryResolutionRepo) {
	t.Helper()

	registry := providers.NewRegistry()
	require.NoError(t, registry.Register(&flakyProvider{name: "test", failures: failures}))

	chains, err := config.ParseChains([]byte(testChainsYAML), registry.Names())
	require.NoError(t, err)

	repo := &memoryResolutionRepo{}
	svc := NewGatewayService(chains, registry, repo, observability.NewMetrics(), zap.NewNop())
	return svc, repo
}

func chatRequest() *ChatRequest {
	return &ChatRequest{
		Messages: []providers.Message{
			{Role: "user", Content: "ping"},
		},
	}
}

func TestChatCompletionSuccessOnPrimary(t *testing.T) {
	svc, repo := newTestService(t, nil)

	resp, err := svc.ChatCompletion(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, "pong", resp.Content)
	assert.Equal(t, "primary", resp.Chain)
	assert.Equal(t, "first", resp.Endpoint)
	assert.Equal(t, "test", resp.Provider)
	assert.Equal(t, "model-a", resp.Model)
	assert.Equal(t, 1, resp.Attempts)
	require.Len(t, resp.Trace, 1)
	assert.True(t, resp.Trace[0].Success)

	record := repo.last()
	require.NotNil(t, record)
	assert.Equal(t, models.ResolutionStatusCompleted, record.Status)
	assert.Equal(t, 1, record.Attempts)
}

func TestChatCompletionFallsBack(t *testing.T) {
	svc, repo := newTestService(t, map[string]error{
		"model-a": providers.NewProviderError("test", "rate_limit_exceeded", "throttled", 429, nil),
	})

	resp, err := svc.ChatCompletion(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, "second", resp.Endpoint)
	assert.Equal(t, "model-b", resp.Model)
	assert.Equal(t, 2, resp.Attempts)
	require.Len(t, resp.Trace, 2)
	assert.Equal(t, failover.KindThrottled, resp.Trace[0].ErrorKind)

	record := repo.last()
	require.NotNil(t, record)
	assert.Equal(t, models.ResolutionStatusCompleted, record.Status)
	assert.Equal(t, 2, record.Attempts)
}

func TestChatCompletionAllEndpointsFail(t *testing.T) {
	svc, repo := newTestService(t, map[string]error{
		"model-a": providers.NewProviderError("test", "rate_limit_exceeded", "throttled", 429, nil),
		"model-b": providers.NewProviderError("test", "ServiceUnavailableException", "down", 503, nil),
	})

	_, err := svc.ChatCompletion(context.Background(), chatRequest())
	require.Error(t, err)

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.ErrorIs(t, resErr, failover.ErrChainExhausted)
	assert.Len(t, resErr.Trace, 2)

	record := repo.last()
	require.NotNil(t, record)
	assert.Equal(t, models.ResolutionStatusFailed, record.Status)
}

func TestChatCompletionInvalidRequestStops(t *testing.T) {
	svc, _ := newTestService(t, map[string]error{
		"model-a": providers.NewProviderError("test", "invalid_request_error", "bad request", 400, nil),
	})

	_, err := svc.ChatCompletion(context.Background(), chatRequest())
	require.Error(t, err)

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, failover.KindInvalidRequest, resErr.Kind)

	// The second endpoint was never tried
	assert.Len(t, resErr.Trace, 1)
}

func TestChatCompletionUnknownChain(t *testing.T) {
	svc, repo := newTestService(t, nil)

	req := chatRequest()
	req.Chain = "nonexistent"

	_, err := svc.ChatCompletion(context.Background(), req)
	require.Error(t, err)

	var chainErr *UnknownChainError
	require.True(t, errors.As(err, &chainErr))
	assert.Equal(t, "nonexistent", chainErr.Chain)

	record := repo.last()
	require.NotNil(t, record)
	assert.Equal(t, models.ResolutionStatusRejected, record.Status)
}

func TestChatCompletionRejectsEmptyMessages(t *testing.T) {
	svc, repo := newTestService(t, nil)

	_, err := svc.ChatCompletion(context.Background(), &ChatRequest{})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))

	record := repo.last()
	require.NotNil(t, record)
	assert.Equal(t, models.ResolutionStatusRejected, record.Status)
	assert.Equal(t, 0, record.Attempts)
}

func TestChatCompletionRejectsBadRole(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.ChatCompletion(context.Background(), &ChatRequest{
		Messages: []providers.Message{{Role: "tool", Content: "x"}},
	})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
}

func TestChatCompletionCancelled(t *testing.T) {
	svc, repo := newTestService(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ChatCompletion(ctx, chatRequest())
	require.Error(t, err)

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, failover.KindCancelled, resErr.Kind)
	assert.Empty(t, resErr.Trace)

	record := repo.last()
	require.NotNil(t, record)
	assert.Equal(t, models.ResolutionStatusCancelled, record.Status)
}

func TestMetricsRecorded(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.ChatCompletion(context.Background(), chatRequest())
	require.NoError(t, err)

	stats := svc.Metrics()
	require.Contains(t, stats, "primary")
	assert.Equal(t, int64(1), stats["primary"].Completed)
}
