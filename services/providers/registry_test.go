package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a minimal Provider for registry tests
type fakeProvider struct {
	name string
}

func (p *fakeProvider) Name() string {
	return p.name
}

func (p *fakeProvider) ChatCompletion(ctx context.Context, region, model string, req *ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{Provider: p.name, Model: model}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(&fakeProvider{name: "openai"})
	require.NoError(t, err)

	provider, err := registry.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", provider.Name())
}

func TestRegistryGetUnknownProvider(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("anthropic")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&fakeProvider{name: "openai"}))

	err := registry.Register(&fakeProvider{name: "openai"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderAlreadyRegistered)
}

func TestRegistryRejectsInvalidProviders(t *testing.T) {
	registry := NewRegistry()

	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&fakeProvider{name: ""}))
}

func TestRegistryNamesSorted(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&fakeProvider{name: "openai"}))
	require.NoError(t, registry.Register(&fakeProvider{name: "bedrock"}))

	assert.Equal(t, []string{"bedrock", "openai"}, registry.Names())
	assert.Equal(t, 2, registry.Count())
	assert.True(t, registry.Has("bedrock"))
	assert.False(t, registry.Has("anthropic"))
}

func TestProviderErrorShape(t *testing.T) {
	cause := assert.AnError
	err := NewProviderError("openai", "rate_limit_exceeded", "rate limited", 429, cause)

	assert.Equal(t, "rate_limit_exceeded", err.ErrorCode())
	assert.Equal(t, 429, err.HTTPStatus())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "rate limited")
}
