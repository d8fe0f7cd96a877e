package providers

import (
	"context"
	"time"
)

// Provider is the unified interface for one LLM backend. The region and
// model of the target endpoint are passed per call, so a single adapter
// instance serves every endpoint of its provider across regions; request
// adaptation to the provider's wire shape happens inside the adapter.
type Provider interface {
	// Name returns the provider name (e.g. "openai", "bedrock").
	Name() string

	// ChatCompletion performs a chat completion against the given region
	// and model. Region may be empty for providers without regional
	// endpoints.
	ChatCompletion(ctx context.Context, region, model string, req *ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a provider-agnostic chat completion request. The same
// request is handed to every endpoint in a fallback chain; the target model
// comes from the endpoint, not from the request.
type ChatRequest struct {
	// Messages in the conversation.
	Messages []Message `json:"messages"`

	// MaxTokens limits the response length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 2.0).
	Temperature float64 `json:"temperature,omitempty"`

	// TopP controls nucleus sampling.
	TopP float64 `json:"top_p,omitempty"`

	// Stop sequences.
	Stop []string `json:"stop,omitempty"`

	// User identifier for abuse monitoring.
	User string `json:"user,omitempty"`

	// Metadata for tracking and logging.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Message represents a single message in a conversation.
type Message struct {
	// Role can be "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// ChatResponse is a provider-agnostic chat completion response.
type ChatResponse struct {
	// ID is the provider's identifier for this completion.
	ID string `json:"id"`

	// Model that produced the completion.
	Model string `json:"model"`

	// Provider that handled the request.
	Provider string `json:"provider"`

	// Content is the assistant's reply.
	Content string `json:"content"`

	// FinishReason indicates why the completion finished:
	// "stop", "length", or "content_filter".
	FinishReason string `json:"finish_reason"`

	// Usage statistics.
	Usage Usage `json:"usage"`

	// Latency of the provider call.
	Latency time.Duration `json:"latency"`

	// Created timestamp.
	Created time.Time `json:"created"`
}

// Usage represents token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Config holds common configuration for provider adapters.
type Config struct {
	// APIKey for authentication.
	APIKey string

	// BaseURL for the API (optional override).
	BaseURL string

	// Timeout for requests.
	Timeout time.Duration

	// MaxRetries for transient failures within one endpoint call. This is
	// adapter-internal backoff; chain-level fallback never re-invokes an
	// endpoint.
	MaxRetries int

	// RetryDelay between retries.
	RetryDelay time.Duration

	// Headers to add to every request.
	Headers map[string]string
}

// DefaultConfig returns a sensible default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
		Headers:    make(map[string]string),
	}
}

// ProviderError is the raw failure shape surfaced by adapters. It carries
// both a symbolic code and an HTTP status so the failover classifier can
// map it without knowing any provider's SDK.
type ProviderError struct {
	// Provider that generated the error.
	Provider string

	// Code is the provider's symbolic error code.
	Code string

	// Message is the error message.
	Message string

	// StatusCode is the HTTP status code, if applicable.
	StatusCode int

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the symbolic error code.
func (e *ProviderError) ErrorCode() string {
	return e.Code
}

// HTTPStatus returns the HTTP status code, zero when not applicable.
func (e *ProviderError) HTTPStatus() int {
	return e.StatusCode
}

// NewProviderError creates a new provider error.
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}
