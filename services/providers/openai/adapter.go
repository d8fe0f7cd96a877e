package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/llm-gateway/services/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
)

// Adapter implements the Provider interface for OpenAI-compatible APIs.
type Adapter struct {
	config     providers.Config
	httpClient *http.Client
}

// New creates a new OpenAI adapter.
func New(config providers.Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "openai"
}

// ChatCompletion performs a chat completion request. OpenAI does not expose
// regional endpoints, so region is ignored; the model comes from the endpoint
// being attempted.
func (a *Adapter) ChatCompletion(ctx context.Context, region, model string, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	reqBody, err := json.Marshal(a.buildWireRequest(model, req))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "marshal_error", "failed to marshal request", 0, err)
	}

	// Transient failures are retried here with backoff; the chain-level
	// resolver never re-invokes the same endpoint.
	var httpResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(a.config.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		httpReq, err := a.newChatRequest(ctx, reqBody)
		if err != nil {
			return nil, providers.NewProviderError(a.Name(), "request_error", "failed to create request", 0, err)
		}

		httpResp, lastErr = a.httpClient.Do(httpReq)
		if lastErr == nil && httpResp.StatusCode < 500 {
			break
		}

		if httpResp != nil {
			httpResp.Body.Close()
			httpResp = nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if lastErr != nil {
		return nil, providers.NewProviderError(a.Name(), "http_error", "HTTP request failed", 0, lastErr)
	}
	if httpResp == nil {
		return nil, providers.NewProviderError(a.Name(), "http_error", "no response after retries", http.StatusBadGateway, nil)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "read_error", "failed to read response", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var wireResp wireChatResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, providers.NewProviderError(a.Name(), "unmarshal_error", "failed to unmarshal response", httpResp.StatusCode, err)
	}

	return a.toUnifiedResponse(&wireResp, time.Since(startTime)), nil
}

// newChatRequest builds one HTTP request; a fresh body reader per retry.
func (a *Adapter) newChatRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// buildWireRequest converts the unified request to the OpenAI wire format.
func (a *Adapter) buildWireRequest(model string, req *providers.ChatRequest) *wireChatRequest {
	wireReq := &wireChatRequest{
		Model:    model,
		Messages: make([]wireMessage, len(req.Messages)),
	}

	for i, msg := range req.Messages {
		wireReq.Messages[i] = wireMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	if req.MaxTokens > 0 {
		wireReq.MaxTokens = &req.MaxTokens
	}
	if req.Temperature > 0 {
		wireReq.Temperature = &req.Temperature
	}
	if req.TopP > 0 {
		wireReq.TopP = &req.TopP
	}
	if len(req.Stop) > 0 {
		wireReq.Stop = req.Stop
	}
	if req.User != "" {
		wireReq.User = &req.User
	}

	return wireReq
}

// toUnifiedResponse converts an OpenAI response to the unified format.
func (a *Adapter) toUnifiedResponse(wireResp *wireChatResponse, latency time.Duration) *providers.ChatResponse {
	resp := &providers.ChatResponse{
		ID:       wireResp.ID,
		Model:    wireResp.Model,
		Provider: a.Name(),
		Usage: providers.Usage{
			PromptTokens:     wireResp.Usage.PromptTokens,
			CompletionTokens: wireResp.Usage.CompletionTokens,
			TotalTokens:      wireResp.Usage.TotalTokens,
		},
		Latency: latency,
		Created: time.Unix(wireResp.Created, 0),
	}

	if len(wireResp.Choices) > 0 {
		resp.Content = wireResp.Choices[0].Message.Content
		resp.FinishReason = wireResp.Choices[0].FinishReason
	}

	return resp
}

// handleErrorResponse converts OpenAI error bodies into provider errors.
func (a *Adapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp wireErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return providers.NewProviderError(a.Name(), "unknown_error", string(body), statusCode, err)
	}

	code := errResp.Error.Code
	if code == "" {
		code = errResp.Error.Type
	}

	return providers.NewProviderError(
		a.Name(),
		code,
		fmt.Sprintf("openai: %s", errResp.Error.Message),
		statusCode,
		errors.New(errResp.Error.Message),
	)
}

// OpenAI wire types.

type wireChatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	User        *string       `json:"user,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

type wireChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireErrorResponse struct {
	Error wireError `json:"error"`
}

type wireError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}
