package gateway

import (
	"fmt"
	"time"

	"github.com/upb/llm-gateway/services/failover"
	"github.com/upb/llm-gateway/services/providers"
)

// ChatRequest is a chat completion request entering the gateway
type ChatRequest struct {
	// Chain names the fallback chain to resolve against. Empty selects the
	// configured default chain.
	Chain string `json:"chain,omitempty"`

	Messages    []providers.Message `json:"messages" validate:"required,min=1,dive"`
	MaxTokens   int                 `json:"max_tokens,omitempty" validate:"omitempty,gte=1,lte=32768"`
	Temperature float64             `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP        float64             `json:"top_p,omitempty" validate:"omitempty,gt=0,lte=1"`
	Stop        []string            `json:"stop,omitempty" validate:"omitempty,max=4"`
	User        string              `json:"user,omitempty"`
}

// ChatResponse is the gateway's answer to a chat completion request,
// including provenance for the endpoint that served it
type ChatResponse struct {
	RequestID    string          `json:"request_id"`
	Content      string          `json:"content"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Usage        providers.Usage `json:"usage"`

	// Provenance
	Chain    string                   `json:"chain"`
	Endpoint string                   `json:"endpoint"`
	Provider string                   `json:"provider"`
	Region   string                   `json:"region,omitempty"`
	Model    string                   `json:"model"`
	Attempts int                      `json:"attempts"`
	Trace    []failover.AttemptRecord `json:"trace"`

	LatencyMs int       `json:"latency_ms"`
	Created   time.Time `json:"created"`
}

// ValidationError reports a request rejected before any endpoint was attempted
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UnknownChainError reports a request naming a chain that is not configured
type UnknownChainError struct {
	Chain string
}

func (e *UnknownChainError) Error() string {
	return fmt.Sprintf("unknown chain: %s", e.Chain)
}

// ResolutionError reports a chain that could not be resolved. It carries the
// terminal error kind and the full attempt trace.
type ResolutionError struct {
	RequestID string
	Chain     string
	Kind      failover.ErrorKind
	Trace     []failover.AttemptRecord
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("chain %s resolution failed (%s): %v", e.Chain, e.Kind, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
