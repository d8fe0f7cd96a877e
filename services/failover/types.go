package failover

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyChain is returned when a resolution is attempted against a
	// chain with no endpoints.
	ErrEmptyChain = errors.New("fallback chain is empty")

	// ErrChainExhausted is returned when every attempted endpoint failed.
	ErrChainExhausted = errors.New("all endpoints in chain failed")

	// ErrDuplicateEndpoint is returned when a chain is constructed with two
	// endpoints sharing the same key.
	ErrDuplicateEndpoint = errors.New("duplicate endpoint in chain")
)

// Endpoint identifies one callable inference target. Immutable once
// constructed.
type Endpoint struct {
	// ID is an optional stable identifier. When empty, Key derives one from
	// the provider, region, and model.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Provider names the backend serving this endpoint (e.g. "openai", "bedrock").
	Provider string `json:"provider" yaml:"provider"`

	// Region is the geographic region of the endpoint, when the provider
	// distinguishes regions.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Model is the provider-side model identifier invoked at this endpoint.
	Model string `json:"model" yaml:"model"`
}

// Key returns the endpoint's identity within a chain.
func (e Endpoint) Key() string {
	if e.ID != "" {
		return e.ID
	}
	if e.Region != "" {
		return e.Provider + "/" + e.Region + "/" + e.Model
	}
	return e.Provider + "/" + e.Model
}

// Chain is an ordered fallback list of endpoints. Order is significant:
// insertion order is attempt order, primary first. A chain is read-only
// after construction and safe for concurrent use.
type Chain struct {
	name      string
	endpoints []Endpoint
}

// NewChain builds a chain from an ordered list of endpoints. Duplicate
// endpoint keys are rejected; an empty list is permitted here and rejected
// at resolution time so misconfiguration surfaces as a structured result.
func NewChain(name string, endpoints []Endpoint) (*Chain, error) {
	seen := make(map[string]struct{}, len(endpoints))
	for _, ep := range endpoints {
		key := ep.Key()
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEndpoint, key)
		}
		seen[key] = struct{}{}
	}

	eps := make([]Endpoint, len(endpoints))
	copy(eps, endpoints)

	return &Chain{name: name, endpoints: eps}, nil
}

// Name returns the chain's configured name.
func (c *Chain) Name() string {
	return c.name
}

// Len returns the number of endpoints in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.endpoints)
}

// Endpoints returns a copy of the chain's endpoints in attempt order.
func (c *Chain) Endpoints() []Endpoint {
	eps := make([]Endpoint, len(c.endpoints))
	copy(eps, c.endpoints)
	return eps
}

// Request carries the opaque payload handed unmodified to every endpoint in
// the chain, plus a logical operation identifier for logging and tracing.
type Request struct {
	// Operation names the logical operation (e.g. "chat.completion").
	Operation string

	// Payload is the provider-agnostic request body. The resolver never
	// inspects it; per-endpoint adaptation is the invoker's concern.
	Payload any
}

// AttemptRecord describes one endpoint attempt during a resolution. Records
// are appended in attempt order and never mutated after creation.
type AttemptRecord struct {
	Endpoint  string        `json:"endpoint"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Success   bool          `json:"success"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency_ns"`
}

// Status is the terminal state of one resolution.
type Status string

const (
	// StatusCompleted means an endpoint produced a response.
	StatusCompleted Status = "completed"

	// StatusFailed means resolution stopped without a response: empty chain,
	// chain-fatal error, or full exhaustion.
	StatusFailed Status = "failed"

	// StatusCancelled means the caller cancelled the resolution mid-flight.
	StatusCancelled Status = "cancelled"
)

// Result is the outcome of one resolution. It is produced exactly once per
// Resolve call and is immutable; the trace is owned by this result.
type Result struct {
	// Status is the terminal state of the resolution.
	Status Status

	// Response is the payload returned by the serving endpoint. Nil unless
	// Status is StatusCompleted.
	Response any

	// Endpoint is the endpoint that produced Response. Nil on failure.
	Endpoint *Endpoint

	// Trace lists every completed attempt in chain order.
	Trace []AttemptRecord

	// Kind classifies terminal failures: CONFIGURATION_ERROR, CANCELLED, or
	// the chain-fatal kind that stopped resolution. Empty on success and on
	// plain exhaustion (see Err).
	Kind ErrorKind

	// Err is the terminal error. Nil on success; ErrEmptyChain,
	// ErrChainExhausted, a context error, or the chain-fatal cause otherwise.
	Err error
}

// Succeeded reports whether the resolution produced a response.
func (r *Result) Succeeded() bool {
	return r.Status == StatusCompleted
}

// Options tunes one resolution call.
type Options struct {
	// MaxAttempts caps how many endpoints are tried. Zero or a value above
	// the chain length defaults to the chain length.
	MaxAttempts int

	// PerAttemptTimeout bounds each endpoint attempt. Zero means no
	// per-attempt bound beyond the caller's context.
	PerAttemptTimeout time.Duration

	// RetryFatalErrors continues past chain-fatal errors instead of
	// stopping. Off by default: an invalid request fails the same way on
	// every endpoint.
	RetryFatalErrors bool
}
