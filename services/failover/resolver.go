package failover

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Invoker is the external collaborator that performs one endpoint call.
// The resolver treats it as a black box returning either a response payload
// or a raw error for classification. Implementations must honor context
// cancellation and deadlines.
type Invoker interface {
	Invoke(ctx context.Context, endpoint Endpoint, req Request) (any, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, endpoint Endpoint, req Request) (any, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, endpoint Endpoint, req Request) (any, error) {
	return f(ctx, endpoint, req)
}

// Resolver attempts the endpoints of a chain in order until one succeeds,
// a chain-fatal error occurs, or the chain is exhausted. A Resolver is
// stateless across calls and safe for concurrent use.
type Resolver struct {
	invoker Invoker
	logger  *zap.Logger
}

// NewResolver creates a resolver backed by the given invoker.
func NewResolver(invoker Invoker, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		invoker: invoker,
		logger:  logger,
	}
}

// Resolve tries the chain's endpoints in order and returns a Result. All
// per-attempt failures are absorbed into the trace; the only outcomes that
// surface are success, configuration error, chain-fatal failure,
// cancellation, and full exhaustion, always as a structured Result.
func (r *Resolver) Resolve(ctx context.Context, chain *Chain, req Request, opts Options) *Result {
	if chain.Len() == 0 {
		r.logger.Warn("resolution attempted against empty chain",
			zap.String("operation", req.Operation))
		return &Result{
			Status: StatusFailed,
			Kind:   KindConfiguration,
			Err:    ErrEmptyChain,
			Trace:  []AttemptRecord{},
		}
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 || maxAttempts > chain.Len() {
		maxAttempts = chain.Len()
	}

	trace := make([]AttemptRecord, 0, maxAttempts)

	for i, ep := range chain.Endpoints()[:maxAttempts] {
		// Cancellation stops resolution before the next attempt starts.
		if err := ctx.Err(); err != nil {
			return r.cancelled(chain, req, trace, err)
		}

		resp, latency, err := r.attempt(ctx, ep, req, opts.PerAttemptTimeout)
		if err == nil {
			trace = append(trace, AttemptRecord{
				Endpoint: ep.Key(),
				Provider: ep.Provider,
				Model:    ep.Model,
				Success:  true,
				Latency:  latency,
			})
			r.logger.Info("resolution succeeded",
				zap.String("chain", chain.Name()),
				zap.String("operation", req.Operation),
				zap.String("endpoint", ep.Key()),
				zap.Int("attempts", len(trace)),
				zap.Duration("latency", latency))
			serving := ep
			return &Result{
				Status:   StatusCompleted,
				Response: resp,
				Endpoint: &serving,
				Trace:    trace,
			}
		}

		// Caller cancellation never counts as an endpoint failure and never
		// advances the chain; the aborted attempt leaves no record.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.cancelled(chain, req, trace, ctxErr)
		}

		kind := Classify(err)
		trace = append(trace, AttemptRecord{
			Endpoint:  ep.Key(),
			Provider:  ep.Provider,
			Model:     ep.Model,
			ErrorKind: kind,
			Error:     err.Error(),
			Latency:   latency,
		})

		r.logger.Warn("endpoint attempt failed",
			zap.String("chain", chain.Name()),
			zap.String("operation", req.Operation),
			zap.String("endpoint", ep.Key()),
			zap.String("kind", string(kind)),
			zap.Int("attempt", i+1),
			zap.Duration("latency", latency),
			zap.Error(err))

		if kind.ChainFatal() && !opts.RetryFatalErrors {
			return &Result{
				Status: StatusFailed,
				Kind:   kind,
				Err:    err,
				Trace:  trace,
			}
		}
	}

	r.logger.Warn("chain exhausted without success",
		zap.String("chain", chain.Name()),
		zap.String("operation", req.Operation),
		zap.Int("attempts", len(trace)))

	return &Result{
		Status: StatusFailed,
		Err:    fmt.Errorf("%w: %d endpoints attempted", ErrChainExhausted, len(trace)),
		Trace:  trace,
	}
}

// attempt performs one endpoint invocation under the per-attempt timeout.
func (r *Resolver) attempt(ctx context.Context, ep Endpoint, req Request, timeout time.Duration) (any, time.Duration, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.invoker.Invoke(attemptCtx, ep, req)
	return resp, time.Since(start), err
}

// cancelled builds the terminal result for a caller-cancelled resolution.
// Its trace contains only attempts completed before cancellation.
func (r *Resolver) cancelled(chain *Chain, req Request, trace []AttemptRecord, cause error) *Result {
	r.logger.Info("resolution cancelled",
		zap.String("chain", chain.Name()),
		zap.String("operation", req.Operation),
		zap.Int("completed_attempts", len(trace)))
	return &Result{
		Status: StatusCancelled,
		Kind:   KindCancelled,
		Err:    cause,
		Trace:  trace,
	}
}
