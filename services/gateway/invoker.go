package gateway

import (
	"context"
	"fmt"

	"github.com/upb/llm-gateway/services/failover"
	"github.com/upb/llm-gateway/services/providers"
)

// registryInvoker dispatches a single endpoint attempt to the provider named
// by the endpoint. It is the bridge between the failover resolver and the
// provider registry.
type registryInvoker struct {
	registry *providers.Registry
}

// Invoke implements failover.Invoker
func (inv *registryInvoker) Invoke(ctx context.Context, endpoint failover.Endpoint, req failover.Request) (interface{}, error) {
	provider, err := inv.registry.Get(endpoint.Provider)
	if err != nil {
		// A misconfigured endpoint should not kill the chain. Surface it as
		// an unavailable provider so the resolver moves on.
		return nil, providers.NewProviderError(
			endpoint.Provider,
			"ProviderNotConfigured",
			fmt.Sprintf("provider %q is not registered", endpoint.Provider),
			503,
			err,
		)
	}

	chatReq, ok := req.Payload.(*providers.ChatRequest)
	if !ok {
		return nil, providers.NewProviderError(
			endpoint.Provider,
			"invalid_request_error",
			fmt.Sprintf("unsupported payload type %T for operation %s", req.Payload, req.Operation),
			400,
			nil,
		)
	}

	return provider.ChatCompletion(ctx, endpoint.Region, endpoint.Model, chatReq)
}
