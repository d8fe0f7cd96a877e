package bedrock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/upb/llm-gateway/services/providers"
)

// Config holds AWS Bedrock adapter configuration.
type Config struct {
	// DefaultRegion is used when an endpoint does not specify one.
	DefaultRegion string

	// AccessKey and SecretKey are optional static credentials. When empty,
	// the SDK's default credential chain applies.
	AccessKey string
	SecretKey string
}

// Adapter implements the Provider interface for AWS Bedrock via the
// Converse API. It keeps one runtime client per region, created lazily,
// so a single adapter serves cross-region fallback chains.
type Adapter struct {
	config Config

	mu      sync.Mutex
	clients map[string]*bedrockruntime.Client
}

// New creates a new Bedrock adapter.
func New(config Config) *Adapter {
	if config.DefaultRegion == "" {
		config.DefaultRegion = "us-east-1"
	}
	return &Adapter{
		config:  config,
		clients: make(map[string]*bedrockruntime.Client),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "bedrock"
}

// ChatCompletion performs a chat completion through the Converse API in the
// endpoint's region. SDK errors are passed through unwrapped enough for
// classification by their API error codes.
func (a *Adapter) ChatCompletion(ctx context.Context, region, model string, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	if region == "" {
		region = a.config.DefaultRegion
	}

	client, err := a.clientForRegion(ctx, region)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "client_init_error",
			fmt.Sprintf("failed to initialize bedrock client for region %s", region), 0, err)
	}

	startTime := time.Now()

	out, err := client.Converse(ctx, a.buildConverseInput(model, req))
	if err != nil {
		return nil, a.convertError(region, err)
	}

	return a.toUnifiedResponse(out, model, time.Since(startTime)), nil
}

// convertError normalizes SDK errors into ProviderError, keeping the smithy
// API error code and HTTP status. Context errors pass through untouched so
// callers can still match them.
func (a *Adapter) convertError(region string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("bedrock converse in %s: %w", region, err)
	}

	// The SDK wraps the smithy response error per service, so match on the
	// status method rather than a concrete type.
	status := 0
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		status = respErr.HTTPStatusCode()
	}

	return providers.NewProviderError(a.Name(), apiErr.ErrorCode(),
		fmt.Sprintf("%s (region %s)", apiErr.ErrorMessage(), region), status, err)
}

// clientForRegion returns a cached runtime client for the region, creating
// it on first use.
func (a *Adapter) clientForRegion(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if client, ok := a.clients[region]; ok {
		return client, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if a.config.AccessKey != "" && a.config.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.config.AccessKey, a.config.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := bedrockruntime.NewFromConfig(awsCfg)
	a.clients[region] = client
	return client, nil
}

// buildConverseInput converts the unified request to the Converse API shape.
// System messages go to the dedicated system field.
func (a *Adapter) buildConverseInput(model string, req *providers.ChatRequest) *bedrockruntime.ConverseInput {
	var messages []types.Message
	var system []types.SystemContentBlock

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = append(system, &types.SystemContentBlockMemberText{
				Value: msg.Content,
			})
		case "user", "assistant":
			messages = append(messages, types.Message{
				Role: types.ConversationRole(msg.Role),
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: msg.Content},
				},
			})
		}
	}

	inferenceConfig := &types.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		inferenceConfig.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		inferenceConfig.Temperature = aws.Float32(float32(req.Temperature))
	}
	if req.TopP > 0 {
		inferenceConfig.TopP = aws.Float32(float32(req.TopP))
	}
	if len(req.Stop) > 0 {
		stop := make([]string, len(req.Stop))
		copy(stop, req.Stop)
		inferenceConfig.StopSequences = stop
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(model),
		Messages:        messages,
		InferenceConfig: inferenceConfig,
	}
	if len(system) > 0 {
		input.System = system
	}

	return input
}

// toUnifiedResponse converts a Converse output to the unified format.
func (a *Adapter) toUnifiedResponse(out *bedrockruntime.ConverseOutput, model string, latency time.Duration) *providers.ChatResponse {
	resp := &providers.ChatResponse{
		Model:        model,
		Provider:     a.Name(),
		FinishReason: convertStopReason(string(out.StopReason)),
		Latency:      latency,
		Created:      time.Now(),
	}

	if msg, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if text, ok := block.(*types.ContentBlockMemberText); ok && text.Value != "" {
				resp.Content = text.Value
				break
			}
		}
	}

	if out.Usage != nil {
		resp.Usage = providers.Usage{
			PromptTokens:     int(aws.ToInt32(out.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}

	return resp
}

// convertStopReason maps Converse stop reasons onto the unified
// finish-reason vocabulary.
func convertStopReason(reason string) string {
	switch reason {
	case "max_tokens":
		return "length"
	case "end_turn", "stop_sequence":
		return "stop"
	case "content_filtered":
		return "content_filter"
	default:
		return reason
	}
}
