package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/internal/observability"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"github.com/upb/llm-gateway/services/failover"
	"github.com/upb/llm-gateway/services/providers"
	"github.com/upb/llm-gateway/utils"
	"go.uber.org/zap"
)

const operationChatCompletion = "chat.completion"

// maxPromptChars bounds the total message content accepted per request
const maxPromptChars = 100000

// GatewayService resolves chat completion requests against fallback chains
// and records every resolution
type GatewayService struct {
	chains      *config.ChainSet
	registry    *providers.Registry
	resolver    *failover.Resolver
	resolutions repositories.ResolutionRepository
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewGatewayService creates a new gateway service
func NewGatewayService(
	chains *config.ChainSet,
	registry *providers.Registry,
	resolutions repositories.ResolutionRepository,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *GatewayService {
	return &GatewayService{
		chains:      chains,
		registry:    registry,
		resolver:    failover.NewResolver(&registryInvoker{registry: registry}, logger),
		resolutions: resolutions,
		metrics:     metrics,
		logger:      logger,
	}
}

// ChatCompletion resolves a chat completion request against its fallback
// chain. It returns the first successful response, or a ResolutionError
// carrying the full attempt trace.
func (s *GatewayService) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	record := models.NewResolutionRecord(req.Chain, operationChatCompletion)

	if err := s.validateRequest(req); err != nil {
		record.MarkAsRejected(err.Error())
		s.persist(record)
		return nil, err
	}

	chain, opts, ok := s.chains.Get(req.Chain)
	if !ok {
		err := &UnknownChainError{Chain: req.Chain}
		record.MarkAsRejected(err.Error())
		s.persist(record)
		return nil, err
	}
	record.ChainName = chain.Name()

	payload := &providers.ChatRequest{
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		User:        req.User,
	}

	s.logger.Info("resolving chain",
		zap.String("request_id", record.RequestID),
		zap.String("chain", chain.Name()),
		zap.Int("endpoints", chain.Len()))

	start := time.Now()
	result := s.resolver.Resolve(ctx, chain, failover.Request{
		Operation: operationChatCompletion,
		Payload:   payload,
	}, opts)

	if err := record.SetTrace(result.Trace); err != nil {
		s.logger.Error("failed to encode attempt trace", zap.Error(err))
	}

	switch result.Status {
	case failover.StatusCompleted:
		resp, ok := result.Response.(*providers.ChatResponse)
		if !ok {
			// The invoker only ever returns *providers.ChatResponse for
			// this operation.
			s.logger.Error("unexpected response type from resolver",
				zap.String("request_id", record.RequestID))
			resp = &providers.ChatResponse{}
		}

		latencyMs := int(time.Since(start).Milliseconds())
		record.MarkAsCompleted(
			result.Endpoint.Provider,
			result.Endpoint.Region,
			result.Endpoint.Model,
			resp.Usage.PromptTokens,
			resp.Usage.CompletionTokens,
			latencyMs,
		)
		s.persist(record)

		s.logger.Info("chain resolved",
			zap.String("request_id", record.RequestID),
			zap.String("chain", chain.Name()),
			zap.String("endpoint", result.Endpoint.Key()),
			zap.Int("attempts", len(result.Trace)))

		return &ChatResponse{
			RequestID:    record.RequestID,
			Content:      resp.Content,
			FinishReason: resp.FinishReason,
			Usage:        resp.Usage,
			Chain:        chain.Name(),
			Endpoint:     result.Endpoint.Key(),
			Provider:     result.Endpoint.Provider,
			Region:       result.Endpoint.Region,
			Model:        result.Endpoint.Model,
			Attempts:     len(result.Trace),
			Trace:        result.Trace,
			LatencyMs:    latencyMs,
			Created:      time.Now(),
		}, nil

	case failover.StatusCancelled:
		record.MarkAsCancelled()
		s.persist(record)

		s.logger.Info("chain resolution cancelled",
			zap.String("request_id", record.RequestID),
			zap.String("chain", chain.Name()),
			zap.Int("attempts", len(result.Trace)))

		return nil, &ResolutionError{
			RequestID: record.RequestID,
			Chain:     chain.Name(),
			Kind:      result.Kind,
			Trace:     result.Trace,
			Err:       result.Err,
		}

	default:
		record.MarkAsFailed(string(result.Kind), result.Err.Error())
		s.persist(record)

		s.logger.Warn("chain resolution failed",
			zap.String("request_id", record.RequestID),
			zap.String("chain", chain.Name()),
			zap.String("kind", string(result.Kind)),
			zap.Int("attempts", len(result.Trace)),
			zap.Error(result.Err))

		return nil, &ResolutionError{
			RequestID: record.RequestID,
			Chain:     chain.Name(),
			Kind:      result.Kind,
			Trace:     result.Trace,
			Err:       result.Err,
		}
	}
}

// GetResolution retrieves a stored resolution record by ID
func (s *GatewayService) GetResolution(ctx context.Context, id uuid.UUID) (*models.ResolutionRecord, error) {
	return s.resolutions.GetByID(ctx, id)
}

// ListResolutions retrieves stored resolution records matching the filter
func (s *GatewayService) ListResolutions(ctx context.Context, filter repositories.ResolutionFilter) ([]*models.ResolutionRecord, error) {
	return s.resolutions.List(ctx, filter)
}

// Chains returns the configured chain names
func (s *GatewayService) Chains() []string {
	return s.chains.Names()
}

// validateRequest rejects malformed requests before any endpoint is attempted
func (s *GatewayService) validateRequest(req *ChatRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	total := 0
	for _, msg := range req.Messages {
		if err := utils.ValidateMessageRole(msg.Role); err != nil {
			return &ValidationError{
				Field:   "messages",
				Message: err.Error(),
			}
		}
		if msg.Content == "" {
			return &ValidationError{
				Field:   "messages",
				Message: "message content must not be empty",
			}
		}
		if err := utils.ValidatePromptContent(msg.Content); err != nil {
			return &ValidationError{
				Field:   "messages",
				Message: err.Error(),
			}
		}
		total += len(msg.Content)
	}
	if total > maxPromptChars {
		return &ValidationError{
			Field:   "messages",
			Message: "total prompt content exceeds maximum length",
		}
	}

	return nil
}

// Metrics returns the per-chain resolution stats
func (s *GatewayService) Metrics() map[string]observability.ResolutionStats {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.Snapshot()
}

// persist stores the resolution record without tying its fate to the caller.
// The request context may already be cancelled when we get here.
func (s *GatewayService) persist(record *models.ResolutionRecord) {
	if s.metrics != nil {
		s.metrics.RecordResolution(record.ChainName, string(record.Status), record.Attempts, record.LatencyMs)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.resolutions.Create(ctx, record); err != nil {
		s.logger.Error("failed to persist resolution record",
			zap.String("request_id", record.RequestID),
			zap.Error(err))
	}
}
