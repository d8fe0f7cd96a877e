package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/llm-gateway/middleware"
	"github.com/upb/llm-gateway/services/gateway"
	"github.com/upb/llm-gateway/utils"
	"go.uber.org/zap"
)

// ChatService defines the interface for chat completion resolution
type ChatService interface {
	// ChatCompletion resolves a chat request against its fallback chain
	ChatCompletion(ctx context.Context, req *gateway.ChatRequest) (*gateway.ChatResponse, error)

	// Chains returns the configured chain names
	Chains() []string
}

// InferenceHandler handles chat completion HTTP requests
type InferenceHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewInferenceHandler creates a new InferenceHandler
func NewInferenceHandler(service ChatService, logger *zap.Logger) *InferenceHandler {
	return &InferenceHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChatCompletion handles POST /api/v1/chat/completions
func (h *InferenceHandler) HandleChatCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req gateway.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid JSON request body", nil)
		return
	}

	resp, err := h.service.ChatCompletion(ctx, &req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, resp)
}

// HandleListChains handles GET /api/v1/chains
func (h *InferenceHandler) HandleListChains(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]interface{}{
		"chains": h.service.Chains(),
	})
}
