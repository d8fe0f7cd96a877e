package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/llm-gateway/internal/observability"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"github.com/upb/llm-gateway/utils"
	"go.uber.org/zap"
)

// ResolutionService defines the interface for querying stored resolutions
type ResolutionService interface {
	// GetResolution retrieves a resolution record by ID
	GetResolution(ctx context.Context, id uuid.UUID) (*models.ResolutionRecord, error)

	// ListResolutions retrieves resolution records matching the filter
	ListResolutions(ctx context.Context, filter repositories.ResolutionFilter) ([]*models.ResolutionRecord, error)

	// Metrics returns the per-chain resolution stats
	Metrics() map[string]observability.ResolutionStats
}

// ResolutionHandler handles resolution record HTTP requests
type ResolutionHandler struct {
	service ResolutionService
	logger  *zap.Logger
}

// NewResolutionHandler creates a new ResolutionHandler
func NewResolutionHandler(service ResolutionService, logger *zap.Logger) *ResolutionHandler {
	return &ResolutionHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGetResolution handles GET /api/v1/resolutions/{id}
func (h *ResolutionHandler) HandleGetResolution(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid resolution ID", nil)
		return
	}

	record, err := h.service.GetResolution(r.Context(), id)
	if err != nil {
		_ = utils.WriteNotFound(w, "Resolution record not found")
		return
	}

	_ = utils.WriteOK(w, record)
}

// HandleListResolutions handles GET /api/v1/resolutions
func (h *ResolutionHandler) HandleListResolutions(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ResolutionFilter{
		ChainName: r.URL.Query().Get("chain"),
		Status:    models.ResolutionStatus(r.URL.Query().Get("status")),
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			_ = utils.WriteBadRequest(w, "Invalid limit parameter", nil)
			return
		}
		filter.Limit = limit
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			_ = utils.WriteBadRequest(w, "Invalid offset parameter", nil)
			return
		}
		filter.Offset = offset
	}
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid since parameter, expected RFC3339", nil)
			return
		}
		filter.Since = &since
	}

	records, err := h.service.ListResolutions(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list resolutions", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	if records == nil {
		records = []*models.ResolutionRecord{}
	}
	_ = utils.WriteOK(w, records)
}

// HandleStats handles GET /api/v1/resolutions/stats
func (h *ResolutionHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.service.Metrics())
}
