package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/llm-gateway/services/failover"
	"github.com/upb/llm-gateway/services/gateway"
	"github.com/upb/llm-gateway/utils"
	"go.uber.org/zap"
)

// statusClientClosedRequest mirrors the nginx convention for requests
// abandoned by the client
const statusClientClosedRequest = 499

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var validationErr *gateway.ValidationError
	if errors.As(err, &validationErr) {
		if werr := utils.WriteBadRequest(w, validationErr.Error(), nil); werr != nil {
			logger.Error("failed to write bad request response", zap.Error(werr))
		}
		return
	}

	var unknownChainErr *gateway.UnknownChainError
	if errors.As(err, &unknownChainErr) {
		if werr := utils.WriteNotFound(w, unknownChainErr.Error()); werr != nil {
			logger.Error("failed to write not found response", zap.Error(werr))
		}
		return
	}

	var resolutionErr *gateway.ResolutionError
	if errors.As(err, &resolutionErr) {
		writeResolutionError(w, resolutionErr, logger)
		return
	}

	logger.Error("unhandled service error", zap.Error(err))
	if werr := utils.WriteInternalServerError(w, ""); werr != nil {
		logger.Error("failed to write error response", zap.Error(werr))
	}
}

// writeResolutionError maps the terminal error kind of a failed resolution
// to an HTTP status and includes the attempt trace
func writeResolutionError(w http.ResponseWriter, resErr *gateway.ResolutionError, logger *zap.Logger) {
	var status int
	switch resErr.Kind {
	case failover.KindThrottled:
		status = http.StatusTooManyRequests
	case failover.KindUnavailable:
		status = http.StatusServiceUnavailable
	case failover.KindInvalidRequest:
		status = http.StatusBadRequest
	case failover.KindTimeout:
		status = http.StatusGatewayTimeout
	case failover.KindCancelled:
		status = statusClientClosedRequest
	case failover.KindConfiguration:
		status = http.StatusInternalServerError
	default:
		status = http.StatusBadGateway
	}

	details := map[string]interface{}{
		"request_id": resErr.RequestID,
		"chain":      resErr.Chain,
		"kind":       string(resErr.Kind),
		"attempts":   len(resErr.Trace),
		"trace":      resErr.Trace,
	}

	if werr := utils.WriteError(w, status, resErr.Error(), details); werr != nil {
		logger.Error("failed to write resolution error response", zap.Error(werr))
	}
}
