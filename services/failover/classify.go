package failover

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ErrorKind is the closed set of classified failure kinds.
type ErrorKind string

const (
	// KindThrottled means the endpoint rejected the request for rate or
	// capacity reasons. Retryable on the next endpoint.
	KindThrottled ErrorKind = "THROTTLED"

	// KindUnavailable means the endpoint or model is not reachable or not
	// supported. Retryable on the next endpoint.
	KindUnavailable ErrorKind = "UNAVAILABLE"

	// KindInvalidRequest means the request itself is malformed or not
	// permitted. Chain-fatal: every endpoint would reject it the same way.
	KindInvalidRequest ErrorKind = "INVALID_REQUEST"

	// KindTimeout means the attempt exceeded its per-attempt bound.
	// Retryable on the next endpoint.
	KindTimeout ErrorKind = "TIMEOUT"

	// KindUnknown is the fallback for failures that match no other kind.
	// Retryable on the next endpoint.
	KindUnknown ErrorKind = "UNKNOWN"

	// KindConfiguration marks resolutions that failed before any attempt,
	// such as an empty chain.
	KindConfiguration ErrorKind = "CONFIGURATION_ERROR"

	// KindCancelled marks resolutions stopped by caller cancellation.
	KindCancelled ErrorKind = "CANCELLED"
)

// ChainFatal reports whether trying further endpoints is known not to help.
func (k ErrorKind) ChainFatal() bool {
	return k == KindInvalidRequest
}

// Retryable reports whether the next endpoint in the chain may be tried
// after a failure of this kind.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindThrottled, KindUnavailable, KindTimeout, KindUnknown:
		return true
	default:
		return false
	}
}

// statusCoder is satisfied by provider errors that carry an HTTP status,
// such as providers.ProviderError.
type statusCoder interface {
	HTTPStatus() int
}

// apiCoder is satisfied by errors carrying a symbolic code: provider errors
// and AWS smithy API errors both expose ErrorCode.
type apiCoder interface {
	ErrorCode() string
}

// errorCodeKinds maps symbolic provider and AWS API error codes to kinds.
// Codes not listed here fall through to HTTP status classification.
var errorCodeKinds = map[string]ErrorKind{
	// Throttling
	"ThrottlingException":           KindThrottled,
	"TooManyRequestsException":      KindThrottled,
	"ServiceQuotaExceededException": KindThrottled,
	"rate_limit_exceeded":           KindThrottled,
	"insufficient_quota":            KindThrottled,

	// Endpoint or model not reachable / not supported
	"ServiceUnavailableException": KindUnavailable,
	"ModelNotReadyException":      KindUnavailable,
	"ResourceNotFoundException":   KindUnavailable,
	"InternalServerException":     KindUnavailable,
	"model_not_found":             KindUnavailable,

	// Non-retryable request errors
	"ValidationException":     KindInvalidRequest,
	"AccessDeniedException":   KindInvalidRequest,
	"invalid_request_error":   KindInvalidRequest,
	"context_length_exceeded": KindInvalidRequest,

	// Timeouts surfaced as API errors
	"ModelTimeoutException": KindTimeout,
	"RequestTimeout":        KindTimeout,
}

// Classify maps a raw invoker failure into an ErrorKind. It is a pure
// function, total over all error shapes: anything unrecognized is
// KindUnknown rather than an error. Classification goes through small
// local interfaces so it is not tied to any one SDK's error taxonomy.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}

	var coded apiCoder
	if errors.As(err, &coded) {
		if kind, ok := errorCodeKinds[coded.ErrorCode()]; ok {
			return kind
		}
	}

	var statused statusCoder
	if errors.As(err, &statused) {
		if kind := classifyStatus(statused.HTTPStatus()); kind != KindUnknown {
			return kind
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindUnavailable
	}

	return KindUnknown
}

// classifyStatus maps an HTTP status carried by a provider error.
func classifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return KindThrottled
	case http.StatusNotFound, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindUnavailable
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return KindInvalidRequest
	case http.StatusRequestTimeout:
		return KindTimeout
	}
	if status >= 500 {
		return KindUnavailable
	}
	return KindUnknown
}
