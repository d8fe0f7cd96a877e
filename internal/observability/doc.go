// Package observability provides structured logging and metrics for the
// LLM gateway.
//
// This package implements:
//   - Structured logging with contextual fields (zap-based)
//   - Request ID propagation into log lines
//   - In-process resolution metrics with per-chain counters
package observability
