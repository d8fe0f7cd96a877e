package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ResolutionStatus represents the outcome of a chain resolution
type ResolutionStatus string

const (
	ResolutionStatusPending   ResolutionStatus = "pending"
	ResolutionStatusCompleted ResolutionStatus = "completed"
	ResolutionStatusFailed    ResolutionStatus = "failed"
	ResolutionStatusCancelled ResolutionStatus = "cancelled"
	ResolutionStatusRejected  ResolutionStatus = "rejected" // Rejected before any attempt
)

// ResolutionRecord represents one resolution of a fallback chain, including
// the full trace of endpoint attempts
type ResolutionRecord struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	RequestID string           `json:"request_id" db:"request_id"` // External request ID
	Status    ResolutionStatus `json:"status" db:"status"`

	// Chain details
	ChainName string `json:"chain_name" db:"chain_name"`
	Operation string `json:"operation" db:"operation"` // e.g. chat.completion

	// Serving endpoint (set when an attempt succeeded)
	Provider *string `json:"provider,omitempty" db:"provider"`
	Region   *string `json:"region,omitempty" db:"region"`
	Model    *string `json:"model,omitempty" db:"model"`

	// Attempt trace, one entry per attempted endpoint in order
	Trace    json.RawMessage `json:"trace" db:"trace"`
	Attempts int             `json:"attempts" db:"attempts"`

	// Metrics
	PromptTokens     int `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" db:"total_tokens"`
	LatencyMs        int `json:"latency_ms" db:"latency_ms"`

	// Error handling
	ErrorKind    *string `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// TableName returns the table name for the ResolutionRecord model
func (ResolutionRecord) TableName() string {
	return "resolution_records"
}

// NewResolutionRecord creates a new ResolutionRecord instance
func NewResolutionRecord(chainName, operation string) *ResolutionRecord {
	return &ResolutionRecord{
		ID:        uuid.New(),
		RequestID: uuid.New().String(),
		Status:    ResolutionStatusPending,
		ChainName: chainName,
		Operation: operation,
		CreatedAt: time.Now(),
	}
}

// MarkAsCompleted records the serving endpoint and response metrics
func (r *ResolutionRecord) MarkAsCompleted(provider, region, model string, promptTokens, completionTokens, latencyMs int) {
	r.Status = ResolutionStatusCompleted
	r.Provider = &provider
	r.Region = &region
	r.Model = &model
	r.PromptTokens = promptTokens
	r.CompletionTokens = completionTokens
	r.TotalTokens = promptTokens + completionTokens
	r.LatencyMs = latencyMs
	now := time.Now()
	r.CompletedAt = &now
}

// MarkAsFailed records the terminal error after the chain could not resolve
func (r *ResolutionRecord) MarkAsFailed(errorKind, errorMessage string) {
	r.Status = ResolutionStatusFailed
	r.ErrorKind = &errorKind
	r.ErrorMessage = &errorMessage
	now := time.Now()
	r.CompletedAt = &now
}

// MarkAsCancelled records that the caller abandoned the resolution
func (r *ResolutionRecord) MarkAsCancelled() {
	r.Status = ResolutionStatusCancelled
	now := time.Now()
	r.CompletedAt = &now
}

// MarkAsRejected records a request rejected by validation before any attempt
func (r *ResolutionRecord) MarkAsRejected(reason string) {
	r.Status = ResolutionStatusRejected
	r.ErrorMessage = &reason
	now := time.Now()
	r.CompletedAt = &now
}

// SetTrace stores the attempt trace as JSON
func (r *ResolutionRecord) SetTrace(trace interface{}) error {
	data, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	r.Trace = data
	r.Attempts = countTraceEntries(data)
	return nil
}

func countTraceEntries(data []byte) int {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0
	}
	return len(entries)
}
