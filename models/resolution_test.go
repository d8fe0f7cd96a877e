package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolutionRecord(t *testing.T) {
	record := NewResolutionRecord("claude-chat", "chat.completion")

	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.NotEmpty(t, record.RequestID)
	assert.Equal(t, ResolutionStatusPending, record.Status)
	assert.Equal(t, "claude-chat", record.ChainName)
	assert.Equal(t, "chat.completion", record.Operation)
	assert.False(t, record.CreatedAt.IsZero())
	assert.Nil(t, record.CompletedAt)
}

func TestMarkAsCompleted(t *testing.T) {
	record := NewResolutionRecord("claude-chat", "chat.completion")
	record.MarkAsCompleted("bedrock", "us-east-1", "claude-3-sonnet", 120, 80, 950)

	assert.Equal(t, ResolutionStatusCompleted, record.Status)
	require.NotNil(t, record.Provider)
	assert.Equal(t, "bedrock", *record.Provider)
	require.NotNil(t, record.Region)
	assert.Equal(t, "us-east-1", *record.Region)
	require.NotNil(t, record.Model)
	assert.Equal(t, "claude-3-sonnet", *record.Model)
	assert.Equal(t, 200, record.TotalTokens)
	assert.Equal(t, 950, record.LatencyMs)
	assert.NotNil(t, record.CompletedAt)
}

func TestMarkAsFailed(t *testing.T) {
	record := NewResolutionRecord("claude-chat", "chat.completion")
	record.MarkAsFailed("UNAVAILABLE", "chain exhausted: 3 endpoints attempted")

	assert.Equal(t, ResolutionStatusFailed, record.Status)
	require.NotNil(t, record.ErrorKind)
	assert.Equal(t, "UNAVAILABLE", *record.ErrorKind)
	require.NotNil(t, record.ErrorMessage)
	assert.Contains(t, *record.ErrorMessage, "chain exhausted")
	assert.NotNil(t, record.CompletedAt)
}

func TestMarkAsCancelled(t *testing.T) {
	record := NewResolutionRecord("claude-chat", "chat.completion")
	record.MarkAsCancelled()

	assert.Equal(t, ResolutionStatusCancelled, record.Status)
	assert.Nil(t, record.ErrorKind)
	assert.NotNil(t, record.CompletedAt)
}

func TestMarkAsRejected(t *testing.T) {
	record := NewResolutionRecord("claude-chat", "chat.completion")
	record.MarkAsRejected("unknown chain")

	assert.Equal(t, ResolutionStatusRejected, record.Status)
	require.NotNil(t, record.ErrorMessage)
	assert.Equal(t, "unknown chain", *record.ErrorMessage)
}

func TestSetTrace(t *testing.T) {
	record := NewResolutionRecord("claude-chat", "chat.completion")

	trace := []map[string]interface{}{
		{"endpoint": "bedrock/us-east-1/claude-3-sonnet", "success": false},
		{"endpoint": "bedrock/us-west-2/claude-3-sonnet", "success": true},
	}
	require.NoError(t, record.SetTrace(trace))

	assert.Equal(t, 2, record.Attempts)
	assert.Contains(t, string(record.Trace), "us-west-2")
}

func TestSetTraceEmpty(t *testing.T) {
	record := NewResolutionRecord("claude-chat", "chat.completion")
	require.NoError(t, record.SetTrace([]string{}))

	assert.Equal(t, 0, record.Attempts)
	assert.Equal(t, "[]", string(record.Trace))
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "resolution_records", ResolutionRecord{}.TableName())
}
