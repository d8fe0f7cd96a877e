package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  string `validate:"required"`
	Count int    `validate:"gte=1,lte=10"`
	Role  string `validate:"omitempty,oneof=system user assistant"`
}

func TestValidateStruct(t *testing.T) {
	err := ValidateStruct(sampleRequest{Name: "chat", Count: 3, Role: "user"})
	assert.NoError(t, err)
}

func TestValidateStructReportsFields(t *testing.T) {
	err := ValidateStruct(sampleRequest{Count: 99, Role: "robot"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	fields := GetValidationFields(err)
	require.NotNil(t, fields)
	assert.Contains(t, fields["Name"], "required")
	assert.Contains(t, fields["Count"], "less than or equal")
	assert.Contains(t, fields["Role"], "one of")
}

func TestIsValidationErrorOnPlainError(t *testing.T) {
	assert.False(t, IsValidationError(assert.AnError))
	assert.Nil(t, GetValidationFields(assert.AnError))
}

func TestValidateUUID(t *testing.T) {
	assert.NoError(t, ValidateUUID(uuid.New().String()))
	assert.Error(t, ValidateUUID("not-a-uuid"))
	assert.Error(t, ValidateUUID(""))
}

func TestValidateModelID(t *testing.T) {
	valid := []string{
		"gpt-4o",
		"gpt-4o-mini",
		"anthropic.claude-3-sonnet-20240229-v1:0",
		"llama3.1",
	}
	for _, id := range valid {
		assert.NoError(t, ValidateModelID(id), "model %s", id)
	}

	invalid := []string{
		"",
		"-leading-dash",
		"model with spaces",
		"model/with/slash",
	}
	for _, id := range invalid {
		assert.Error(t, ValidateModelID(id), "model %q", id)
	}
}

func TestValidateMessageRole(t *testing.T) {
	for _, role := range []string{"system", "user", "assistant"} {
		assert.NoError(t, ValidateMessageRole(role))
	}
	assert.Error(t, ValidateMessageRole("tool"))
	assert.Error(t, ValidateMessageRole(""))
}

func TestValidatePromptContent(t *testing.T) {
	assert.NoError(t, ValidatePromptContent("hello world"))
	assert.NoError(t, ValidatePromptContent(""))
	assert.Error(t, ValidatePromptContent("bad\x00content"))
}

func TestValidateRequired(t *testing.T) {
	assert.NoError(t, ValidateRequired("value", "field"))

	err := ValidateRequired("", "chain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain is required")
}
