package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalServiceError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := fmt.Errorf("send turn: %w", NewExternalServiceError("gemini", cause))

	assert.True(t, errors.Is(err, ErrExternalService))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrConfiguration))

	var ext *ExternalServiceError
	if assert.True(t, errors.As(err, &ext)) {
		assert.Equal(t, "gemini", ext.Service)
	}
	assert.Contains(t, err.Error(), "gemini: quota exceeded")
}

func TestVisible(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "persona", Hidden: true},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "hi"},
	}
	got := Visible(msgs)
	assert.Equal(t, []Message{{Role: RoleAssistant, Content: "hello"}, {Role: RoleUser, Content: "hi"}}, got)
	assert.Empty(t, Visible(nil))
}
