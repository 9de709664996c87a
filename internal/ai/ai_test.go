package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamServiceErrorWithStatus(t *testing.T) {
	cause := errors.New("quota exhausted")
	err := &UpstreamServiceError{Provider: "gemini", StatusCode: 429, Err: cause}

	assert.Equal(t, "gemini service returned status 429: quota exhausted", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestUpstreamServiceErrorWithoutStatus(t *testing.T) {
	cause := errors.New("connection refused")
	err := &UpstreamServiceError{Provider: "openai", Err: cause}

	assert.Equal(t, "openai service request failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestUpstreamServiceErrorAsTarget(t *testing.T) {
	var wrapped error = &UpstreamServiceError{Provider: "gemini", StatusCode: 402, Err: errors.New("billing")}
	wrapped = errors.Join(errors.New("stage failed"), wrapped)

	var upstreamErr *UpstreamServiceError
	require.ErrorAs(t, wrapped, &upstreamErr)
	assert.Equal(t, 402, upstreamErr.StatusCode)
}
