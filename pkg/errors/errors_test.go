package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrNotFound, "study schedule not found"))

	appErr := FromError(wrapped)
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "study schedule not found", appErr.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("boom")

	appErr := FromError(cause)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, cause)
	assert.Equal(t, "internal server error: boom", appErr.Error())
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrValidation, "topics are required")
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Equal(t, "topics are required", clone.Message)
	assert.Nil(t, FromError(nil))
}
