package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotFoundError(ErrUserNotFound))
	assert.True(t, IsNotFoundError(ErrGenerationNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("wrapped: %w", ErrGenerationNotFound)))
	assert.False(t, IsNotFoundError(ErrEmailExists))

	assert.True(t, IsDuplicateError(ErrEmailExists))
	assert.False(t, IsDuplicateError(ErrNotFound))
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStoreError("generation", "create", "failed to insert generation", cause)

	assert.Equal(t, "create operation on generation failed: failed to insert generation: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewStoreError("user", "get", "missing", nil)
	assert.Equal(t, "get operation on user failed: missing", bare.Error())
}
