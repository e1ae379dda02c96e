package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NewInvalidInput("bad"), http.StatusBadRequest},
		{NewNotFound("missing"), http.StatusNotFound},
		{NewForbiddenTransition("nope"), http.StatusConflict},
		{NewStorageError(errors.New("disk"), "save"), http.StatusInternalServerError},
		{NewInterrupted("restart"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		var svcErr *ServiceError
		assert.True(t, errors.As(tt.err, &svcErr))
		assert.Equal(t, tt.status, svcErr.HTTPStatus())
	}
}

func TestKindOfWrappedError(t *testing.T) {
	inner := NewNotFound("job %s not found", "abc")
	wrapped := fmt.Errorf("lookup: %w", inner)

	assert.Equal(t, ErrNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, ErrNotFound))
	assert.False(t, IsKind(wrapped, ErrInvalidInput))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, ErrStorage, KindOf(errors.New("opaque")))
}

func TestStorageErrorUnwraps(t *testing.T) {
	cause := errors.New("value log full")
	err := NewStorageError(cause, "append result")
	assert.ErrorIs(t, err, cause)
}
