package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsHTTPError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewHTTPError(http.StatusBadRequest, codeInvalidRequest, "bad body", context.Canceled))
	got := asHTTPError(wrapped)
	require.Equal(t, http.StatusBadRequest, got.Status)
	require.Equal(t, codeInvalidRequest, got.Code)
	require.ErrorIs(t, got, context.Canceled)

	hidden := asHTTPError(errors.New("db password leaked"))
	require.Equal(t, http.StatusInternalServerError, hidden.Status)
	require.Equal(t, codeInternal, hidden.Code)
	require.Equal(t, "something went wrong", hidden.Message)
}
