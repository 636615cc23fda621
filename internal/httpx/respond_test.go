package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Invalidf("bad"), http.StatusBadRequest},
		{fmt.Errorf("order 7: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("order.delete: %w", domain.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("order 7: %w", domain.ErrConflict), http.StatusConflict},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), tt.err.Error())
	}
}

func TestWriteFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("client error keeps the message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteFailure(rec, logger, fmt.Errorf("order 7: %w", domain.ErrNotFound), "failed")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "order 7: not found", body["error"])
	})

	t.Run("server error hides the cause", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteFailure(rec, logger, errors.New("pq: password authentication failed"), "failed")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	})
}
