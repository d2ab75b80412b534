package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petmatch/petmatch/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{"validation", apperror.ValidationFailed("name", "name is required"), http.StatusBadRequest, "validation_error", "name is required"},
		{"conflict", apperror.ConflictMessage("Pet is already adopted"), http.StatusBadRequest, "conflict", "Pet is already adopted"},
		{"not found", apperror.NotFoundMessage("Pet not found"), http.StatusNotFound, "not_found", "Pet not found"},
		{"wrapped not found", fmt.Errorf("loading: %w", apperror.NotFoundMessage("User not found")), http.StatusNotFound, "not_found", "User not found"},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden, "forbidden", "no"},
		{"unauthorized", apperror.Unauthorized("log in"), http.StatusUnauthorized, "unauthorized", "log in"},
		{"transient", apperror.Transient("listing pets", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "service_unavailable", ""},
		{"unknown", errors.New("pq: relation \"pets\" does not exist"), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, httptest.NewRequest(http.MethodGet, "/x", nil), slog.New(slog.NewTextHandler(io.Discard, nil)), tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var body ErrorResponse
			require.NoError(t, jsonDecode(rr.Body, &body))
			assert.Equal(t, tt.wantType, body.Error)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body.Message)
			}
			assert.NotContains(t, rr.Body.String(), "relation")
			assert.NotContains(t, rr.Body.String(), "dial tcp")
		})
	}
}

func TestWriteError_LogsServerErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	writeError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/pets", nil), logger, errors.New("disk on fire"))
	assert.Contains(t, buf.String(), "disk on fire")
	assert.Contains(t, buf.String(), "path=/api/pets")

	buf.Reset()
	writeError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), logger, apperror.NotFoundMessage("gone"))
	assert.Empty(t, buf.String(), "client errors are not logged here")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Buddy"}`))
		require.NoError(t, decodeJSON(httptest.NewRecorder(), r, &dst))
		assert.Equal(t, "Buddy", dst.Name)
	})

	t.Run("malformed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		require.ErrorIs(t, err, apperror.ErrValidation)
		assert.Contains(t, err.Error(), "bytes or less")
	})
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHandleHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rr := httptest.NewRecorder()
	HandleHealth(fakePinger{}, logger)(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	HandleHealth(fakePinger{err: errors.New("down")}, logger)(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rr.Body.String())
}

func jsonDecode(r io.Reader, dst any) error {
	return json.NewDecoder(r).Decode(dst)
}
