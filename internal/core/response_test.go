package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skycast/internal/types"
)

func TestJSONWritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]string{"hello": "world"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "world", resp.Data["hello"])
}

func TestErrorMapsAppErrorStatus(t *testing.T) {
	cases := []struct {
		code   types.ErrorCode
		status int
	}{
		{types.ErrCodeValidationInvalidLat, http.StatusBadRequest},
		{types.ErrCodeLocationNotFound, http.StatusNotFound},
		{types.ErrCodeLocationAmbiguous, http.StatusUnprocessableEntity},
		{types.ErrCodeUpstreamNotEntitled, http.StatusPaymentRequired},
		{types.ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},
		{types.ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{types.ErrCodeUpstreamMalformed, http.StatusBadGateway},
		{types.ErrCodeInternalUnexpected, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r = r.WithContext(types.WithRequestID(r.Context(), "req-1"))

			Error(w, r, types.NewAppError(tc.code, "boom", nil))

			assert.Equal(t, tc.status, w.Code)

			var resp APIErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(tc.code), resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestErrorHidesGenericErrorDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(w, r, errors.New("secret database password failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret database password")

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), resp.Error.Code)
}

func TestErrorUnwrapsWrappedAppError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	inner := types.NewAppError(types.ErrCodeLocationNotFound, "no data found for the requested location", nil)
	Error(w, r, fmt.Errorf("resolving location: %w", inner))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
