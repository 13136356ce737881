package httputil_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "contactlink/pkg/domain-errors"
	"contactlink/pkg/platform/httputil"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteJSON(rec, http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":7}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	decode := func(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
		t.Helper()
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	t.Run("client errors include the description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httputil.WriteError(rec, dErrors.New(dErrors.CodeValidation, "email or phoneNumber required"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "email or phoneNumber required", body["error_description"])
	})

	t.Run("internal errors hide the description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httputil.WriteError(rec, dErrors.Wrap(errors.New("pq: relation missing"), dErrors.CodeInternal, "store failure"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("uncoded errors map to internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httputil.WriteError(rec, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal_error", decode(t, rec)["error"])
	})

	t.Run("unavailable maps to 503", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httputil.WriteError(rec, dErrors.New(dErrors.CodeUnavailable, "store unavailable"))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
