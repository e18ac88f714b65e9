package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesson-system/internal/apierr"
	"lesson-system/pkg/logger"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestError_APIError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, logger.Nop(), fmt.Errorf("submit: %w", apierr.Conflict("attempt already completed")))

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "attempt already completed", env.Error.Message)
	assert.Equal(t, apierr.CodeConflict, env.Error.Code)
}

func TestError_PlainErrorIsHidden(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, logger.Nop(), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "internal server error", env.Error.Message)
	assert.Equal(t, apierr.CodeInternal, env.Error.Code)
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]bool{"success": true})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}
