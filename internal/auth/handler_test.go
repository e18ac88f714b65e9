package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesson-system/pkg/logger"
)

func post(t *testing.T, fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestHandler_LoginRefreshLogout(t *testing.T) {
	svc, _ := newTestService(t, "test-secret")
	h := NewHandler(svc, logger.Nop())

	rec := post(t, h.Login, `{"identifier":"ana","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))

	rec = post(t, h.Refresh, `{"refreshToken":"`+pair.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var next TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))

	rec = post(t, h.Refresh, `{"refreshToken":"`+pair.RefreshToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"revoked_token"`)

	rec = post(t, h.Logout, `{"refreshToken":"`+next.RefreshToken+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestHandler_Validation(t *testing.T) {
	svc, _ := newTestService(t, "test-secret")
	h := NewHandler(svc, logger.Nop())

	assert.Equal(t, http.StatusBadRequest, post(t, h.Login, `{"identifier":"ana"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, h.Login, `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, h.Refresh, ``).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, h.Register, `{"username":"cy","email":"nope","password":"x"}`).Code)
}

func TestHandler_Register(t *testing.T) {
	svc, _ := newTestService(t, "test-secret")
	h := NewHandler(svc, logger.Nop())

	rec := post(t, h.Register, `{"username":"ben","email":"ben@example.com","password":"another-pass"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "another-pass")

	rec = post(t, h.Register, `{"username":"ben","email":"ben2@example.com","password":"another-pass"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
