package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "crm-service/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// ============================================================================
// Error Classification Tests
// ============================================================================

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"echo http error", echo.NewHTTPError(http.StatusTeapot, "short and stout"), http.StatusTeapot, "short and stout"},
		{"not found sentinel", apperrors.ErrNotFound, http.StatusNotFound, "Resource not found"},
		{"wrapped not found", fmt.Errorf("load: %w", apperrors.ErrNotFound), http.StatusNotFound, "Resource not found"},
		{"invalid credentials", apperrors.InvalidCredentials(), http.StatusUnauthorized, "invalid email or password"},
		{"unauthorized", apperrors.Unauthorized("no session"), http.StatusUnauthorized, "no session"},
		{"forbidden", apperrors.Forbidden("not yours"), http.StatusForbidden, "not yours"},
		{"insufficient permissions", apperrors.ErrInsufficientPerms, http.StatusForbidden, "Insufficient permissions"},
		{"bad request", apperrors.BadRequest("bad id"), http.StatusBadRequest, "bad id"},
		{"validation", apperrors.Validation("name required"), http.StatusBadRequest, "name required"},
		{"conflict", apperrors.Conflict("taken"), http.StatusConflict, "taken"},
		{"email exists", apperrors.ErrEmailExists, http.StatusConflict, "Email already exists"},
		{"expired", apperrors.Expired("key expired"), http.StatusUnauthorized, "key expired"},
		{"revoked", apperrors.Revoked("key revoked"), http.StatusUnauthorized, "key revoked"},
		{"rate limited", apperrors.RateLimited("slow down"), http.StatusTooManyRequests, "slow down"},
		{"internal app error hides message", apperrors.InternalServer("db exploded", errors.New("boom")), http.StatusInternalServerError, msgInternalServerError},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, msgInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := classifyError(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, message)
		})
	}
}

// ============================================================================
// Error Handler Tests
// ============================================================================

func TestHTTPErrorHandler_WritesJSON(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := NewHTTPErrorHandler(zap.New(core))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/team", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "req-123")

	handler(apperrors.NotFound("member not found"), c)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "member not found", body["error"])
	assert.Equal(t, "req-123", body["request_id"])
	assert.Equal(t, 1, logs.FilterMessage("client_error").Len())
}

func TestHTTPErrorHandler_HidesInternalErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := NewHTTPErrorHandler(zap.New(core))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/api-keys", nil), rec)

	handler(errors.New("pq: connection refused"), c)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, msgInternalServerError, body["error"])
	assert.Equal(t, requestIDUnknown, body["request_id"])

	entries := logs.FilterMessage("internal_server_error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), entries[0].ContextMap()["status"])
}

func TestHTTPErrorHandler_HeadHasNoBody(t *testing.T) {
	handler := NewHTTPErrorHandler(zap.NewNop())

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodHead, "/health", nil), rec)

	handler(echo.ErrNotFound, c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHTTPErrorHandler_SkipsCommittedResponse(t *testing.T) {
	handler := NewHTTPErrorHandler(zap.NewNop())

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	require.NoError(t, c.String(http.StatusOK, "ok"))

	handler(errors.New("late failure"), c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
