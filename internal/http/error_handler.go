package http

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "crm-service/pkg/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	msgInternalServerError = "Internal server error"
	requestIDUnknown       = "unknown"
)

// NewHTTPErrorHandler handles all errors returned by handlers and middleware.
// It maps sentinel errors to HTTP status codes, hides internal errors and
// logs every error with its request id.
func NewHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := classifyError(err)

		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = requestIDUnknown
		}

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.Int("status", code),
			zap.Error(err),
		}
		if code >= http.StatusInternalServerError {
			log.Error("internal_server_error", fields...)
			message = msgInternalServerError
		} else {
			log.Debug("client_error", fields...)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]any{
				"error":      message,
				"request_id": requestID,
			})
		}
		if err != nil {
			log.Error("failed to write error response", zap.Error(err))
		}
	}
}

func classifyError(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, fmt.Sprintf("%v", httpErr.Message)
	}

	code := http.StatusInternalServerError
	message := msgInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = http.StatusNotFound, "Resource not found"
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		code, message = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, apperrors.ErrUnauthorized):
		code, message = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		code, message = http.StatusForbidden, "Forbidden"
	case errors.Is(err, apperrors.ErrInsufficientPerms):
		code, message = http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, apperrors.ErrBadRequest):
		code, message = http.StatusBadRequest, "Bad request"
	case errors.Is(err, apperrors.ErrValidation):
		code, message = http.StatusBadRequest, "Validation error"
	case errors.Is(err, apperrors.ErrEmailExists):
		code, message = http.StatusConflict, "Email already exists"
	case errors.Is(err, apperrors.ErrConflict):
		code, message = http.StatusConflict, "Resource already exists"
	case errors.Is(err, apperrors.ErrExpired):
		code, message = http.StatusUnauthorized, "Resource expired"
	case errors.Is(err, apperrors.ErrRevoked):
		code, message = http.StatusUnauthorized, "Resource revoked"
	case errors.Is(err, apperrors.ErrRateLimited):
		code, message = http.StatusTooManyRequests, "Rate limit exceeded"
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && code < http.StatusInternalServerError {
		message = appErr.Message
	}
	return code, message
}
