package handler

import (
	"errors"
	"net/http"

	apperrors "crm-service/pkg/errors"

	"github.com/labstack/echo/v4"
)

var errTrailingData = errors.New("unexpected data after JSON document")

// MapToPublicError maps internal errors to public-facing HTTP status codes and messages
func MapToPublicError(err error) (int, string) {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, apperrors.ErrEmailExists):
		return http.StatusConflict, msgEmailAlreadyExists
	case errors.Is(err, apperrors.ErrValidation) && errors.As(err, &appErr):
		return http.StatusBadRequest, appErr.Message
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "resource conflict"
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, "rate limit exceeded"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondWithMappedError responds with a mapped error, preventing information disclosure
func RespondWithMappedError(c echo.Context, err error) error {
	status, msg := MapToPublicError(err)
	return respondError(c, status, msg)
}

// SafeErrorResponse logs err and answers with a fixed status and message
func SafeErrorResponse(c echo.Context, err error, safeStatus int, safeMessage string) error {
	c.Logger().Errorf("error (masked as %d): %v", safeStatus, err)
	return respondError(c, safeStatus, safeMessage)
}
