package common

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const internalErrorMessage = "Internal server error"

// SendClientError sends a 400 invalid request response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Code: string(KindInvalidRequest), Message: message})
}

// SendNotFoundError sends a 404 response
func SendNotFoundError(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{Code: string(KindNotFound), Message: message})
}

// SendServerError sends a 500 without any internal detail
func SendServerError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Code: string(KindStoreFailure), Message: internalErrorMessage})
}

// StatusForKind maps an error kind to its HTTP status code.
func StatusForKind(kind ErrorKind) int {
	switch kind {
	case KindInvalidRequest, KindInsufficientStock:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// SendAppError writes err using the status of its kind. Store failures are
// reduced to a generic message.
func SendAppError(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Kind == KindStoreFailure {
		return SendServerError(c)
	}
	return c.JSON(StatusForKind(appErr.Kind), ErrorResponse{Code: string(appErr.Kind), Message: appErr.Message})
}

// ParseID parses a positive integer path parameter.
func ParseID(raw string, fieldName string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, InvalidRequest("%s is required", fieldName)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, InvalidRequest("%s must be a positive integer", fieldName)
	}
	return id, nil
}
