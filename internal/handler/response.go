package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qbridge/internal/domain"
)

// APIResponse is the standard envelope for all JSON endpoints.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    any       `json:"meta,omitempty"`
}

// APIError carries a stable machine code alongside the human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK writes a success envelope with the given payload.
func RespondOK(c *gin.Context, status int, data any) {
	c.JSON(status, APIResponse{Success: true, Data: data})
}

// RespondError writes an error envelope.
func RespondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, APIResponse{Success: false, Error: &APIError{Code: code, Message: message}})
}

// MapDomainError translates domain sentinel errors into HTTP status codes and
// stable error codes. Unrecognized errors map to a generic 500.
func MapDomainError(err error) (int, string, string) {
	var slotErr *domain.SlotError
	switch {
	case errors.As(err, &slotErr):
		return http.StatusBadRequest, "CONNECTION_REQUIRED", slotErr.Error()
	case errors.Is(err, domain.ErrConnectionRequired):
		return http.StatusBadRequest, "CONNECTION_REQUIRED", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrUnknownEntityType):
		return http.StatusBadRequest, "UNKNOWN_ENTITY_TYPE", err.Error()
	case errors.Is(err, domain.ErrInvalidAuthState):
		return http.StatusBadRequest, "INVALID_AUTH_STATE", err.Error()
	case errors.Is(err, domain.ErrMissingAuthCode):
		return http.StatusBadRequest, "MISSING_AUTH_CODE", err.Error()
	case errors.Is(err, domain.ErrPublicURLUnset):
		return http.StatusServiceUnavailable, "PUBLIC_URL_UNSET", err.Error()
	case errors.Is(err, domain.ErrRetriesExhausted):
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", err.Error()
	case errors.Is(err, domain.ErrTaxMasterUnloaded):
		return http.StatusServiceUnavailable, "TAX_MASTER_UNLOADED", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred"
	}
}

// HandleError maps the error and writes the envelope, logging server-side
// failures with the request id for correlation.
func HandleError(c *gin.Context, log *logrus.Logger, err error) {
	status, code, message := MapDomainError(err)
	if status >= http.StatusInternalServerError {
		requestID, _ := c.Get("request_id")
		log.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       c.Request.URL.Path,
		}).WithError(err).Error("request failed")
	}
	RespondError(c, status, code, message)
}
