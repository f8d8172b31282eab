package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"qbridge/internal/domain"
	"qbridge/internal/handler"
)

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"slot", domain.NewSlotError(domain.SlotFrom), http.StatusBadRequest, "CONNECTION_REQUIRED"},
		{"not found", domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"unknown entity", domain.ErrUnknownEntityType, http.StatusBadRequest, "UNKNOWN_ENTITY_TYPE"},
		{"invalid state", domain.ErrInvalidAuthState, http.StatusBadRequest, "INVALID_AUTH_STATE"},
		{"missing code", domain.ErrMissingAuthCode, http.StatusBadRequest, "MISSING_AUTH_CODE"},
		{"public url", domain.ErrPublicURLUnset, http.StatusServiceUnavailable, "PUBLIC_URL_UNSET"},
		{"retries", domain.ErrRetriesExhausted, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, _ := handler.MapDomainError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantCode, code)
		})
	}
}

func TestMapDomainError_WrappedSlotError(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), domain.NewSlotError(domain.SlotTo))
	status, code, message := handler.MapDomainError(wrapped)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "CONNECTION_REQUIRED", code)
	assert.Contains(t, message, "to company not connected")
}

func TestMapDomainError_HidesInternalDetail(t *testing.T) {
	_, _, message := handler.MapDomainError(errors.New("pq: secret detail"))
	assert.NotContains(t, message, "secret")
}
