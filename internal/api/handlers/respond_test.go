package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRespondError_CarriesDomainCode(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondConflict(rec, CodeSlotUnavailable, "запрошенное окно недоступно")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeError(t, rec)
	assert.Equal(t, "slot_unavailable", resp.ErrorCode)
	assert.Equal(t, "запрошенное окно недоступно", resp.Message)
}

func TestRespondError_CodesDistinguishConflicts(t *testing.T) {
	// Два разных конфликта различимы по errorCode при одинаковом статусе
	taken := httptest.NewRecorder()
	RespondConflict(taken, CodeSlotUnavailable, "окно занято")

	exists := httptest.NewRecorder()
	RespondConflict(exists, CodeAppointmentAlreadyExists, "визит уже существует")

	assert.Equal(t, taken.Code, exists.Code)
	assert.NotEqual(t, decodeError(t, taken).ErrorCode, decodeError(t, exists).ErrorCode)
}

func TestRespondHelpers_DefaultCodes(t *testing.T) {
	tests := []struct {
		name       string
		respond    func(w http.ResponseWriter)
		wantStatus int
		wantCode   string
	}{
		{"bad request", func(w http.ResponseWriter) { RespondBadRequest(w, "m") }, http.StatusBadRequest, "invalid_input"},
		{"validation", func(w http.ResponseWriter) { RespondValidationError(w, CodeInvalidPinFormat, "m") }, http.StatusBadRequest, "invalid_pin_format"},
		{"unauthorized", func(w http.ResponseWriter) { RespondUnauthorized(w, "m") }, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", func(w http.ResponseWriter) { RespondForbidden(w, "m") }, http.StatusForbidden, "forbidden"},
		{"not found", func(w http.ResponseWriter) { RespondNotFound(w, CodeAppointmentNotFound, "m") }, http.StatusNotFound, "appointment_not_found"},
		{"rate limited", func(w http.ResponseWriter) { RespondTooManyRequests(w, "m") }, http.StatusTooManyRequests, "rate_limited"},
		{"internal", func(w http.ResponseWriter) { RespondInternalError(w) }, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.respond(rec)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).ErrorCode)
		})
	}
}
