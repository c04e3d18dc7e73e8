package confirm_completion

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/completion"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type completionServiceStub struct {
	term *domain.CompletionTerm
	err  error
}

func (s *completionServiceStub) Confirm(_ context.Context, _ completion.ConfirmInput) (*domain.CompletionTerm, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.term, nil
}

func doRequest(t *testing.T, svc *completionServiceStub, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/42/completion/confirm", bytes.NewReader(payload))
	req.Header.Set("X-User-ID", "100")
	req.Header.Set("X-User-Role", "client")
	req = mux.SetURLVars(req, map[string]string{"appointmentId": "42"})

	rec := httptest.NewRecorder()
	handler := NewHandler(svc, nopLogger{})
	middleware.Auth(http.HandlerFunc(handler.Handle)).ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var resp handlers.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHandle_Success(t *testing.T) {
	svc := &completionServiceStub{term: &domain.CompletionTerm{
		ID:                   1,
		ServiceAppointmentID: 42,
		ClientID:             100,
		ProviderID:           200,
		Status:               domain.CompletionAccepted,
	}}

	rec := doRequest(t, svc, ConfirmCompletionRequest{Method: "pin", Pin: "123456"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.CompletionTermResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(42), resp.ServiceAppointmentID)
	assert.Equal(t, string(domain.CompletionAccepted), resp.Status)
}

func TestHandle_ErrorCodeTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"appointment not found", completion.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
		{"term not found", completion.ErrTermNotFound, http.StatusNotFound, "completion_term_not_found"},
		{"access denied", completion.ErrAccessDenied, http.StatusForbidden, "forbidden"},
		{"invalid state", completion.ErrInvalidState, http.StatusConflict, "invalid_state"},
		{"invalid method", completion.ErrInvalidAcceptanceMethod, http.StatusBadRequest, "invalid_acceptance_method"},
		{"malformed pin", completion.ErrInvalidPinFormat, http.StatusBadRequest, "invalid_pin_format"},
		{"wrong pin", completion.ErrInvalidPin, http.StatusBadRequest, "invalid_pin"},
		{"pin expired", completion.ErrPinExpired, http.StatusConflict, "pin_expired"},
		{"pin locked", completion.ErrPinLocked, http.StatusConflict, "pin_locked"},
		{"signature required", completion.ErrSignatureRequired, http.StatusBadRequest, "signature_required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, &completionServiceStub{err: tt.serviceErr},
				ConfirmCompletionRequest{Method: "pin", Pin: "123456"})

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).ErrorCode)
		})
	}
}
