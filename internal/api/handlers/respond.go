package handlers

import (
	"encoding/json"
	"net/http"
)

// Словарь кодов поля errorCode. Клиенты матчатся по коду, а не по
// HTTP статусу, поэтому коды стабильны и не зависят от текста сообщения
const (
	CodeInvalidInput            = "invalid_input"
	CodeInvalidPin              = "invalid_pin"
	CodeInvalidPinFormat        = "invalid_pin_format"
	CodeInvalidAcceptanceMethod = "invalid_acceptance_method"
	CodeSignatureRequired       = "signature_required"
	CodeContestReasonRequired   = "contest_reason_required"

	CodeRequestNotFound        = "request_not_found"
	CodeProviderNotFound       = "provider_not_found"
	CodeAppointmentNotFound    = "appointment_not_found"
	CodeCompletionTermNotFound = "completion_term_not_found"
	CodeQueueItemNotFound      = "queue_item_not_found"

	CodeAppointmentAlreadyExists = "appointment_already_exists"
	CodeSlotUnavailable          = "slot_unavailable"
	CodeInvalidState             = "invalid_state"
	CodePinLocked                = "pin_locked"
	CodePinExpired               = "pin_expired"

	CodeForbidden    = "forbidden"
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
)

// ErrorResponse единый формат ошибки API
type ErrorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// DecodeJSON декодирует тело запроса в v
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// RespondJSON пишет payload как JSON с указанным статусом
// nil payload дает пустое тело
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// RespondError пишет ошибку в формате {errorCode, message}
func RespondError(w http.ResponseWriter, status int, errorCode, message string) {
	RespondJSON(w, status, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
	})
}

// RespondBadRequest 400 с общим кодом invalid_input
func RespondBadRequest(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusBadRequest, CodeInvalidInput, message)
}

// RespondValidationError 400 с конкретным кодом валидации
func RespondValidationError(w http.ResponseWriter, errorCode, message string) {
	RespondError(w, http.StatusBadRequest, errorCode, message)
}

// RespondUnauthorized 401
func RespondUnauthorized(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// RespondForbidden 403
func RespondForbidden(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusForbidden, CodeForbidden, message)
}

// RespondNotFound 404, код указывает какая именно сущность не найдена
func RespondNotFound(w http.ResponseWriter, errorCode, message string) {
	RespondError(w, http.StatusNotFound, errorCode, message)
}

// RespondConflict 409, код различает виды конфликтов
func RespondConflict(w http.ResponseWriter, errorCode, message string) {
	RespondError(w, http.StatusConflict, errorCode, message)
}

// RespondTooManyRequests 429
func RespondTooManyRequests(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusTooManyRequests, CodeRateLimited, message)
}

// RespondInternalError 500
func RespondInternalError(w http.ResponseWriter) {
	RespondError(w, http.StatusInternalServerError, CodeInternal, "внутренняя ошибка сервера")
}
