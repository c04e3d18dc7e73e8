package confirm_completion

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/service/completion"
)

const (
	msgInvalidAppointmentID = "некорректный ID визита"
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgMissingUserID        = "отсутствует ID пользователя"
	msgNotFound             = "визит не найден"
	msgTermNotFound         = "условия завершения не найдены"
	msgForbidden            = "доступ запрещен"
	msgInvalidState         = "подтверждение недоступно в текущем статусе"
	msgInvalidMethod        = "некорректный способ подтверждения"
	msgInvalidPin           = "неверный PIN"
	msgInvalidPinFormat     = "PIN должен состоять из 6 цифр"
	msgPinExpired           = "срок действия PIN истек"
	msgPinLocked            = "PIN заблокирован после превышения числа попыток"
	msgSignatureRequired    = "для подтверждения подписью требуется имя"
)

// ConfirmCompletionRequest HTTP request model
type ConfirmCompletionRequest struct {
	Method        string `json:"method"` // "pin" | "signature"
	Pin           string `json:"pin,omitempty"`
	SignatureName string `json:"signatureName,omitempty"`
}

type Handler struct {
	service CompletionService
	logger  Logger
}

func NewHandler(service CompletionService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments/{appointmentId}/completion/confirm
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseInt(vars["appointmentId"], 10, 64)
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/completion/confirm - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/completion/confirm - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	var req ConfirmCompletionRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/completion/confirm - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	term, err := h.service.Confirm(r.Context(), completion.ConfirmInput{
		AppointmentID: appointmentID,
		Actor:         completion.Actor{UserID: userID, Role: role},
		Method:        req.Method,
		Pin:           req.Pin,
		SignatureName: req.SignatureName,
	})
	if err != nil {
		switch {
		case errors.Is(err, completion.ErrAppointmentNotFound):
			h.logger.Warn("POST /appointments/{id}/completion/confirm - Appointment not found: appointment_id=%d",
				appointmentID)
			handlers.RespondNotFound(w, handlers.CodeAppointmentNotFound, msgNotFound)

		case errors.Is(err, completion.ErrTermNotFound):
			h.logger.Warn("POST /appointments/{id}/completion/confirm - Term not found: appointment_id=%d",
				appointmentID)
			handlers.RespondNotFound(w, handlers.CodeCompletionTermNotFound, msgTermNotFound)

		case errors.Is(err, completion.ErrAccessDenied):
			h.logger.Warn("POST /appointments/{id}/completion/confirm - Access denied: appointment_id=%d, user_id=%d",
				appointmentID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, completion.ErrInvalidState):
			h.logger.Warn("POST /appointments/{id}/completion/confirm - Invalid state: appointment_id=%d",
				appointmentID)
			handlers.RespondConflict(w, handlers.CodeInvalidState, msgInvalidState)

		case errors.Is(err, completion.ErrInvalidAcceptanceMethod):
			h.logger.Warn("POST /appointments/{id}/completion/confirm - Invalid method: %s", req.Method)
			handlers.RespondValidationError(w, handlers.CodeInvalidAcceptanceMethod, msgInvalidMethod)

		case errors.Is(err, completion.ErrInvalidPinFormat):
			h.logger.Warn("POST /appointments/{id}/completion/confirm - Malformed PIN: appointment_id=%d",
				appointmentID)
			handlers.RespondValidationError(w, handlers.CodeInvalidPinFormat, msgInvalidPinFormat)

		case errors.Is(err, completion.ErrInvalidPin):
			h.logger.Warn("POST /appointments/{id}/completion/confirm - Invalid PIN: appointment_id=%d",
				appointmentID)
			handlers.RespondValidationError(w, handlers.CodeInvalidPin, msgInvalidPin)

		case errors.Is(err, completion.ErrPinExpired):
			h.logger.Warn("POST /appointments/{id}/completion/confirm - PIN expired: appointment_id=%d",
				appointmentID)
			handlers.RespondConflict(w, handlers.CodePinExpired, msgPinExpired)

		case errors.Is(err, completion.ErrPinLocked):
			h.logger.Warn("POST /appointments/{id}/completion/confirm - PIN locked: appointment_id=%d",
				appointmentID)
			handlers.RespondConflict(w, handlers.CodePinLocked, msgPinLocked)

		case errors.Is(err, completion.ErrSignatureRequired):
			h.logger.Warn("POST /appointments/{id}/completion/confirm - Signature name missing: appointment_id=%d",
				appointmentID)
			handlers.RespondValidationError(w, handlers.CodeSignatureRequired, msgSignatureRequired)

		default:
			h.logger.Error("POST /appointments/{id}/completion/confirm - Failed: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/completion/confirm - Completed: appointment_id=%d, method=%s",
		appointmentID, req.Method)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromCompletionTerm(term))
}
