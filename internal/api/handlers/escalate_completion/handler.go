package escalate_completion

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
	msgMissingUserID        = "отсутствует ID пользователя"
	msgNotFound             = "визит не найден"
	msgTermNotFound         = "условия завершения не найдены"
	msgForbidden            = "доступ запрещен"
	msgInvalidState         = "эскалировать можно только оспоренное завершение"
)

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

// Handle POST /api/v1/appointments/{appointmentId}/completion/escalate
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseInt(vars["appointmentId"], 10, 64)
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/completion/escalate - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/completion/escalate - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	term, err := h.service.Escalate(r.Context(), appointmentID, completion.Actor{UserID: userID, Role: role})
	if err != nil {
		switch {
		case errors.Is(err, completion.ErrAppointmentNotFound):
			h.logger.Warn("POST /appointments/{id}/completion/escalate - Appointment not found: appointment_id=%d",
				appointmentID)
			handlers.RespondNotFound(w, handlers.CodeAppointmentNotFound, msgNotFound)

		case errors.Is(err, completion.ErrTermNotFound):
			h.logger.Warn("POST /appointments/{id}/completion/escalate - Term not found: appointment_id=%d",
				appointmentID)
			handlers.RespondNotFound(w, handlers.CodeCompletionTermNotFound, msgTermNotFound)

		case errors.Is(err, completion.ErrAccessDenied):
			h.logger.Warn("POST /appointments/{id}/completion/escalate - Access denied: appointment_id=%d, user_id=%d",
				appointmentID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, completion.ErrInvalidState):
			h.logger.Warn("POST /appointments/{id}/completion/escalate - Invalid state: appointment_id=%d",
				appointmentID)
			handlers.RespondConflict(w, handlers.CodeInvalidState, msgInvalidState)

		default:
			h.logger.Error("POST /appointments/{id}/completion/escalate - Failed: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/completion/escalate - Escalated: appointment_id=%d, operator_id=%d",
		appointmentID, userID)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromCompletionTerm(term))
}
