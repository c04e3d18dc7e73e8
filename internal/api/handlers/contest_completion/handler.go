package contest_completion

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
	msgInvalidState         = "оспаривание недоступно в текущем статусе"
	msgReasonRequired       = "причина оспаривания обязательна"
)

// ContestCompletionRequest HTTP request model
type ContestCompletionRequest struct {
	Reason string `json:"reason"`
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

// Handle POST /api/v1/appointments/{appointmentId}/completion/contest
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseInt(vars["appointmentId"], 10, 64)
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/completion/contest - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/completion/contest - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	var req ContestCompletionRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/completion/contest - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	term, err := h.service.Contest(r.Context(), appointmentID,
		completion.Actor{UserID: userID, Role: role}, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, completion.ErrAppointmentNotFound):
			h.logger.Warn("POST /appointments/{id}/completion/contest - Appointment not found: appointment_id=%d",
				appointmentID)
			handlers.RespondNotFound(w, handlers.CodeAppointmentNotFound, msgNotFound)

		case errors.Is(err, completion.ErrTermNotFound):
			h.logger.Warn("POST /appointments/{id}/completion/contest - Term not found: appointment_id=%d",
				appointmentID)
			handlers.RespondNotFound(w, handlers.CodeCompletionTermNotFound, msgTermNotFound)

		case errors.Is(err, completion.ErrAccessDenied):
			h.logger.Warn("POST /appointments/{id}/completion/contest - Access denied: appointment_id=%d, user_id=%d",
				appointmentID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, completion.ErrInvalidState):
			h.logger.Warn("POST /appointments/{id}/completion/contest - Invalid state: appointment_id=%d",
				appointmentID)
			handlers.RespondConflict(w, handlers.CodeInvalidState, msgInvalidState)

		case errors.Is(err, completion.ErrContestReasonRequired):
			h.logger.Warn("POST /appointments/{id}/completion/contest - Missing reason: appointment_id=%d",
				appointmentID)
			handlers.RespondValidationError(w, handlers.CodeContestReasonRequired, msgReasonRequired)

		default:
			h.logger.Error("POST /appointments/{id}/completion/contest - Failed: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/completion/contest - Contested: appointment_id=%d, client_id=%d",
		appointmentID, userID)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromCompletionTerm(term))
}
