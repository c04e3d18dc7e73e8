package respond_reschedule

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	respondReschedule "github.com/m04kA/SMC-AppointmentService/internal/usecase/respond_reschedule"
)

const (
	msgInvalidAppointmentID = "некорректный ID визита"
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgMissingUserID        = "отсутствует ID пользователя"
	msgNotFound             = "визит не найден"
	msgForbidden            = "доступ запрещен"
	msgNotInNegotiation     = "по визиту нет запроса на перенос"
	msgSlotUnavailable      = "предложенное окно уже занято"
)

// RespondRescheduleRequest HTTP request model
type RespondRescheduleRequest struct {
	Accept bool    `json:"accept"`
	Reason *string `json:"reason,omitempty"`
}

type Handler struct {
	useCase RespondRescheduleUseCase
	logger  Logger
}

func NewHandler(useCase RespondRescheduleUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/appointments/{appointmentId}/reschedule/respond
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseInt(vars["appointmentId"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /appointments/{id}/reschedule/respond - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("PATCH /appointments/{id}/reschedule/respond - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	var req RespondRescheduleRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /appointments/{id}/reschedule/respond - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	appt, err := h.useCase.Execute(r.Context(), &respondReschedule.Request{
		AppointmentID: appointmentID,
		ActorUserID:   userID,
		ActorRole:     role,
		Accept:        req.Accept,
		Reason:        req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, respondReschedule.ErrAppointmentNotFound):
			h.logger.Warn("PATCH /appointments/{id}/reschedule/respond - Not found: appointment_id=%d",
				appointmentID)
			handlers.RespondNotFound(w, handlers.CodeAppointmentNotFound, msgNotFound)

		case errors.Is(err, respondReschedule.ErrAccessDenied):
			h.logger.Warn("PATCH /appointments/{id}/reschedule/respond - Access denied: appointment_id=%d, user_id=%d",
				appointmentID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, respondReschedule.ErrInvalidState):
			h.logger.Warn("PATCH /appointments/{id}/reschedule/respond - Not in negotiation: appointment_id=%d",
				appointmentID)
			handlers.RespondConflict(w, handlers.CodeInvalidState, msgNotInNegotiation)

		case errors.Is(err, respondReschedule.ErrSlotUnavailable):
			h.logger.Warn("PATCH /appointments/{id}/reschedule/respond - Slot unavailable: appointment_id=%d",
				appointmentID)
			handlers.RespondConflict(w, handlers.CodeSlotUnavailable, msgSlotUnavailable)

		case errors.Is(err, respondReschedule.ErrInvalidInput):
			h.logger.Warn("PATCH /appointments/{id}/reschedule/respond - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidRequestBody)

		default:
			h.logger.Error("PATCH /appointments/{id}/reschedule/respond - Failed: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /appointments/{id}/reschedule/respond - Responded: appointment_id=%d, accept=%t, status=%s",
		appointmentID, req.Accept, appt.Status)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromAppointment(appt))
}
