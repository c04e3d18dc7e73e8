package generate_completion_pin

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

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
	msgForbidden            = "доступ запрещен"
	msgInvalidState         = "PIN можно выпустить только для визита в работе"
)

// GeneratePinRequest HTTP request model, тело опционально
type GeneratePinRequest struct {
	Summary *string `json:"summary,omitempty"`
}

// GeneratePinResponse HTTP response model
// PIN возвращается провайдеру один раз, в хранилище остается только хеш
type GeneratePinResponse struct {
	Pin          string `json:"pin"`
	ExpiresAtUTC string `json:"expiresAtUtc"`
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

// Handle POST /api/v1/appointments/{appointmentId}/completion/pin
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseInt(vars["appointmentId"], 10, 64)
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/completion/pin - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/completion/pin - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	var req GeneratePinRequest
	if err := handlers.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("POST /appointments/{id}/completion/pin - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.service.GeneratePin(r.Context(), appointmentID,
		completion.Actor{UserID: userID, Role: role}, req.Summary)
	if err != nil {
		switch {
		case errors.Is(err, completion.ErrAppointmentNotFound):
			h.logger.Warn("POST /appointments/{id}/completion/pin - Not found: appointment_id=%d", appointmentID)
			handlers.RespondNotFound(w, handlers.CodeAppointmentNotFound, msgNotFound)

		case errors.Is(err, completion.ErrAccessDenied):
			h.logger.Warn("POST /appointments/{id}/completion/pin - Access denied: appointment_id=%d, user_id=%d",
				appointmentID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, completion.ErrInvalidState):
			h.logger.Warn("POST /appointments/{id}/completion/pin - Invalid state: appointment_id=%d", appointmentID)
			handlers.RespondConflict(w, handlers.CodeInvalidState, msgInvalidState)

		default:
			h.logger.Error("POST /appointments/{id}/completion/pin - Failed: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/completion/pin - PIN generated: appointment_id=%d, provider_id=%d",
		appointmentID, userID)
	handlers.RespondJSON(w, http.StatusCreated, GeneratePinResponse{
		Pin:          result.Pin,
		ExpiresAtUTC: result.ExpiresAtUTC.Format(time.RFC3339),
	})
}
