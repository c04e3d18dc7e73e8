package create_appointment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	createAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_appointment"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidWindow      = "некорректное окно визита, ожидается RFC3339"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgOnlyClient         = "создавать визит может только клиент"
	msgRequestNotFound    = "заявка на услугу не найдена"
	msgProviderNotFound   = "у заявки нет принятого предложения этого исполнителя"
	msgForbidden          = "доступ запрещен"
	msgAlreadyExists      = "по заявке уже есть активный визит с этим исполнителем"
	msgSlotUnavailable    = "запрошенное окно недоступно"
	msgInvalidInput       = "некорректные данные визита"
)

type Handler struct {
	useCase CreateAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase CreateAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())
	if role != domain.RoleClient {
		h.logger.Warn("POST /appointments - Role %s cannot create appointments: user_id=%d", role, userID)
		handlers.RespondForbidden(w, msgOnlyClient)
		return
	}

	var req CreateAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(userID)
	if err != nil {
		h.logger.Warn("POST /appointments - Failed to parse window: %v", err)
		handlers.RespondBadRequest(w, msgInvalidWindow)
		return
	}

	appt, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, createAppointment.ErrRequestNotFound):
			h.logger.Warn("POST /appointments - Request not found: request_id=%d", req.ServiceRequestID)
			handlers.RespondNotFound(w, handlers.CodeRequestNotFound, msgRequestNotFound)

		case errors.Is(err, createAppointment.ErrProviderNotFound):
			h.logger.Warn("POST /appointments - No accepted proposal: request_id=%d, provider_id=%d",
				req.ServiceRequestID, req.ProviderID)
			handlers.RespondNotFound(w, handlers.CodeProviderNotFound, msgProviderNotFound)

		case errors.Is(err, createAppointment.ErrAccessDenied):
			h.logger.Warn("POST /appointments - Access denied: request_id=%d, user_id=%d",
				req.ServiceRequestID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, createAppointment.ErrAppointmentAlreadyExists):
			h.logger.Warn("POST /appointments - Active appointment exists: request_id=%d, provider_id=%d",
				req.ServiceRequestID, req.ProviderID)
			handlers.RespondConflict(w, handlers.CodeAppointmentAlreadyExists, msgAlreadyExists)

		case errors.Is(err, createAppointment.ErrSlotUnavailable):
			h.logger.Warn("POST /appointments - Slot unavailable: provider_id=%d", req.ProviderID)
			handlers.RespondConflict(w, handlers.CodeSlotUnavailable, msgSlotUnavailable)

		case errors.Is(err, createAppointment.ErrInvalidInput),
			errors.Is(err, createAppointment.ErrInvalidTimeRange):
			h.logger.Warn("POST /appointments - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		default:
			h.logger.Error("POST /appointments - Failed to create appointment: user_id=%d, error=%v", userID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments - Appointment created: appointment_id=%d, client_id=%d", appt.ID, userID)
	handlers.RespondJSON(w, http.StatusCreated, handlers.FromAppointment(appt))
}
