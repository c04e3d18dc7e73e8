package expire_appointments

import (
	"errors"
	"io"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	expireAppointments "github.com/m04kA/SMC-AppointmentService/internal/usecase/expire_appointments"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgSystemOnly         = "операция доступна только системным вызовам"
	msgInvalidBatchSize   = "некорректный размер пачки"
)

// ExpireAppointmentsRequest HTTP request model, тело опционально
type ExpireAppointmentsRequest struct {
	BatchSize int `json:"batchSize,omitempty"`
}

type Handler struct {
	useCase ExpireAppointmentsUseCase
	logger  Logger
}

func NewHandler(useCase ExpireAppointmentsUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/internal/appointments/expire
// Вызывается планировщиком, дедлайны лежат в данных - повторный вызов
// с тем же состоянием вернет processedCount=0
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /internal/appointments/expire - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())
	if role != domain.RoleSystem && role != domain.RoleOperator {
		h.logger.Warn("POST /internal/appointments/expire - Access denied: user_id=%d, role=%s", userID, role)
		handlers.RespondForbidden(w, msgSystemOnly)
		return
	}

	var req ExpireAppointmentsRequest
	if err := handlers.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("POST /internal/appointments/expire - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &expireAppointments.Request{BatchSize: req.BatchSize})
	if err != nil {
		switch {
		case errors.Is(err, expireAppointments.ErrInvalidInput):
			h.logger.Warn("POST /internal/appointments/expire - Invalid batch size: %d", req.BatchSize)
			handlers.RespondBadRequest(w, msgInvalidBatchSize)

		default:
			h.logger.Error("POST /internal/appointments/expire - Failed: error=%v", err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /internal/appointments/expire - Processed %d appointments", result.ProcessedCount)
	handlers.RespondJSON(w, http.StatusOK, result)
}
