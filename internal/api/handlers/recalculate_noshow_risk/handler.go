package recalculate_noshow_risk

import (
	"errors"
	"io"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	recalculateNoShowRisk "github.com/m04kA/SMC-AppointmentService/internal/usecase/recalculate_noshow_risk"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgSystemOnly         = "операция доступна только системным вызовам"
	msgInvalidSweepParams = "некорректные параметры обхода"
)

// RecalculateRiskRequest HTTP request model, тело опционально
type RecalculateRiskRequest struct {
	HorizonHours int `json:"horizonHours,omitempty"`
	BatchSize    int `json:"batchSize,omitempty"`
}

type Handler struct {
	useCase RecalculateNoShowRiskUseCase
	logger  Logger
}

func NewHandler(useCase RecalculateNoShowRiskUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/internal/appointments/recalculate-risk
// Вызывается планировщиком, чтобы пересечение порогов близости окна
// (6ч/2ч) попадало в оценку риска без событий по визиту
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /internal/appointments/recalculate-risk - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())
	if role != domain.RoleSystem && role != domain.RoleOperator {
		h.logger.Warn("POST /internal/appointments/recalculate-risk - Access denied: user_id=%d, role=%s",
			userID, role)
		handlers.RespondForbidden(w, msgSystemOnly)
		return
	}

	var req RecalculateRiskRequest
	if err := handlers.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("POST /internal/appointments/recalculate-risk - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &recalculateNoShowRisk.Request{
		HorizonHours: req.HorizonHours,
		BatchSize:    req.BatchSize,
	})
	if err != nil {
		switch {
		case errors.Is(err, recalculateNoShowRisk.ErrInvalidInput):
			h.logger.Warn("POST /internal/appointments/recalculate-risk - Invalid params: horizon=%d, batch=%d",
				req.HorizonHours, req.BatchSize)
			handlers.RespondBadRequest(w, msgInvalidSweepParams)

		default:
			h.logger.Error("POST /internal/appointments/recalculate-risk - Failed: error=%v", err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /internal/appointments/recalculate-risk - Processed %d appointments", result.ProcessedCount)
	handlers.RespondJSON(w, http.StatusOK, result)
}
