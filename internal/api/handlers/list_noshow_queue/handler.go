package list_noshow_queue

import (
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgOperatorOnly  = "очередь доступна только операторам"
	msgInvalidFilter = "некорректные параметры фильтра"
)

type Handler struct {
	service NoShowService
	logger  Logger
}

func NewHandler(service NoShowService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/noshow-queue
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /noshow-queue - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())
	if role != domain.RoleOperator && role != domain.RoleSystem {
		h.logger.Warn("GET /noshow-queue - Access denied: user_id=%d, role=%s", userID, role)
		handlers.RespondForbidden(w, msgOperatorOnly)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.logger.Warn("GET /noshow-queue - Invalid filter: %v", err)
		handlers.RespondBadRequest(w, msgInvalidFilter)
		return
	}

	items, err := h.service.ListQueue(r.Context(), filter)
	if err != nil {
		h.logger.Error("GET /noshow-queue - Failed: error=%v", err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /noshow-queue - Returned %d items: operator_id=%d", len(items), userID)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromQueueItems(items))
}

func parseFilter(r *http.Request) (domain.NoShowQueueFilter, error) {
	var filter domain.NoShowQueueFilter
	query := r.URL.Query()

	if statusStr := query.Get("status"); statusStr != "" {
		status := domain.NoShowQueueItemStatus(statusStr)
		filter.Status = &status
	}
	if riskStr := query.Get("riskLevel"); riskStr != "" {
		risk := domain.RiskLevel(riskStr)
		filter.RiskLevel = &risk
	}
	if city := query.Get("city"); city != "" {
		filter.City = &city
	}
	if category := query.Get("category"); category != "" {
		filter.Category = &category
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return filter, err
		}
		filter.Offset = offset
	}

	return filter, nil
}
