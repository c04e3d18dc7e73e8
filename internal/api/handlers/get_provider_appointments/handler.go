package get_provider_appointments

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

const (
	msgInvalidProviderID = "некорректный ID исполнителя"
	msgMissingUserID     = "отсутствует ID пользователя"
	msgForbidden         = "доступ запрещен"
	msgInvalidFilter     = "некорректные параметры фильтра"
)

type Handler struct {
	service AppointmentService
	logger  Logger
}

func NewHandler(service AppointmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/providers/{providerId}/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	providerID, err := strconv.ParseInt(vars["providerId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /providers/{id}/appointments - Invalid provider ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidProviderID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /providers/{id}/appointments - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	// Исполнитель видит только свой календарь, оператору доступны все
	if role != domain.RoleOperator && role != domain.RoleSystem && userID != providerID {
		h.logger.Warn("GET /providers/{id}/appointments - Access denied: provider_id=%d, user_id=%d",
			providerID, userID)
		handlers.RespondForbidden(w, msgForbidden)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.logger.Warn("GET /providers/{id}/appointments - Invalid filter: %v", err)
		handlers.RespondBadRequest(w, msgInvalidFilter)
		return
	}

	appts, err := h.service.GetProviderAppointments(r.Context(), providerID, filter)
	if err != nil {
		h.logger.Error("GET /providers/{id}/appointments - Failed: provider_id=%d, error=%v", providerID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /providers/{id}/appointments - Returned %d appointments: provider_id=%d",
		len(appts), providerID)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromAppointments(appts))
}

func parseFilter(r *http.Request) (domain.AppointmentListFilter, error) {
	var filter domain.AppointmentListFilter
	query := r.URL.Query()

	if statusStr := query.Get("status"); statusStr != "" {
		status := domain.AppointmentStatus(statusStr)
		filter.Status = &status
	}
	if fromStr := query.Get("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return filter, err
		}
		fromUTC := from.UTC()
		filter.StartFromUTC = &fromUTC
	}
	if toStr := query.Get("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return filter, err
		}
		toUTC := to.UTC()
		filter.StartToUTC = &toUTC
	}
	filter.IncludeTerminal = query.Get("includeTerminal") == "true"

	return filter, nil
}
