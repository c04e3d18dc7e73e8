package start_noshow_item

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/noshow"
)

const (
	msgInvalidItemID = "некорректный ID элемента очереди"
	msgMissingUserID = "отсутствует ID пользователя"
	msgOperatorOnly  = "очередь доступна только операторам"
	msgNotFound      = "элемент очереди не найден"
	msgResolved      = "элемент очереди уже закрыт"
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

// Handle PATCH /api/v1/noshow-queue/{itemId}/start
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	itemID, err := strconv.ParseInt(vars["itemId"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /noshow-queue/{id}/start - Invalid item ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidItemID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("PATCH /noshow-queue/{id}/start - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())
	if role != domain.RoleOperator && role != domain.RoleSystem {
		h.logger.Warn("PATCH /noshow-queue/{id}/start - Access denied: user_id=%d, role=%s", userID, role)
		handlers.RespondForbidden(w, msgOperatorOnly)
		return
	}

	item, err := h.service.StartWorking(r.Context(), itemID)
	if err != nil {
		switch {
		case errors.Is(err, noshow.ErrItemNotFound):
			h.logger.Warn("PATCH /noshow-queue/{id}/start - Not found: item_id=%d", itemID)
			handlers.RespondNotFound(w, handlers.CodeQueueItemNotFound, msgNotFound)

		case errors.Is(err, noshow.ErrItemResolved):
			h.logger.Warn("PATCH /noshow-queue/{id}/start - Already resolved: item_id=%d", itemID)
			handlers.RespondConflict(w, handlers.CodeInvalidState, msgResolved)

		default:
			h.logger.Error("PATCH /noshow-queue/{id}/start - Failed: item_id=%d, error=%v", itemID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /noshow-queue/{id}/start - In progress: item_id=%d, operator_id=%d", itemID, userID)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromQueueItem(item))
}
