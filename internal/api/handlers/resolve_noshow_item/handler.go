package resolve_noshow_item

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	resolveNoShowQueue "github.com/m04kA/SMC-AppointmentService/internal/usecase/resolve_noshow_queue"
)

const (
	msgInvalidItemID      = "некорректный ID элемента очереди"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgForbidden          = "доступ запрещен"
	msgNotFound           = "элемент очереди не найден"
	msgApptNotFound       = "визит элемента очереди не найден"
	msgResolved           = "элемент очереди уже закрыт"
	msgInvalidState       = "исход неприменим к статусу визита"
	msgInvalidOutcome     = "некорректный исход триажа"
)

// ResolveNoShowItemRequest HTTP request model
type ResolveNoShowItemRequest struct {
	Outcome string `json:"outcome"` // no_action | client_no_show | provider_no_show
	Note    string `json:"note,omitempty"`
}

// ResolveNoShowItemResponse HTTP response model
type ResolveNoShowItemResponse struct {
	Item        *handlers.QueueItemResponse   `json:"item"`
	Appointment *handlers.AppointmentResponse `json:"appointment,omitempty"`
}

type Handler struct {
	useCase ResolveNoShowQueueUseCase
	logger  Logger
}

func NewHandler(useCase ResolveNoShowQueueUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/noshow-queue/{itemId}/resolve
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	itemID, err := strconv.ParseInt(vars["itemId"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /noshow-queue/{id}/resolve - Invalid item ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidItemID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("PATCH /noshow-queue/{id}/resolve - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	var req ResolveNoShowItemRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /noshow-queue/{id}/resolve - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &resolveNoShowQueue.Request{
		QueueItemID: itemID,
		ActorUserID: userID,
		ActorRole:   role,
		Outcome:     resolveNoShowQueue.Outcome(req.Outcome),
		Note:        req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, resolveNoShowQueue.ErrItemNotFound):
			h.logger.Warn("PATCH /noshow-queue/{id}/resolve - Not found: item_id=%d", itemID)
			handlers.RespondNotFound(w, handlers.CodeQueueItemNotFound, msgNotFound)

		case errors.Is(err, resolveNoShowQueue.ErrAppointmentNotFound):
			h.logger.Warn("PATCH /noshow-queue/{id}/resolve - Appointment not found: item_id=%d", itemID)
			handlers.RespondNotFound(w, handlers.CodeAppointmentNotFound, msgApptNotFound)

		case errors.Is(err, resolveNoShowQueue.ErrAccessDenied):
			h.logger.Warn("PATCH /noshow-queue/{id}/resolve - Access denied: item_id=%d, user_id=%d",
				itemID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, resolveNoShowQueue.ErrItemResolved):
			h.logger.Warn("PATCH /noshow-queue/{id}/resolve - Already resolved: item_id=%d", itemID)
			handlers.RespondConflict(w, handlers.CodeInvalidState, msgResolved)

		case errors.Is(err, resolveNoShowQueue.ErrInvalidState):
			h.logger.Warn("PATCH /noshow-queue/{id}/resolve - Invalid appointment state: item_id=%d", itemID)
			handlers.RespondConflict(w, handlers.CodeInvalidState, msgInvalidState)

		case errors.Is(err, resolveNoShowQueue.ErrInvalidInput):
			h.logger.Warn("PATCH /noshow-queue/{id}/resolve - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidOutcome)

		default:
			h.logger.Error("PATCH /noshow-queue/{id}/resolve - Failed: item_id=%d, error=%v", itemID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	resp := ResolveNoShowItemResponse{Item: handlers.FromQueueItem(result.Item)}
	if result.Appointment != nil {
		resp.Appointment = handlers.FromAppointment(result.Appointment)
	}

	h.logger.Info("PATCH /noshow-queue/{id}/resolve - Resolved: item_id=%d, outcome=%s, operator_id=%d",
		itemID, req.Outcome, userID)
	handlers.RespondJSON(w, http.StatusOK, resp)
}
