package resolve_noshow_queue

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrAccessDenied возвращается при недостатке прав
	ErrAccessDenied = errors.New("access denied")

	// ErrItemNotFound возвращается, когда элемент очереди не найден
	ErrItemNotFound = errors.New("no-show queue item not found")

	// ErrItemResolved возвращается при повторной попытке закрыть элемент
	ErrItemResolved = errors.New("no-show queue item already resolved")

	// ErrAppointmentNotFound возвращается, когда визит элемента не найден
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrInvalidState возвращается, когда исход неприменим к статусу визита
	ErrInvalidState = errors.New("appointment state does not allow this outcome")

	// ErrInternal возвращается при внутренних ошибках use case
	ErrInternal = errors.New("resolve_noshow_queue: internal error")
)
