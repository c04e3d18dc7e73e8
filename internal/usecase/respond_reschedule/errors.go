package respond_reschedule

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда визит не найден
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrAccessDenied возвращается, когда отвечает не та сторона
	// (в том числе автор запроса на свой же запрос)
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidState возвращается, когда визит не находится в переговорах
	ErrInvalidState = errors.New("appointment is not in reschedule negotiation")

	// ErrSlotUnavailable возвращается, когда предложенное окно занято
	// на момент принятия
	ErrSlotUnavailable = errors.New("proposed window is no longer available")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках use case
	ErrInternal = errors.New("respond_reschedule: internal error")
)
