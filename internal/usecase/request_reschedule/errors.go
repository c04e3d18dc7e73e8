package request_reschedule

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда визит не найден
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrAccessDenied возвращается, когда у актора нет прав на операцию
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidState возвращается, когда переговоры о переносе нельзя начать
	// из текущего статуса визита
	ErrInvalidState = errors.New("reschedule cannot be requested in current state")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInvalidTimeRange возвращается при некорректном предложенном окне
	ErrInvalidTimeRange = errors.New("invalid proposed window")

	// ErrInternal возвращается при внутренних ошибках use case
	ErrInternal = errors.New("request_reschedule: internal error")
)
