package create_appointment

import "errors"

var (
	// ErrRequestNotFound возвращается, когда заявка на услугу не найдена
	ErrRequestNotFound = errors.New("service request not found")

	// ErrProviderNotFound возвращается, когда у заявки нет принятого
	// предложения указанного провайдера
	ErrProviderNotFound = errors.New("provider has no accepted proposal for request")

	// ErrAccessDenied возвращается, когда заявка не принадлежит клиенту
	ErrAccessDenied = errors.New("access denied")

	// ErrAppointmentAlreadyExists возвращается, когда у пары
	// (заявка, провайдер) уже есть незавершенный визит
	ErrAppointmentAlreadyExists = errors.New("active appointment already exists for request and provider")

	// ErrSlotUnavailable возвращается, когда запрошенное окно занято
	// или закрыто расписанием провайдера
	ErrSlotUnavailable = errors.New("requested window is not available")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInvalidTimeRange возвращается при некорректном окне визита
	ErrInvalidTimeRange = errors.New("invalid appointment window")

	// ErrInternal возвращается при внутренних ошибках use case
	ErrInternal = errors.New("create_appointment: internal error")
)
