package completion

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда визит не найден
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrTermNotFound возвращается, когда completion term не найден
	ErrTermNotFound = errors.New("completion term not found")

	// ErrAccessDenied возвращается, когда у актора нет прав на операцию
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidState возвращается, когда операция неприменима к текущему
	// статусу визита или term-а
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrInvalidPinFormat возвращается, когда PIN не состоит из 6 цифр
	ErrInvalidPinFormat = errors.New("pin must be exactly 6 digits")

	// ErrInvalidPin возвращается при несовпадении PIN
	ErrInvalidPin = errors.New("pin does not match")

	// ErrPinExpired возвращается, когда срок действия PIN истек
	ErrPinExpired = errors.New("pin expired")

	// ErrPinLocked возвращается после исчерпания попыток ввода PIN
	ErrPinLocked = errors.New("pin locked after too many failed attempts")

	// ErrSignatureRequired возвращается при пустом имени подписи
	ErrSignatureRequired = errors.New("signature name is required")

	// ErrInvalidAcceptanceMethod возвращается при неизвестном способе подтверждения
	ErrInvalidAcceptanceMethod = errors.New("invalid acceptance method")

	// ErrContestReasonRequired возвращается при пустой причине оспаривания
	ErrContestReasonRequired = errors.New("contest reason is required")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("completion service: internal error")
)
