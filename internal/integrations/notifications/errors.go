package notifications

import "errors"

var (
	// ErrInternal возвращается при внутренних ошибках продюсера
	ErrInternal = errors.New("notifications producer: internal error")

	// ErrDisabled возвращается, когда продюсер выключен конфигурацией
	ErrDisabled = errors.New("notifications producer: disabled")
)
