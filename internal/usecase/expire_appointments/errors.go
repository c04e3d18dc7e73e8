package expire_appointments

import "errors"

var (
	// ErrInvalidInput возвращается при некорректном размере пачки
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках use case
	ErrInternal = errors.New("expire_appointments: internal error")
)
