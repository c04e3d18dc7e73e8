package recalculate_noshow_risk

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных параметрах обхода
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках use case
	ErrInternal = errors.New("recalculate_noshow_risk: internal error")
)
