package requestservice

import "errors"

var (
	// ErrRequestNotFound возвращается, когда заявка на услугу не найдена
	ErrRequestNotFound = errors.New("service request not found")

	// ErrProposalNotFound возвращается, когда у заявки нет принятого предложения
	ErrProposalNotFound = errors.New("service request has no accepted proposal")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("requestservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("requestservice client: invalid response")
)
