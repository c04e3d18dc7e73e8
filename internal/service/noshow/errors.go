package noshow

import "errors"

var (
	// ErrItemNotFound возвращается, когда элемент очереди не найден
	ErrItemNotFound = errors.New("no-show queue item not found")

	// ErrItemResolved возвращается при попытке изменить закрытый элемент
	ErrItemResolved = errors.New("no-show queue item already resolved")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("noshow service: internal error")
)
