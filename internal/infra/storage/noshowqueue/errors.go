package noshowqueue

import "errors"

var (
	// ErrItemNotFound возвращается, когда элемент очереди не найден
	ErrItemNotFound = errors.New("noshowqueue.repository: queue item not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("noshowqueue.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("noshowqueue.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("noshowqueue.repository: failed to scan row")
)
