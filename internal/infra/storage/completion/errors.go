package completion

import "errors"

var (
	// ErrTermNotFound возвращается, когда completion term не найден
	ErrTermNotFound = errors.New("completion.repository: completion term not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("completion.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("completion.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("completion.repository: failed to scan row")
)
