package walletservice

import "errors"

var (
	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("walletservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("walletservice client: invalid response")

	// ErrEntryRejected возвращается, когда WalletService отклонил проводку
	ErrEntryRejected = errors.New("walletservice client: ledger entry rejected")
)
