package policy

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/integrations/walletservice"
)

// WalletServiceClient интерфейс клиента для WalletService
type WalletServiceClient interface {
	AppendEntry(ctx context.Context, entry *walletservice.LedgerEntry) (*walletservice.LedgerReceipt, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
