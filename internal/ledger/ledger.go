package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger performs value transfers on a target chain. The execution core is
// written against this interface only; the concrete backend is selected once
// at process configuration time.
type Ledger interface {
	Name() string
	// Transfer moves amount from fromAddress to toAddress and returns the
	// transaction reference.
	Transfer(ctx context.Context, amount decimal.Decimal, fromAddress, toAddress string) (string, error)
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, address string) (decimal.Decimal, error)
}
