package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DryRun logs transfers without moving funds and hands back synthetic
// transaction hashes. Default backend for dev environments.
type DryRun struct {
	Logger *zap.Logger
}

func (d *DryRun) Name() string { return "dryrun" }

func (d *DryRun) Transfer(ctx context.Context, amount decimal.Decimal, fromAddress, toAddress string) (string, error) {
	txHash := "dryrun-" + uuid.NewString()
	if d != nil && d.Logger != nil {
		d.Logger.Info("dry-run transfer",
			zap.String("amount", amount.String()),
			zap.String("from", fromAddress),
			zap.String("to", toAddress),
			zap.String("tx_hash", txHash),
		)
	}
	return txHash, nil
}

func (d *DryRun) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (d *DryRun) TokenBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
