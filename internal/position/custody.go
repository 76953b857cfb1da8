// internal/position/custody.go
package position

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

// Custodian toggles the transfer-blocked state of holding accounts under the
// position authority. The ledger rejects redundant calls: freezing a frozen
// account or thawing a thawed one fails.
type Custodian struct {
	logger *zap.Logger
}

// NewCustodian creates a Custodian.
func NewCustodian(logger *zap.Logger) *Custodian {
	return &Custodian{logger: logger.Named("custody")}
}

// Freeze blocks transfers out of account.
func (c *Custodian) Freeze(ctx context.Context, l ledger.Ledger, pos *Position, account solana.PublicKey) error {
	const op = "freeze"
	signer, err := pos.Sign()
	if err != nil {
		return domain.Fail(op, domain.ErrUnauthorized, err)
	}
	if err := l.FreezeAccount(ctx, account, pos.Mint, signer); err != nil {
		return rejected(op, err)
	}
	c.logger.Info("Holding account frozen",
		zap.String("mint", pos.Mint.String()),
		zap.String("account", account.String()))
	return nil
}

// Unfreeze re-enables transfers out of account.
func (c *Custodian) Unfreeze(ctx context.Context, l ledger.Ledger, pos *Position, account solana.PublicKey) error {
	const op = "unfreeze"
	signer, err := pos.Sign()
	if err != nil {
		return domain.Fail(op, domain.ErrUnauthorized, err)
	}
	if err := l.ThawAccount(ctx, account, pos.Mint, signer); err != nil {
		return rejected(op, err)
	}
	c.logger.Info("Holding account thawed",
		zap.String("mint", pos.Mint.String()),
		zap.String("account", account.String()))
	return nil
}
