// internal/position/delivery.go
package position

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

// DeliveryRequest describes who receives a position token.
type DeliveryRequest struct {
	Funder   authority.Signer
	Owner    solana.PublicKey
	Position *Position
}

// Deliverer creates the owner's holding account and performs the one-time
// mint-and-seal.
type Deliverer struct {
	logger *zap.Logger
}

// NewDeliverer creates a Deliverer.
func NewDeliverer(logger *zap.Logger) *Deliverer {
	return &Deliverer{logger: logger.Named("delivery")}
}

// Deliver creates the owner's holding account, mints exactly one unit into
// it and revokes the mint authority. It returns the holding account. A
// failure after the unit is minted is an inconsistency the caller must abort
// on; nothing here retries or compensates.
func (d *Deliverer) Deliver(ctx context.Context, l ledger.Ledger, req DeliveryRequest) (solana.PublicKey, error) {
	const op = "deliver"
	pos := req.Position

	account, err := pos.HoldingAccount(req.Owner)
	if err != nil {
		return solana.PublicKey{}, domain.Fail(op, domain.ErrAllocation, err)
	}

	d.logger.Debug("Delivering position token",
		zap.String("mint", pos.Mint.String()),
		zap.String("owner", req.Owner.String()),
		zap.String("account", account.String()))

	if err := l.CreateAssociatedTokenAccount(ctx, ledger.AssociatedAccountParams{
		Funder:       req.Funder,
		Account:      account,
		Owner:        req.Owner,
		Mint:         pos.Mint,
		TokenProgram: ledger.Token2022ProgramID,
	}); err != nil {
		return solana.PublicKey{}, allocation(op, err)
	}

	signer, err := pos.Sign()
	if err != nil {
		return solana.PublicKey{}, domain.Fail(op, domain.ErrUnauthorized, err)
	}

	if err := l.MintTo(ctx, pos.Mint, account, signer, 1); err != nil {
		return solana.PublicKey{}, rejected(op, err)
	}

	if err := l.SetAuthority(ctx, ledger.SetAuthorityParams{
		Account:      pos.Mint,
		Type:         token.AuthorityMintTokens,
		NewAuthority: authority.None(),
		Current:      signer,
	}); err != nil {
		// minted but not sealed
		return solana.PublicKey{}, domain.Fail(op, domain.ErrInconsistentState,
			fmt.Errorf("mint authority not revoked after mint: %w", rejected(op, err)))
	}

	d.logger.Info("Position token delivered",
		zap.String("mint", pos.Mint.String()),
		zap.String("owner", req.Owner.String()))
	return account, nil
}
