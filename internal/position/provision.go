// internal/position/provision.go
package position

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

// ProvisionRequest describes a position mint to allocate.
type ProvisionRequest struct {
	Funder       authority.Signer
	Mint         authority.Signer
	Position     *Position
	WithMetadata bool
}

// Provisioner creates and finalizes position mints.
type Provisioner struct {
	rent   ledger.Rent
	logger *zap.Logger
}

// NewProvisioner creates a provisioner that funds accounts per rent.
func NewProvisioner(rent ledger.Rent, logger *zap.Logger) *Provisioner {
	if rent == nil {
		rent = ledger.DefaultRent
	}
	return &Provisioner{rent: rent, logger: logger.Named("provisioner")}
}

// Layout seals the extension set of a position mint.
func Layout(withMetadata bool) (ledger.MintLayout, error) {
	b := ledger.NewMintLayout().With(ledger.ExtensionMintCloseAuthority)
	if withMetadata {
		b.With(ledger.ExtensionMetadataPointer)
	}
	return b.Seal()
}

// Provision allocates the mint account and initializes it in the only order
// the ledger accepts: create, close authority, metadata pointer, finalize.
// On success the mint has supply 0, zero decimals and the position as mint,
// freeze and close authority.
func (p *Provisioner) Provision(ctx context.Context, l ledger.Ledger, req ProvisionRequest) error {
	const op = "provision"

	if req.Position == nil || req.Mint == nil || req.Funder == nil {
		return domain.Fail(op, domain.ErrAllocation, fmt.Errorf("funder, mint and position are required"))
	}
	pos := req.Position
	mint := req.Mint.PublicKey()
	if !mint.Equals(pos.Mint) {
		return domain.Fail(op, domain.ErrInconsistentState,
			fmt.Errorf("mint %s is not bound to %s", mint, pos))
	}

	p.logger.Debug("Provisioning position mint",
		zap.String("mint", mint.String()),
		zap.String("position", pos.Address().String()),
		zap.Bool("metadata", req.WithMetadata))

	layout, err := Layout(req.WithMetadata)
	if err != nil {
		return domain.Fail(op, domain.ErrExtensionConflict, err)
	}

	lamports := p.rent.MinimumBalance(layout.Size())
	balance, err := l.Balance(ctx, req.Funder.PublicKey())
	if err != nil {
		return rejected(op, err)
	}
	if balance < lamports {
		return domain.Fail(op, domain.ErrAllocation,
			fmt.Errorf("funder holds %d lamports, mint needs %d", balance, lamports))
	}

	if err := l.CreateAccount(ctx, ledger.CreateAccountParams{
		Funder:   req.Funder,
		Account:  req.Mint,
		Lamports: lamports,
		Space:    layout.Size(),
		Owner:    ledger.Token2022ProgramID,
	}); err != nil {
		return allocation(op, err)
	}

	if err := l.InitializeMintCloseAuthority(ctx, mint, pos.Authority()); err != nil {
		return rejected(op, err)
	}

	if layout.Has(ledger.ExtensionMetadataPointer) {
		// metadata lives in the mint itself
		if err := l.InitializeMetadataPointer(ctx, mint, authority.None(), authority.Controlled(mint)); err != nil {
			return rejected(op, err)
		}
	}

	if err := l.InitializeMint2(ctx, ledger.InitializeMintParams{
		Mint:            mint,
		Decimals:        0,
		MintAuthority:   pos.Address(),
		FreezeAuthority: pos.Authority(),
	}); err != nil {
		return rejected(op, err)
	}

	p.logger.Info("Position mint provisioned",
		zap.String("mint", mint.String()),
		zap.Uint64("space", layout.Size()),
		zap.Uint64("lamports", lamports))
	return nil
}

// AttachMetadata initializes self-hosted token metadata on a finalized mint
// that carries a metadata pointer. The funder tops up the rent the metadata
// entry adds. It must run while the position is still the mint authority.
func (p *Provisioner) AttachMetadata(ctx context.Context, l ledger.Ledger, funder authority.Signer, pos *Position, md Metadata, updateAuthority authority.Authority) error {
	const op = "attach_metadata"

	info, err := l.Account(ctx, pos.Mint)
	if err != nil {
		return rejected(op, err)
	}

	required := p.rent.MinimumBalance(info.Space + ledger.TokenMetadataSize(md.Name, md.Symbol, md.URI))
	if required > info.Lamports {
		if err := l.Transfer(ctx, funder, pos.Mint, required-info.Lamports); err != nil {
			return allocation(op, err)
		}
	}

	signer, err := pos.Sign()
	if err != nil {
		return domain.Fail(op, domain.ErrUnauthorized, err)
	}

	if err := l.InitializeTokenMetadata(ctx, ledger.TokenMetadataParams{
		Mint:            pos.Mint,
		UpdateAuthority: updateAuthority,
		MintAuthority:   signer,
		Name:            md.Name,
		Symbol:          md.Symbol,
		URI:             md.URI,
	}); err != nil {
		return rejected(op, err)
	}

	p.logger.Info("Position metadata attached",
		zap.String("mint", pos.Mint.String()),
		zap.String("name", md.Name),
		zap.String("uri", md.URI))
	return nil
}
