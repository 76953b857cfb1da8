// internal/position/position.go
package position

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

// Position is the program-side record bound 1:1 to a position mint.
// Its address is derived from the mint and doubles as the derived
// authority that controls the mint and polices its holding accounts.
type Position struct {
	Whirlpool solana.PublicKey
	Mint      solana.PublicKey
	derived   authority.Derived
}

// New derives the position record for mint in whirlpool under program.
func New(program, whirlpool, mint solana.PublicKey) (*Position, error) {
	derived, err := authority.DerivePosition(program, mint)
	if err != nil {
		return nil, err
	}
	return &Position{
		Whirlpool: whirlpool,
		Mint:      mint,
		derived:   derived,
	}, nil
}

// Address of the position record.
func (p *Position) Address() solana.PublicKey {
	return p.derived.Address
}

// Program that owns the position record.
func (p *Position) Program() solana.PublicKey {
	return p.derived.Program
}

// Seeds are the position signing seeds, bump included.
func (p *Position) Seeds() authority.Seeds {
	return p.derived.Seeds()
}

// Authority is the derived authority as a ledger authority value.
func (p *Position) Authority() authority.Authority {
	return authority.Controlled(p.derived.Address)
}

// Sign produces the derived authority's signature proof.
func (p *Position) Sign() (authority.Signer, error) {
	return p.derived.Sign()
}

// HoldingAccount is the canonical holding account of owner for the position mint.
func (p *Position) HoldingAccount(owner solana.PublicKey) (solana.PublicKey, error) {
	return ledger.FindAssociatedTokenAddress(owner, p.Mint, ledger.Token2022ProgramID)
}

func (p *Position) String() string {
	return fmt.Sprintf("position %s (mint %s)", p.Address(), p.Mint)
}
