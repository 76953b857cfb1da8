// internal/authority/derive.go
package authority

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	positionSeed   = "position"
	tokenBadgeSeed = "token_badge"
)

// Derived is a program-derived identity: an address with no private key,
// computed from stable seed data.
type Derived struct {
	Address solana.PublicKey
	Program solana.PublicKey
	Bump    uint8
	base    [][]byte
}

// Seeds returns the signing seeds, bump included.
func (d Derived) Seeds() Seeds {
	seeds := make(Seeds, 0, len(d.base)+1)
	for _, b := range d.base {
		seeds = append(seeds, append([]byte(nil), b...))
	}
	return append(seeds, []byte{d.Bump})
}

// Sign produces the derived signer of d.
func (d Derived) Sign() (Signer, error) {
	return d.Seeds().Sign(d.Program)
}

func derive(program solana.PublicKey, seeds ...[]byte) (Derived, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return Derived{}, err
	}
	return Derived{Address: addr, Program: program, Bump: bump, base: seeds}, nil
}

// DerivePosition derives the position record address for a position mint.
// The position record is also the derived authority of its own mint.
func DerivePosition(program, positionMint solana.PublicKey) (Derived, error) {
	d, err := derive(program, []byte(positionSeed), positionMint.Bytes())
	if err != nil {
		return Derived{}, fmt.Errorf("failed to derive position address: %w", err)
	}
	return d, nil
}

// DeriveTokenBadge derives the token badge witness address for a mint under a config.
func DeriveTokenBadge(program, config, mint solana.PublicKey) (solana.PublicKey, error) {
	d, err := derive(program, []byte(tokenBadgeSeed), config.Bytes(), mint.Bytes())
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive token badge: %w", err)
	}
	return d.Address, nil
}
