// internal/authority/signer.go
package authority

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrInvalidSeeds is returned when seeds do not derive the claimed address.
	ErrInvalidSeeds = errors.New("seeds do not derive a valid program address")
	// ErrMissingSignature is returned for an empty signer.
	ErrMissingSignature = errors.New("missing required signature")
)

// Signer is a proof that an instruction was authorized by PublicKey.
type Signer interface {
	PublicKey() solana.PublicKey
	// Verify checks the proof. Keypair signatures are checked by the transaction
	// runtime and always verify here; derived signers re-derive their address.
	Verify() error
}

type keypairSigner struct {
	key solana.PublicKey
}

// Keypair returns the signature of a principal holding a private key.
func Keypair(key solana.PublicKey) Signer {
	return keypairSigner{key: key}
}

func (s keypairSigner) PublicKey() solana.PublicKey { return s.key }

func (s keypairSigner) Verify() error {
	if s.key.IsZero() {
		return ErrMissingSignature
	}
	return nil
}

// Seeds are the signing seeds of a program-derived address, bump included.
type Seeds [][]byte

// Address derives the program address for the seeds under program.
func (s Seeds) Address(program solana.PublicKey) (solana.PublicKey, error) {
	addr, err := solana.CreateProgramAddress(s, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
	}
	return addr, nil
}

// Sign produces the derived signer for the seeds. The signer carries no
// private key: its proof is the seeds themselves.
func (s Seeds) Sign(program solana.PublicKey) (Signer, error) {
	addr, err := s.Address(program)
	if err != nil {
		return nil, err
	}
	return &derivedSigner{address: addr, program: program, seeds: s.clone()}, nil
}

func (s Seeds) clone() Seeds {
	out := make(Seeds, len(s))
	for i, seed := range s {
		out[i] = append([]byte(nil), seed...)
	}
	return out
}

type derivedSigner struct {
	address solana.PublicKey
	program solana.PublicKey
	seeds   Seeds
}

func (s *derivedSigner) PublicKey() solana.PublicKey { return s.address }

func (s *derivedSigner) Verify() error {
	addr, err := s.seeds.Address(s.program)
	if err != nil {
		return err
	}
	if !addr.Equals(s.address) {
		return ErrInvalidSeeds
	}
	return nil
}

// IsDerived reports whether the signer is a program-derived signer.
func IsDerived(s Signer) bool {
	_, ok := s.(*derivedSigner)
	return ok
}
