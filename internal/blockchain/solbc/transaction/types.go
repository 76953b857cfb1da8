// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/whirlpool-positions/internal/wallet"
)

var (
	ErrInvalidSignature   = errors.New("invalid transaction signature")
	ErrInvalidBlockhash   = errors.New("invalid blockhash")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrNoPayer            = errors.New("transaction payer is required")
)

type Config struct {
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64 // micro-lamports per compute unit
	SkipPreflight    bool
	Commitment       rpc.CommitmentType
	MaxElapsedTime   time.Duration
	MaxTries         uint // 0 leaves only MaxElapsedTime as the bound
}

func DefaultConfig() Config {
	return Config{
		ComputeUnitLimit: 400_000,
		Commitment:       rpc.CommitmentConfirmed,
		MaxElapsedTime:   30 * time.Second,
	}
}

// Request is one lifecycle transaction to submit.
type Request struct {
	Operation    string
	Mint         solana.PublicKey
	Payer        *wallet.Wallet
	Signers      []*wallet.Wallet
	Instructions []solana.Instruction
}

type Status struct {
	Signature string
	Status    string
	Slot      uint64
	Attempts  int
	Error     string
	Timestamp time.Time
}
