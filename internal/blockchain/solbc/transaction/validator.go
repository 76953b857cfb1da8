// internal/blockchain/solbc/transaction/validator.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Validate checks a signed transaction before it is sent.
func Validate(tx *solana.Transaction) error {
	if err := validateSignatures(tx); err != nil {
		return err
	}
	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		return ErrInvalidBlockhash
	}
	if len(tx.Message.Instructions) == 0 {
		return ErrInvalidInstruction
	}
	return nil
}

func validateSignatures(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || len(tx.Signatures) != required {
		return fmt.Errorf("%w: have %d of %d", ErrInvalidSignature, len(tx.Signatures), required)
	}
	for i, sig := range tx.Signatures {
		if sig.IsZero() {
			return fmt.Errorf("%w: missing signature for %s", ErrInvalidSignature, tx.Message.AccountKeys[i])
		}
	}
	return nil
}
