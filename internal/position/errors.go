// internal/position/errors.go
package position

import (
	"errors"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

// rejected classifies a failed ledger invocation.
func rejected(op string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *domain.OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return domain.Fail(op, domain.ErrExternalLedgerRejected, err)
}

// allocation classifies a failed funding step: a funder short of lamports is
// an allocation error, anything else the ledger refused is a rejection.
func allocation(op string, err error) error {
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return domain.Fail(op, domain.ErrAllocation, err)
	}
	return rejected(op, err)
}
