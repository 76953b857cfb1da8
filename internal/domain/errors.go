// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Every failed lifecycle operation reports exactly one.
var (
	ErrAllocation             = errors.New("allocation error")
	ErrExtensionConflict      = errors.New("extension conflict")
	ErrExternalLedgerRejected = errors.New("external ledger rejected")
	ErrUnsupportedMint        = errors.New("unsupported mint")
	ErrIndexOutOfRange        = errors.New("reward index out of range")
	ErrSlotAlreadyBound       = errors.New("reward slot already bound")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidTransition      = errors.New("invalid position state transition")
	ErrMetadataTooLong        = errors.New("metadata uri too long")
	ErrInconsistentState      = errors.New("inconsistent position state")
)

// OperationError is the single failure reported for an aborted operation.
// errors.Is matches both its Kind and anything in the Err chain.
type OperationError struct {
	Op   string
	Kind error
	Err  error
}

// Fail wraps err as a failure of op with the given kind.
func Fail(op string, kind, err error) error {
	return &OperationError{Op: op, Kind: kind, Err: err}
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the failure kind.
func (e *OperationError) Is(target error) bool {
	return e.Kind == target
}

// KindOf returns the failure kind carried by err, or nil.
func KindOf(err error) error {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return nil
}

// KindName is a short label for metrics and logs.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrAllocation:
		return "allocation"
	case ErrExtensionConflict:
		return "extension_conflict"
	case ErrExternalLedgerRejected:
		return "ledger_rejected"
	case ErrUnsupportedMint:
		return "unsupported_mint"
	case ErrIndexOutOfRange:
		return "index_out_of_range"
	case ErrSlotAlreadyBound:
		return "slot_already_bound"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrInvalidTransition:
		return "invalid_transition"
	case ErrMetadataTooLong:
		return "metadata_too_long"
	case ErrInconsistentState:
		return "inconsistent_state"
	case nil:
		if err == nil {
			return "none"
		}
	}
	return "unknown"
}
