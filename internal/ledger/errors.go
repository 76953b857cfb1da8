// internal/ledger/errors.go
package ledger

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Rejection codes of the external ledger.
var (
	ErrAccountNotFound           = errors.New("account not found")
	ErrAccountAlreadyInUse       = errors.New("account already in use")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrNotRentExempt             = errors.New("lamport balance below rent-exempt threshold")
	ErrAlreadyInitialized        = errors.New("account already initialized")
	ErrUninitialized             = errors.New("account not initialized")
	ErrInvalidAccountData        = errors.New("invalid account data")
	ErrIncorrectProgramID        = errors.New("incorrect program id for account")
	ErrOwnerMismatch             = errors.New("owner does not match")
	ErrMintMismatch              = errors.New("account not associated with this mint")
	ErrAccountFrozen             = errors.New("account is frozen")
	ErrInvalidState              = errors.New("invalid account state for operation")
	ErrFixedSupply               = errors.New("fixed supply: mint authority is none")
	ErrMintCannotFreeze          = errors.New("mint cannot freeze accounts")
	ErrMintDecimalsMismatch      = errors.New("mint decimals mismatch")
	ErrNonNativeHasBalance       = errors.New("non-native account can only be closed if its balance is zero")
	ErrMintHasSupply             = errors.New("mint has non-zero supply")
	ErrAuthorityTypeNotSupported = errors.New("authority type not supported for this account")
	ErrImmutableOwner            = errors.New("account owner is immutable")
	ErrInvalidSeeds              = errors.New("provided seeds do not result in a valid address")
	ErrMissingSignature          = errors.New("missing required signature")
	ErrOverflow                  = errors.New("operation overflowed")
)

// Layout errors, raised before anything is sent to the ledger.
var (
	ErrInvalidExtensionCombination = errors.New("invalid extension combination")
	ErrLayoutSealed                = errors.New("extension layout already sealed")
	ErrVariableLengthExtension     = errors.New("variable-length extension cannot be pre-sized")
)

// Error is a rejection of one ledger instruction.
type Error struct {
	Instruction string
	Account     solana.PublicKey
	Code        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger rejected %s on %s: %v", e.Instruction, e.Account, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Code
}

func reject(instruction string, account solana.PublicKey, code error) error {
	return &Error{Instruction: instruction, Account: account, Code: code}
}

// IsRejection reports whether err carries a ledger rejection.
func IsRejection(err error) bool {
	var lerr *Error
	return errors.As(err, &lerr)
}
