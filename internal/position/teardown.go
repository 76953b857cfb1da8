// internal/position/teardown.go
package position

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

// positionDecimals is the fixed precision of every position token.
const positionDecimals = 0

// TransferRequest moves the position token between holding accounts.
type TransferRequest struct {
	Position    *Position
	Holder      authority.Signer
	Source      solana.PublicKey
	Destination solana.PublicKey
}

// TeardownRequest destroys the token side of a position.
type TeardownRequest struct {
	Position *Position
	Holder   authority.Signer
	Account  solana.PublicKey
	Receiver solana.PublicKey
}

// Transferor moves position tokens and runs the terminal teardown.
type Transferor struct {
	journal Journal
	logger  *zap.Logger
}

// TransferorOption configures a Transferor.
type TransferorOption func(*Transferor)

// WithJournal records teardown intents and step markers in j.
func WithJournal(j Journal) TransferorOption {
	return func(t *Transferor) {
		t.journal = j
	}
}

// NewTransferor creates a Transferor.
func NewTransferor(logger *zap.Logger, opts ...TransferorOption) *Transferor {
	t := &Transferor{logger: logger.Named("teardown")}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transfer moves the single unit from Source to Destination, authorized by
// the current holder. Frozen accounts and decimals mismatches are rejected
// by the ledger.
func (t *Transferor) Transfer(ctx context.Context, l ledger.Ledger, req TransferRequest) error {
	const op = "transfer"
	pos := req.Position

	mint, err := l.Mint(ctx, pos.Mint)
	if err != nil {
		return rejected(op, err)
	}
	if mint.Supply != 1 {
		return domain.Fail(op, domain.ErrInconsistentState,
			fmt.Errorf("position mint supply is %d", mint.Supply))
	}

	if err := l.TransferChecked(ctx, ledger.TransferParams{
		Source:      req.Source,
		Mint:        pos.Mint,
		Destination: req.Destination,
		Owner:       req.Holder,
		Amount:      1,
		Decimals:    positionDecimals,
	}); err != nil {
		return rejected(op, err)
	}

	t.logger.Info("Position token transferred",
		zap.String("mint", pos.Mint.String()),
		zap.String("from", req.Source.String()),
		zap.String("to", req.Destination.String()))
	return nil
}

// Teardown burns the unit, closes the holding account and closes the mint,
// in that order, returning rent to Receiver. The mint close is signed by
// the position authority. The position record itself is left to the caller.
func (t *Transferor) Teardown(ctx context.Context, l ledger.Ledger, req TeardownRequest) error {
	const op = "teardown"

	if t.journal == nil {
		return t.run(ctx, l, op, req, nil, false)
	}

	intent := NewIntent(req.Position, req.Holder.PublicKey(), req.Account, req.Receiver)
	if err := t.journal.Begin(ctx, intent); err != nil {
		return domain.Fail(op, domain.ErrInconsistentState, fmt.Errorf("record intent: %w", err))
	}
	return t.run(ctx, l, op, req, &intent, false)
}

// Resume completes a journaled teardown that stopped part way. Steps whose
// effect is already visible on the ledger are skipped.
func (t *Transferor) Resume(ctx context.Context, l ledger.Ledger, pos *Position, holder authority.Signer) error {
	const op = "resume_teardown"

	if t.journal == nil {
		return domain.Fail(op, domain.ErrInconsistentState, ErrNoIntent)
	}
	intent, err := t.journal.Pending(ctx, pos.Mint)
	if err != nil {
		return domain.Fail(op, domain.ErrInconsistentState, err)
	}
	if !intent.Holder.Equals(holder.PublicKey()) {
		return domain.Fail(op, domain.ErrUnauthorized,
			fmt.Errorf("teardown was started by %s", intent.Holder))
	}

	t.logger.Info("Resuming teardown",
		zap.String("mint", pos.Mint.String()),
		zap.String("intent", intent.ID.String()),
		zap.Any("completed", intent.Completed))

	return t.run(ctx, l, op, TeardownRequest{
		Position: pos,
		Holder:   holder,
		Account:  intent.Account,
		Receiver: intent.Receiver,
	}, &intent, true)
}

func (t *Transferor) run(ctx context.Context, l ledger.Ledger, op string, req TeardownRequest, intent *Intent, resuming bool) error {
	pos := req.Position

	steps := []struct {
		step    Step
		applied func() (bool, error)
		apply   func() error
	}{
		{
			step: StepBurned,
			applied: func() (bool, error) {
				acct, err := l.TokenAccount(ctx, req.Account)
				if errors.Is(err, ledger.ErrAccountNotFound) {
					return true, nil
				}
				if err != nil {
					return false, err
				}
				return acct.Amount == 0, nil
			},
			apply: func() error {
				return l.BurnChecked(ctx, ledger.BurnParams{
					Account:  req.Account,
					Mint:     pos.Mint,
					Owner:    req.Holder,
					Amount:   1,
					Decimals: positionDecimals,
				})
			},
		},
		{
			step:    StepAccountClosed,
			applied: t.gone(ctx, l, req.Account),
			apply: func() error {
				return l.CloseAccount(ctx, req.Account, req.Receiver, req.Holder)
			},
		},
		{
			step:    StepMintClosed,
			applied: t.gone(ctx, l, pos.Mint),
			apply: func() error {
				signer, err := pos.Sign()
				if err != nil {
					return err
				}
				return l.CloseAccount(ctx, pos.Mint, req.Receiver, signer)
			},
		},
	}

	for _, s := range steps {
		// markers may outlive a rolled back step, so a resumed teardown
		// trusts the ledger rather than the journal
		applied := false
		if resuming {
			var err error
			if applied, err = s.applied(); err != nil {
				return rejected(op, err)
			}
		}
		if !applied {
			if err := s.apply(); err != nil {
				return rejected(op, err)
			}
		}
		if intent != nil && !intent.Done(s.step) {
			if err := t.journal.Mark(ctx, intent.ID, s.step); err != nil {
				return domain.Fail(op, domain.ErrInconsistentState,
					fmt.Errorf("mark %s: %w", s.step, err))
			}
			intent.Completed = append(intent.Completed, s.step)
		}
		t.logger.Debug("Teardown step done",
			zap.String("mint", pos.Mint.String()),
			zap.String("step", string(s.step)),
			zap.Bool("skipped", applied))
	}

	t.logger.Info("Position token torn down",
		zap.String("mint", pos.Mint.String()),
		zap.String("receiver", req.Receiver.String()))
	return nil
}

func (t *Transferor) gone(ctx context.Context, l ledger.Ledger, key solana.PublicKey) func() (bool, error) {
	return func() (bool, error) {
		_, err := l.Account(ctx, key)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return true, nil
		}
		return false, err
	}
}

// CloseEmptyAccount closes an empty holding account of the position mint,
// returning its rent to receiver.
func (t *Transferor) CloseEmptyAccount(ctx context.Context, l ledger.Ledger, pos *Position, holder authority.Signer, account, receiver solana.PublicKey) error {
	const op = "close_empty_account"

	acct, err := l.TokenAccount(ctx, account)
	if err != nil {
		return rejected(op, err)
	}
	if !acct.Mint.Equals(pos.Mint) {
		return rejected(op, &ledger.Error{Instruction: op, Account: account, Code: ledger.ErrMintMismatch})
	}
	if err := l.CloseAccount(ctx, account, receiver, holder); err != nil {
		return rejected(op, err)
	}

	t.logger.Info("Empty holding account closed",
		zap.String("mint", pos.Mint.String()),
		zap.String("account", account.String()))
	return nil
}
