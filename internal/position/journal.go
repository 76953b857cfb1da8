// internal/position/journal.go
package position

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// ErrNoIntent is returned when no unfinished teardown is recorded for a mint.
var ErrNoIntent = errors.New("no pending teardown intent")

// Step is a completion marker of the teardown sequence.
type Step string

const (
	StepBurned        Step = "burned"
	StepAccountClosed Step = "account_closed"
	StepMintClosed    Step = "mint_closed"
)

// TeardownSteps is the mandatory teardown order.
var TeardownSteps = []Step{StepBurned, StepAccountClosed, StepMintClosed}

// Intent is the recorded intent to tear down one position token.
type Intent struct {
	ID        uuid.UUID
	Mint      solana.PublicKey
	Position  solana.PublicKey
	Holder    solana.PublicKey
	Account   solana.PublicKey
	Receiver  solana.PublicKey
	Completed []Step
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewIntent records the intent to tear down pos held in account by holder.
func NewIntent(pos *Position, holder, account, receiver solana.PublicKey) Intent {
	now := time.Now()
	return Intent{
		ID:        uuid.New(),
		Mint:      pos.Mint,
		Position:  pos.Address(),
		Holder:    holder,
		Account:   account,
		Receiver:  receiver,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Done reports whether step has completed.
func (i Intent) Done(step Step) bool {
	return slices.Contains(i.Completed, step)
}

// Finished reports whether every teardown step has completed.
func (i Intent) Finished() bool {
	for _, s := range TeardownSteps {
		if !i.Done(s) {
			return false
		}
	}
	return true
}

// Journal persists teardown intents and step markers so a teardown
// interrupted outside an atomic host can be resumed. Marking a step that is
// already recorded is a no-op.
type Journal interface {
	Begin(ctx context.Context, intent Intent) error
	Mark(ctx context.Context, id uuid.UUID, step Step) error
	// Pending returns the unfinished intent for mint or ErrNoIntent.
	Pending(ctx context.Context, mint solana.PublicKey) (Intent, error)
}
