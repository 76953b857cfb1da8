package position

import (
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

const sol = 1_000_000_000

var whirlpoolProgram = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

type harness struct {
	ctx       context.Context
	ledger    *ledger.Memory
	funder    authority.Signer
	whirlpool solana.PublicKey
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	m := ledger.NewMemory(ledger.DefaultRent, zap.NewNop())
	funder := newSigner()
	m.Fund(funder.PublicKey(), 10*sol)
	return &harness{
		ctx:       context.Background(),
		ledger:    m,
		funder:    funder,
		whirlpool: solana.NewWallet().PublicKey(),
	}
}

func newSigner() authority.Signer {
	return authority.Keypair(solana.NewWallet().PublicKey())
}

// provisioned returns a finalized position mint with no holder yet.
func (h *harness) provisioned(t *testing.T, withMetadata bool) *Position {
	t.Helper()
	mint := newSigner()
	pos, err := New(whirlpoolProgram, h.whirlpool, mint.PublicKey())
	require.NoError(t, err)
	require.NoError(t, NewProvisioner(ledger.DefaultRent, zap.NewNop()).Provision(h.ctx, h.ledger, ProvisionRequest{
		Funder:       h.funder,
		Mint:         mint,
		Position:     pos,
		WithMetadata: withMetadata,
	}))
	return pos
}

// delivered returns a position whose token is held by a fresh owner.
func (h *harness) delivered(t *testing.T) (*Position, authority.Signer, solana.PublicKey) {
	t.Helper()
	pos := h.provisioned(t, false)
	owner := newSigner()
	account, err := NewDeliverer(zap.NewNop()).Deliver(h.ctx, h.ledger, DeliveryRequest{
		Funder:   h.funder,
		Owner:    owner.PublicKey(),
		Position: pos,
	})
	require.NoError(t, err)
	return pos, owner, account
}

// holdingAccount creates an empty holding account of pos for a fresh owner.
func (h *harness) holdingAccount(t *testing.T, pos *Position) (authority.Signer, solana.PublicKey) {
	t.Helper()
	owner := newSigner()
	account, err := pos.HoldingAccount(owner.PublicKey())
	require.NoError(t, err)
	require.NoError(t, h.ledger.CreateAssociatedTokenAccount(h.ctx, ledger.AssociatedAccountParams{
		Funder:       h.funder,
		Account:      account,
		Owner:        owner.PublicKey(),
		Mint:         pos.Mint,
		TokenProgram: ledger.Token2022ProgramID,
	}))
	return owner, account
}

type memJournal struct {
	mu      sync.Mutex
	intents []*Intent
	markErr error
}

func (j *memJournal) Begin(_ context.Context, intent Intent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.intents = append(j.intents, &intent)
	return nil
}

func (j *memJournal) Mark(_ context.Context, id uuid.UUID, step Step) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.markErr != nil {
		return j.markErr
	}
	for _, i := range j.intents {
		if i.ID == id && !i.Done(step) {
			i.Completed = append(i.Completed, step)
		}
	}
	return nil
}

func (j *memJournal) Pending(_ context.Context, mint solana.PublicKey) (Intent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for k := len(j.intents) - 1; k >= 0; k-- {
		if i := j.intents[k]; i.Mint.Equals(mint) && !i.Finished() {
			return *i, nil
		}
	}
	return Intent{}, ErrNoIntent
}
