// internal/blockchain/solbc/lifecycle_test.go
package solbc

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
	"github.com/rovshanmuradov/whirlpool-positions/internal/wallet"
)

type lifecycleFixture struct {
	client    *clientMock
	submitter *submitterMock
	lifecycle *Lifecycle
	holder    *wallet.Wallet
	mint      solana.PublicKey
	account   solana.PublicKey
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	holder, err := wallet.NewRandomWallet()
	require.NoError(t, err)
	mint := key()
	account, err := holder.GetATA(mint)
	require.NoError(t, err)

	f := &lifecycleFixture{
		client:    new(clientMock),
		submitter: new(submitterMock),
		holder:    holder,
		mint:      mint,
		account:   account,
	}
	f.lifecycle = NewLifecycle(f.client, NewBuilder(whirlpoolProgram), f.submitter, zap.NewNop())
	return f
}

func (f *lifecycleFixture) onChain(owner solana.PublicKey, amount uint64, state ledger.AccountState) {
	f.client.On("GetAccountInfo", mock.Anything, f.mint).
		Return(accountResult(ledger.Token2022ProgramID, mintBytes(nil, 1, nil)), nil)
	f.client.On("GetAccountInfo", mock.Anything, f.account).
		Return(accountResult(ledger.Token2022ProgramID, accountBytes(f.mint, owner, amount, state)), nil)
}

func TestOpenPositionSignsWithFreshMint(t *testing.T) {
	f := newLifecycleFixture(t)
	pool := key()

	f.submitter.On("SendAndConfirm", mock.Anything, mock.MatchedBy(func(req transaction.Request) bool {
		return req.Operation == ixOpenPosition &&
			req.Payer == f.holder &&
			len(req.Signers) == 1 &&
			req.Signers[0].PublicKey.Equals(req.Mint) &&
			len(req.Instructions) == 1
	})).Return(&transaction.Status{Signature: "sig"}, nil).Once()

	opened, err := f.lifecycle.OpenPosition(context.Background(), OpenRequest{
		Funder:         f.holder,
		Whirlpool:      pool,
		TickLowerIndex: -64,
		TickUpperIndex: 64,
	})
	require.NoError(t, err)
	want, err := ledger.FindAssociatedTokenAddress(f.holder.PublicKey, opened.Mint, ledger.Token2022ProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, opened.Account)
	assert.Equal(t, "sig", opened.Status.Signature)
	f.submitter.AssertExpectations(t)
}

func TestLifecycleClosePosition(t *testing.T) {
	f := newLifecycleFixture(t)
	f.onChain(f.holder.PublicKey, 1, ledger.AccountInitialized)
	f.submitter.On("SendAndConfirm", mock.Anything, mock.MatchedBy(func(req transaction.Request) bool {
		return req.Operation == ixClosePosition && req.Mint.Equals(f.mint)
	})).Return(&transaction.Status{Signature: "closed"}, nil).Once()

	status, err := f.lifecycle.ClosePosition(context.Background(), f.holder, solana.PublicKey{}, f.mint)
	require.NoError(t, err)
	assert.Equal(t, "closed", status.Signature)
	f.submitter.AssertExpectations(t)
}

func TestClosePositionChecksHolding(t *testing.T) {
	tests := []struct {
		name   string
		owner  func(f *lifecycleFixture) solana.PublicKey
		amount uint64
		state  ledger.AccountState
		want   error
	}{
		{"frozen", func(f *lifecycleFixture) solana.PublicKey { return f.holder.PublicKey }, 1, ledger.AccountFrozen, ledger.ErrAccountFrozen},
		{"empty", func(f *lifecycleFixture) solana.PublicKey { return f.holder.PublicKey }, 0, ledger.AccountInitialized, domain.ErrInconsistentState},
		{"not holder", func(*lifecycleFixture) solana.PublicKey { return key() }, 1, ledger.AccountInitialized, domain.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLifecycleFixture(t)
			f.onChain(tt.owner(f), tt.amount, tt.state)

			_, err := f.lifecycle.ClosePosition(context.Background(), f.holder, key(), f.mint)
			assert.ErrorIs(t, err, tt.want)
			f.submitter.AssertNotCalled(t, "SendAndConfirm", mock.Anything, mock.Anything)
		})
	}
}

func TestLifecycleTransferPosition(t *testing.T) {
	f := newLifecycleFixture(t)
	recipient := key()

	_, err := f.lifecycle.TransferPosition(context.Background(), f.holder, f.holder.PublicKey, f.mint)
	assert.Error(t, err)

	f.onChain(f.holder.PublicKey, 1, ledger.AccountInitialized)
	f.submitter.On("SendAndConfirm", mock.Anything, mock.MatchedBy(func(req transaction.Request) bool {
		return len(req.Instructions) == 2 && req.Instructions[1].ProgramID().Equals(ledger.Token2022ProgramID)
	})).Return(&transaction.Status{Signature: "moved"}, nil).Once()

	status, err := f.lifecycle.TransferPosition(context.Background(), f.holder, recipient, f.mint)
	require.NoError(t, err)
	assert.Equal(t, "moved", status.Signature)
}

func TestLifecycleInitializeReward(t *testing.T) {
	f := newLifecycleFixture(t)
	rewardMint := key()
	authorityWallet, err := wallet.NewRandomWallet()
	require.NoError(t, err)

	f.client.On("GetAccountInfo", mock.Anything, rewardMint).
		Return(accountResult(ledger.TokenProgramID, mintBytes(nil, 1_000_000, nil)), nil).Once()
	f.submitter.On("SendAndConfirm", mock.Anything, mock.MatchedBy(func(req transaction.Request) bool {
		return req.Operation == ixInitializeReward && len(req.Signers) == 2
	})).Return(&transaction.Status{Signature: "bound"}, nil).Once()

	vault, status, err := f.lifecycle.InitializeReward(context.Background(), RewardRequest{
		RewardAuthority:  authorityWallet,
		Funder:           f.holder,
		Whirlpool:        key(),
		WhirlpoolsConfig: key(),
		RewardMint:       rewardMint,
		Index:            0,
	})
	require.NoError(t, err)
	assert.False(t, vault.IsZero())
	assert.Equal(t, "bound", status.Signature)

	missing := key()
	f.client.On("GetAccountInfo", mock.Anything, missing).Return(nil, rpc.ErrNotFound).Once()
	_, _, err = f.lifecycle.InitializeReward(context.Background(), RewardRequest{
		RewardAuthority: authorityWallet, Funder: f.holder, RewardMint: missing,
	})
	assert.Error(t, err)
}
