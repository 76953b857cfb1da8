// internal/storage/memory/memory_test.go
package memory

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/position"
	"github.com/rovshanmuradov/whirlpool-positions/internal/reward"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage/models"
)

var whirlpoolProgram = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

func key() solana.PublicKey { return solana.NewWallet().PublicKey() }

func TestPoolsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(zap.NewNop())

	_, err := s.GetPool(ctx, key())
	assert.ErrorIs(t, err, reward.ErrPoolNotFound)

	pool := reward.NewPool(key(), key(), key())
	require.NoError(t, s.SavePool(ctx, pool))

	require.NoError(t, pool.InitializeReward(0, key(), key()))
	stored, err := s.GetPool(ctx, pool.Address)
	require.NoError(t, err)
	assert.False(t, stored.RewardInfos[0].Initialized())

	stored.RewardInfos[1].Authority = key()
	again, err := s.GetPool(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, pool.RewardInfos[1].Authority, again.RewardInfos[1].Authority)
}

func TestSavePoolRejectsRebind(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(zap.NewNop())

	pool := reward.NewPool(key(), key(), key())
	require.NoError(t, s.SavePool(ctx, pool))
	stale := pool.Clone()

	require.NoError(t, pool.InitializeReward(0, key(), key()))
	require.NoError(t, s.SavePool(ctx, pool))
	require.NoError(t, s.SavePool(ctx, pool))

	require.NoError(t, stale.InitializeReward(0, key(), key()))
	err := s.SavePool(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrSlotAlreadyBound)

	stored, err := s.GetPool(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, pool.RewardInfos[0], stored.RewardInfos[0])
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(zap.NewNop())
	pos, err := position.New(whirlpoolProgram, key(), key())
	require.NoError(t, err)

	_, err = s.Pending(ctx, pos.Mint)
	assert.ErrorIs(t, err, position.ErrNoIntent)

	intent := position.NewIntent(pos, key(), key(), key())
	require.NoError(t, s.Begin(ctx, intent))
	assert.Error(t, s.Begin(ctx, intent))

	require.NoError(t, s.Mark(ctx, intent.ID, position.StepBurned))
	require.NoError(t, s.Mark(ctx, intent.ID, position.StepBurned))

	pending, err := s.Pending(ctx, pos.Mint)
	require.NoError(t, err)
	assert.Equal(t, []position.Step{position.StepBurned}, pending.Completed)

	for _, step := range position.TeardownSteps[1:] {
		require.NoError(t, s.Mark(ctx, intent.ID, step))
	}
	_, err = s.Pending(ctx, pos.Mint)
	assert.ErrorIs(t, err, position.ErrNoIntent)

	assert.ErrorIs(t, s.Mark(ctx, position.NewIntent(pos, key(), key(), key()).ID, position.StepBurned), position.ErrNoIntent)
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(zap.NewNop())
	mint := key().String()

	_, err := s.GetTransaction(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrTransactionNotFound)

	for _, sig := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveTransaction(ctx, &models.Transaction{
			Signature: sig,
			Operation: "open_position",
			Mint:      mint,
			Status:    models.TransactionPending,
		}))
	}
	assert.Error(t, s.SaveTransaction(ctx, &models.Transaction{Signature: "a"}))

	txs, err := s.ListTransactions(ctx, mint, 2, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	txs, err = s.ListTransactions(ctx, mint, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, txs)

	require.NoError(t, s.UpdateTransactionStatus(ctx, "b", models.TransactionConfirmed, ""))
	tx, err := s.GetTransaction(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionConfirmed, tx.Status)
	assert.NotNil(t, tx.ConfirmedAt)

	assert.ErrorIs(t, s.UpdateTransactionStatus(ctx, "zzz", models.TransactionFailed, "x"), storage.ErrTransactionNotFound)
}
