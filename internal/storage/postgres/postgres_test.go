// internal/storage/postgres/postgres_test.go
package postgres

import (
	"context"
	"os"
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

// newTestStorage connects to WHIRLPOOL_TEST_DSN or skips.
func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	dsn := os.Getenv("WHIRLPOOL_TEST_DSN")
	if dsn == "" {
		t.Skip("WHIRLPOOL_TEST_DSN not set")
	}
	s, err := NewStorage(dsn, DefaultOptions(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.RunMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPoolRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	pool := reward.NewPool(key(), key(), key())
	require.NoError(t, s.SavePool(ctx, pool))

	require.NoError(t, pool.InitializeReward(0, key(), key()))
	require.NoError(t, s.SavePool(ctx, pool))

	got, err := s.GetPool(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, pool.RewardInfos, got.RewardInfos)

	_, err = s.GetPool(ctx, key())
	assert.ErrorIs(t, err, reward.ErrPoolNotFound)
}

func TestSavePoolRejectsRebind(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	pool := reward.NewPool(key(), key(), key())
	require.NoError(t, s.SavePool(ctx, pool))
	stale := pool.Clone()

	require.NoError(t, pool.InitializeReward(0, key(), key()))
	require.NoError(t, s.SavePool(ctx, pool))

	require.NoError(t, stale.InitializeReward(0, key(), key()))
	assert.ErrorIs(t, s.SavePool(ctx, stale), domain.ErrSlotAlreadyBound)

	got, err := s.GetPool(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, pool.RewardInfos, got.RewardInfos)
}

func TestJournalRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	pos, err := position.New(whirlpoolProgram, key(), key())
	require.NoError(t, err)
	intent := position.NewIntent(pos, key(), key(), key())
	require.NoError(t, s.Begin(ctx, intent))

	require.NoError(t, s.Mark(ctx, intent.ID, position.StepBurned))
	require.NoError(t, s.Mark(ctx, intent.ID, position.StepBurned))

	pending, err := s.Pending(ctx, pos.Mint)
	require.NoError(t, err)
	assert.Equal(t, []position.Step{position.StepBurned}, pending.Completed)

	require.NoError(t, s.Mark(ctx, intent.ID, position.StepAccountClosed))
	require.NoError(t, s.Mark(ctx, intent.ID, position.StepMintClosed))
	_, err = s.Pending(ctx, pos.Mint)
	assert.ErrorIs(t, err, position.ErrNoIntent)
}

func TestTransactionStatus(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	sig := solana.SignatureFromBytes(key().Bytes()).String()

	require.NoError(t, s.SaveTransaction(ctx, &models.Transaction{
		Signature: sig,
		Operation: "open_position_with_token_extensions",
		Payer:     key().String(),
		Status:    models.TransactionPending,
	}))
	require.NoError(t, s.UpdateTransactionStatus(ctx, sig, models.TransactionConfirmed, ""))

	tx, err := s.GetTransaction(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionConfirmed, tx.Status)
	assert.NotNil(t, tx.ConfirmedAt)

	assert.ErrorIs(t, s.UpdateTransactionStatus(ctx, "missing", models.TransactionFailed, ""), storage.ErrTransactionNotFound)
}
