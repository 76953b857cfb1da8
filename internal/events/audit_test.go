package events

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
)

func readAudit(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestAuditLogRecordsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "events.csv")
	audit, err := NewAuditLog(path, time.Hour, zap.NewNop())
	require.NoError(t, err)

	mint := solana.NewWallet().PublicKey()
	pos := solana.NewWallet().PublicKey()
	ctx := context.Background()

	require.NoError(t, audit.Handle(ctx, PositionEvent{
		BaseEvent:   NewBase(PositionOpened),
		Mint:        mint,
		Position:    pos,
		Transitions: []domain.Transition{domain.NewTransition(mint, pos, domain.StageFinalized, domain.StageDelivered)},
	}))
	require.NoError(t, audit.Handle(ctx, OperationFailedEvent{
		BaseEvent: NewBase(OperationFailed),
		Operation: "transfer",
		Mint:      mint,
		Kind:      "InvalidTransition",
	}))
	require.NoError(t, audit.Close())

	rows := readAudit(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, auditHeader, rows[0])
	assert.Equal(t, string(PositionOpened), rows[1][1])
	assert.Equal(t, mint.String(), rows[1][2])
	assert.Equal(t, domain.StageDelivered.String(), rows[1][6])
	assert.Equal(t, "transfer: InvalidTransition", rows[2][6])
}

func TestAuditLogAppendsWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	for i := 0; i < 2; i++ {
		audit, err := NewAuditLog(path, time.Hour, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, audit.Handle(context.Background(), RewardInitializedEvent{BaseEvent: NewBase(RewardInitialized)}))
		require.NoError(t, audit.Close())
	}
	assert.Len(t, readAudit(t, path), 3)
}

func TestAuditLogConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	audit, err := NewAuditLog(path, 10*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = audit.Handle(context.Background(), PositionEvent{BaseEvent: NewBase(PositionFrozen)})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, audit.Close())

	records, _ := audit.Stats()
	assert.Equal(t, uint64(100), records)
	assert.Len(t, readAudit(t, path), 101)
}
