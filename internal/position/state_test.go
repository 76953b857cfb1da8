package position

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.Stage
		want     bool
	}{
		{domain.StageUnallocated, domain.StageAllocated, true},
		{domain.StageUnallocated, domain.StageFinalized, false},
		{domain.StageFinalized, domain.StageDelivered, true},
		{domain.StageFinalized, domain.StageFrozen, false},
		{domain.StageDelivered, domain.StageFrozen, true},
		{domain.StageDelivered, domain.StageThawed, false},
		{domain.StageFrozen, domain.StageFrozen, false},
		{domain.StageFrozen, domain.StageThawed, true},
		{domain.StageFrozen, domain.StageBurned, false},
		{domain.StageThawed, domain.StageThawed, false},
		{domain.StageThawed, domain.StageFrozen, true},
		{domain.StageThawed, domain.StageBurned, true},
		{domain.StageDelivered, domain.StageClosed, false},
		{domain.StageBurned, domain.StageClosed, true},
		{domain.StageClosed, domain.StageAllocated, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTrackerAdvance(t *testing.T) {
	tr := NewTracker()
	mint := solana.NewWallet().PublicKey()
	position := solana.NewWallet().PublicKey()

	assert.Equal(t, domain.StageUnallocated, tr.Stage(mint))

	transitions, err := tr.Advance(mint, position, domain.StageAllocated, domain.StageFinalized, domain.StageDelivered)
	require.NoError(t, err)
	require.Len(t, transitions, 3)
	assert.Equal(t, domain.StageUnallocated, transitions[0].From)
	assert.Equal(t, domain.StageDelivered, transitions[2].To)
	assert.Equal(t, domain.StageDelivered, tr.Stage(mint))
	assert.NoError(t, tr.Transferable(mint))

	// an illegal path leaves the stage untouched
	_, err = tr.Advance(mint, position, domain.StageFrozen, domain.StageBurned)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StageDelivered, tr.Stage(mint))

	_, err = tr.Advance(mint, position, domain.StageFrozen)
	require.NoError(t, err)
	assert.ErrorIs(t, tr.Transferable(mint), domain.ErrInvalidTransition)
	assert.ErrorIs(t, tr.Check(mint, domain.StageFrozen), domain.ErrInvalidTransition)
	assert.NoError(t, tr.Check(mint, domain.StageThawed, domain.StageBurned, domain.StageClosed))
}
