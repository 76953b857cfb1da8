// internal/position/state.go
package position

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
)

// legal lists the stages reachable from each stage. No transition skips a
// stage and Closed is terminal.
var legal = map[domain.Stage][]domain.Stage{
	domain.StageUnallocated: {domain.StageAllocated},
	domain.StageAllocated:   {domain.StageFinalized},
	domain.StageFinalized:   {domain.StageDelivered},
	domain.StageDelivered:   {domain.StageFrozen, domain.StageBurned},
	domain.StageFrozen:      {domain.StageThawed},
	domain.StageThawed:      {domain.StageFrozen, domain.StageBurned},
	domain.StageBurned:      {domain.StageClosed},
}

// CanTransition reports whether a mint may move from one stage to another.
func CanTransition(from, to domain.Stage) bool {
	for _, s := range legal[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Tracker follows the lifecycle stage of each position mint so callers
// never issue a redundant or out-of-order ledger call.
type Tracker struct {
	mu     sync.RWMutex
	stages map[solana.PublicKey]domain.Stage
}

// NewTracker creates an empty tracker. Unknown mints are Unallocated.
func NewTracker() *Tracker {
	return &Tracker{stages: make(map[solana.PublicKey]domain.Stage)}
}

// Stage returns the current stage of mint.
func (t *Tracker) Stage(mint solana.PublicKey) domain.Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stages[mint]
}

// Check validates walking mint through path without applying it.
func (t *Tracker) Check(mint solana.PublicKey, path ...domain.Stage) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, err := t.walk(mint, path)
	return err
}

// Advance walks mint through path and returns the applied transitions.
// Either the whole path is legal and applied or nothing changes.
func (t *Tracker) Advance(mint, position solana.PublicKey, path ...domain.Stage) ([]domain.Transition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	from, err := t.walk(mint, path)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transition, 0, len(path))
	for _, to := range path {
		out = append(out, domain.NewTransition(mint, position, from, to))
		from = to
	}
	t.stages[mint] = from
	return out, nil
}

// Transferable reports whether the token of mint can currently move.
func (t *Tracker) Transferable(mint solana.PublicKey) error {
	switch s := t.Stage(mint); s {
	case domain.StageDelivered, domain.StageThawed:
		return nil
	default:
		return domain.Fail("transfer", domain.ErrInvalidTransition,
			fmt.Errorf("position token is %s", s))
	}
}

// walk must be called with mu held.
func (t *Tracker) walk(mint solana.PublicKey, path []domain.Stage) (domain.Stage, error) {
	from := t.stages[mint]
	cur := from
	for _, to := range path {
		if !CanTransition(cur, to) {
			return from, domain.Fail("advance", domain.ErrInvalidTransition,
				fmt.Errorf("%s cannot move from %s to %s", mint, cur, to))
		}
		cur = to
	}
	return from, nil
}
