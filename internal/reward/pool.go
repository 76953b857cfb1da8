// internal/reward/pool.go
package reward

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
)

// NumRewards is the fixed reward-slot capacity of a pool.
const NumRewards = 3

// ErrPoolNotFound is returned by a PoolStore for an unknown pool.
var ErrPoolNotFound = errors.New("pool not found")

// RewardInfo is one reward-slot descriptor of a pool.
type RewardInfo struct {
	Mint                  solana.PublicKey
	Vault                 solana.PublicKey
	Authority             solana.PublicKey
	EmissionsPerSecondX64 uint128.Uint128
	GrowthGlobalX64       uint128.Uint128
}

// Initialized reports whether a mint is bound to the slot.
func (r RewardInfo) Initialized() bool {
	return !r.Mint.IsZero()
}

// Pool is the reward-slot state of a whirlpool.
type Pool struct {
	Address     solana.PublicKey
	Config      solana.PublicKey
	RewardInfos [NumRewards]RewardInfo
}

// NewPool creates a pool whose slots are all controlled by rewardAuthority.
func NewPool(address, config, rewardAuthority solana.PublicKey) *Pool {
	p := &Pool{Address: address, Config: config}
	for i := range p.RewardInfos {
		p.RewardInfos[i].Authority = rewardAuthority
	}
	return p
}

// CheckIndex validates a slot index for binding: it must be within capacity,
// unbound, and the lowest unbound slot.
func (p *Pool) CheckIndex(index int) error {
	const op = "initialize_reward"
	if index < 0 || index >= NumRewards {
		return domain.Fail(op, domain.ErrIndexOutOfRange,
			fmt.Errorf("index %d, capacity %d", index, NumRewards))
	}
	if p.RewardInfos[index].Initialized() {
		return domain.Fail(op, domain.ErrSlotAlreadyBound,
			fmt.Errorf("slot %d holds %s", index, p.RewardInfos[index].Mint))
	}
	lowest := p.lowestUnbound()
	if index != lowest {
		return domain.Fail(op, domain.ErrIndexOutOfRange,
			fmt.Errorf("slot %d bound before slot %d", index, lowest))
	}
	return nil
}

// InitializeReward binds mint and vault to slot index. Each slot is bound
// exactly once, in index order.
func (p *Pool) InitializeReward(index int, mint, vault solana.PublicKey) error {
	if err := p.CheckIndex(index); err != nil {
		return err
	}
	p.RewardInfos[index].Mint = mint
	p.RewardInfos[index].Vault = vault
	return nil
}

func (p *Pool) lowestUnbound() int {
	for i, r := range p.RewardInfos {
		if !r.Initialized() {
			return i
		}
	}
	return NumRewards
}

// Clone returns a copy of the pool.
func (p *Pool) Clone() *Pool {
	out := *p
	return &out
}

// CheckRebind rejects writing next over stored when next changes a slot
// stored already holds.
func CheckRebind(stored, next *Pool) error {
	for i, cur := range stored.RewardInfos {
		if !cur.Initialized() {
			continue
		}
		if cur.Mint != next.RewardInfos[i].Mint || cur.Vault != next.RewardInfos[i].Vault {
			return domain.Fail("initialize_reward", domain.ErrSlotAlreadyBound,
				fmt.Errorf("slot %d holds %s", i, cur.Mint))
		}
	}
	return nil
}

// PoolStore is the pool-state collaborator. SavePool must not rebind a
// bound slot (see CheckRebind).
type PoolStore interface {
	GetPool(ctx context.Context, address solana.PublicKey) (*Pool, error)
	SavePool(ctx context.Context, pool *Pool) error
}
