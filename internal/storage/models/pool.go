// internal/storage/models/pool.go
package models

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/rovshanmuradov/whirlpool-positions/internal/reward"
)

// Pool is the persisted reward-slot state of a whirlpool.
type Pool struct {
	BaseModel
	Address string       `gorm:"unique;not null;type:varchar(44)"`
	Config  string       `gorm:"index;not null;type:varchar(44)"`
	Slots   []RewardSlot `gorm:"foreignKey:PoolAddress;references:Address"`
}

// RewardSlot is one reward-slot descriptor. Unbound slots keep empty mint
// and vault columns.
type RewardSlot struct {
	BaseModel
	PoolAddress           string `gorm:"uniqueIndex:idx_pool_slot;not null;type:varchar(44)"`
	SlotIndex             int    `gorm:"uniqueIndex:idx_pool_slot;not null"`
	Mint                  string `gorm:"type:varchar(44)"`
	Vault                 string `gorm:"type:varchar(44)"`
	Authority             string `gorm:"not null;type:varchar(44)"`
	EmissionsPerSecondX64 string `gorm:"type:numeric(39,0);default:0"`
	GrowthGlobalX64       string `gorm:"type:numeric(39,0);default:0"`
}

// FromPool converts a pool record into its persisted form.
func FromPool(p *reward.Pool) *Pool {
	out := &Pool{
		Address: p.Address.String(),
		Config:  p.Config.String(),
		Slots:   make([]RewardSlot, 0, reward.NumRewards),
	}
	for i, r := range p.RewardInfos {
		slot := RewardSlot{
			PoolAddress:           out.Address,
			SlotIndex:             i,
			Authority:             r.Authority.String(),
			EmissionsPerSecondX64: r.EmissionsPerSecondX64.String(),
			GrowthGlobalX64:       r.GrowthGlobalX64.String(),
		}
		if r.Initialized() {
			slot.Mint = r.Mint.String()
			slot.Vault = r.Vault.String()
		}
		out.Slots = append(out.Slots, slot)
	}
	return out
}

// ToPool converts the persisted form back into a pool record.
func (p *Pool) ToPool() (*reward.Pool, error) {
	address, err := solana.PublicKeyFromBase58(p.Address)
	if err != nil {
		return nil, fmt.Errorf("pool address: %w", err)
	}
	config, err := solana.PublicKeyFromBase58(p.Config)
	if err != nil {
		return nil, fmt.Errorf("pool config: %w", err)
	}
	out := &reward.Pool{Address: address, Config: config}

	for _, s := range p.Slots {
		if s.SlotIndex < 0 || s.SlotIndex >= reward.NumRewards {
			return nil, fmt.Errorf("pool %s: slot index %d out of range", p.Address, s.SlotIndex)
		}
		info := &out.RewardInfos[s.SlotIndex]
		if info.Authority, err = solana.PublicKeyFromBase58(s.Authority); err != nil {
			return nil, fmt.Errorf("slot %d authority: %w", s.SlotIndex, err)
		}
		if s.Mint != "" {
			if info.Mint, err = solana.PublicKeyFromBase58(s.Mint); err != nil {
				return nil, fmt.Errorf("slot %d mint: %w", s.SlotIndex, err)
			}
			if info.Vault, err = solana.PublicKeyFromBase58(s.Vault); err != nil {
				return nil, fmt.Errorf("slot %d vault: %w", s.SlotIndex, err)
			}
		}
		if info.EmissionsPerSecondX64, err = parseUint128(s.EmissionsPerSecondX64); err != nil {
			return nil, fmt.Errorf("slot %d emissions: %w", s.SlotIndex, err)
		}
		if info.GrowthGlobalX64, err = parseUint128(s.GrowthGlobalX64); err != nil {
			return nil, fmt.Errorf("slot %d growth: %w", s.SlotIndex, err)
		}
	}
	return out, nil
}

func parseUint128(s string) (uint128.Uint128, error) {
	if s == "" {
		return uint128.Zero, nil
	}
	return uint128.FromString(s)
}
