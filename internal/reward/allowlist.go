// internal/reward/allowlist.go
package reward

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

// AllowList answers whether mint is supported for config, given the
// caller-supplied witness account.
type AllowList interface {
	Supported(ctx context.Context, config solana.PublicKey, mint *ledger.Mint, witness solana.PublicKey) (bool, error)
}

// AllowListFunc adapts a function to AllowList.
type AllowListFunc func(ctx context.Context, config solana.PublicKey, mint *ledger.Mint, witness solana.PublicKey) (bool, error)

// Supported calls f.
func (f AllowListFunc) Supported(ctx context.Context, config solana.PublicKey, mint *ledger.Mint, witness solana.PublicKey) (bool, error) {
	return f(ctx, config, mint, witness)
}

// StaticAllowList accepts an explicit set of mints for any config.
type StaticAllowList struct {
	mints map[solana.PublicKey]struct{}
}

// NewStaticAllowList creates an allow-list of mints.
func NewStaticAllowList(mints ...solana.PublicKey) *StaticAllowList {
	s := &StaticAllowList{mints: make(map[solana.PublicKey]struct{}, len(mints))}
	for _, m := range mints {
		s.mints[m] = struct{}{}
	}
	return s
}

// Supported implements AllowList.
func (s *StaticAllowList) Supported(_ context.Context, _ solana.PublicKey, mint *ledger.Mint, _ solana.PublicKey) (bool, error) {
	_, ok := s.mints[mint.Address]
	return ok, nil
}

// BadgeAllowList accepts mints whose token badge, issued by the config's
// authority, is initialized. The witness must be the badge address itself.
type BadgeAllowList struct {
	mu     sync.RWMutex
	badges map[solana.PublicKey]struct{}
}

// NewBadgeAllowList creates a badge registry holding badges.
func NewBadgeAllowList(badges ...solana.PublicKey) *BadgeAllowList {
	b := &BadgeAllowList{badges: make(map[solana.PublicKey]struct{}, len(badges))}
	for _, badge := range badges {
		b.badges[badge] = struct{}{}
	}
	return b
}

// Issue initializes a badge.
func (b *BadgeAllowList) Issue(badge solana.PublicKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.badges[badge] = struct{}{}
}

// Supported implements AllowList.
func (b *BadgeAllowList) Supported(_ context.Context, _ solana.PublicKey, _ *ledger.Mint, witness solana.PublicKey) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.badges[witness]
	return ok, nil
}

// safeExtensions are Token-2022 mint extensions a pool accepts without a badge.
var safeExtensions = map[ledger.ExtensionType]struct{}{
	ledger.ExtensionTransferFeeConfig:     {},
	ledger.ExtensionInterestBearingConfig: {},
	ledger.ExtensionMetadataPointer:       {},
	ledger.ExtensionTokenMetadata:         {},
}

// ExtensionAllowList accepts every legacy token mint and Token-2022 mints
// that have no freeze authority and only carry safe extensions.
type ExtensionAllowList struct{}

// Supported implements AllowList.
func (ExtensionAllowList) Supported(_ context.Context, _ solana.PublicKey, mint *ledger.Mint, _ solana.PublicKey) (bool, error) {
	if mint.Program.Equals(ledger.TokenProgramID) {
		return true, nil
	}
	if !mint.FreezeAuthority.IsNone() {
		return false, nil
	}
	for _, ext := range mint.Extensions {
		if _, ok := safeExtensions[ext]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// AnyOf accepts a mint when any of lists does.
func AnyOf(lists ...AllowList) AllowList {
	return AllowListFunc(func(ctx context.Context, config solana.PublicKey, mint *ledger.Mint, witness solana.PublicKey) (bool, error) {
		for _, l := range lists {
			ok, err := l.Supported(ctx, config, mint, witness)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
}
