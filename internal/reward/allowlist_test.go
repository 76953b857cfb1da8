package reward

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

func TestStaticAllowList(t *testing.T) {
	ctx := context.Background()
	listed := &ledger.Mint{Address: solana.NewWallet().PublicKey()}
	other := &ledger.Mint{Address: solana.NewWallet().PublicKey()}
	l := NewStaticAllowList(listed.Address)

	ok, err := l.Supported(ctx, solana.PublicKey{}, listed, solana.PublicKey{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Supported(ctx, solana.PublicKey{}, other, solana.PublicKey{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBadgeAllowList(t *testing.T) {
	ctx := context.Background()
	badge := solana.NewWallet().PublicKey()
	l := NewBadgeAllowList()
	mint := &ledger.Mint{Address: solana.NewWallet().PublicKey()}

	ok, err := l.Supported(ctx, solana.PublicKey{}, mint, badge)
	require.NoError(t, err)
	assert.False(t, ok)

	l.Issue(badge)
	ok, err = l.Supported(ctx, solana.PublicKey{}, mint, badge)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExtensionAllowList(t *testing.T) {
	freezer := authority.Controlled(solana.NewWallet().PublicKey())
	tests := []struct {
		name string
		mint ledger.Mint
		want bool
	}{
		{"legacy token", ledger.Mint{Program: ledger.TokenProgramID, FreezeAuthority: freezer}, true},
		{"plain token-2022", ledger.Mint{Program: ledger.Token2022ProgramID}, true},
		{"token-2022 with freeze authority", ledger.Mint{Program: ledger.Token2022ProgramID, FreezeAuthority: freezer}, false},
		{
			"transfer fee and metadata",
			ledger.Mint{Program: ledger.Token2022ProgramID, Extensions: []ledger.ExtensionType{
				ledger.ExtensionTransferFeeConfig, ledger.ExtensionMetadataPointer, ledger.ExtensionTokenMetadata,
			}},
			true,
		},
		{
			"permanent delegate",
			ledger.Mint{Program: ledger.Token2022ProgramID, Extensions: []ledger.ExtensionType{ledger.ExtensionPermanentDelegate}},
			false,
		},
		{
			"transfer hook",
			ledger.Mint{Program: ledger.Token2022ProgramID, Extensions: []ledger.ExtensionType{ledger.ExtensionTransferHook}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ExtensionAllowList{}.Supported(context.Background(), solana.PublicKey{}, &tt.mint, solana.PublicKey{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAnyOf(t *testing.T) {
	ctx := context.Background()
	badge := solana.NewWallet().PublicKey()
	mint := &ledger.Mint{Program: ledger.Token2022ProgramID, Extensions: []ledger.ExtensionType{ledger.ExtensionTransferHook}}
	l := AnyOf(ExtensionAllowList{}, NewBadgeAllowList(badge))

	ok, err := l.Supported(ctx, solana.PublicKey{}, mint, badge)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Supported(ctx, solana.PublicKey{}, mint, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("badge lookup failed")
	failing := AnyOf(AllowListFunc(func(context.Context, solana.PublicKey, *ledger.Mint, solana.PublicKey) (bool, error) {
		return false, boom
	}))
	_, err = failing.Supported(ctx, solana.PublicKey{}, mint, badge)
	assert.ErrorIs(t, err, boom)
}
