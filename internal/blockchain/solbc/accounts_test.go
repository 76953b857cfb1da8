// internal/blockchain/solbc/accounts_test.go
package solbc

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

func TestDecodeMintBase(t *testing.T) {
	auth := key()
	address := key()

	m, err := DecodeMint(address, ledger.TokenProgramID, mintBytes(&auth, 5, nil))
	require.NoError(t, err)
	assert.True(t, m.MintAuthority.Is(auth))
	assert.True(t, m.FreezeAuthority.IsNone())
	assert.Equal(t, uint64(5), m.Supply)
	assert.True(t, m.IsInitialized)
	assert.Empty(t, m.Extensions)

	_, err = DecodeMint(address, solana.SystemProgramID, mintBytes(&auth, 5, nil))
	assert.ErrorIs(t, err, ErrNotTokenAccount)
	_, err = DecodeMint(address, ledger.TokenProgramID, make([]byte, 10))
	assert.Error(t, err)
}

func TestDecodePositionMint(t *testing.T) {
	address, position, pool := key(), key(), key()
	pointer := append(make([]byte, 32), address[:]...)
	data := withExtensions(mintBytes(nil, 1, &position), 1,
		tlv(ledger.ExtensionMintCloseAuthority, position[:]),
		tlv(ledger.ExtensionMetadataPointer, pointer),
		tlv(ledger.ExtensionTokenMetadata, metadataValue(key(), address, "OWP ABCD...WXYZ", "OWP",
			"https://position-nft.orca.so/meta/"+pool.String()+"/"+position.String())),
	)

	m, err := DecodeMint(address, ledger.Token2022ProgramID, data)
	require.NoError(t, err)
	assert.True(t, m.MintAuthority.IsNone())
	assert.True(t, m.FreezeAuthority.Is(position))
	assert.True(t, m.CloseAuthority.Is(position))
	assert.Equal(t, []ledger.ExtensionType{
		ledger.ExtensionMintCloseAuthority,
		ledger.ExtensionMetadataPointer,
		ledger.ExtensionTokenMetadata,
	}, m.Extensions)
	require.NotNil(t, m.MetadataPointer)
	assert.True(t, m.MetadataPointer.Authority.IsNone())
	assert.True(t, m.MetadataPointer.MetadataAddress.Is(address))
	require.NotNil(t, m.Metadata)
	assert.Equal(t, "OWP ABCD...WXYZ", m.Metadata.Name)
	assert.Contains(t, m.Metadata.URI, pool.String())
}

func TestDecodeMintRejectsWrongAccountType(t *testing.T) {
	data := withExtensions(mintBytes(nil, 0, nil), 2)
	_, err := DecodeMint(key(), ledger.Token2022ProgramID, data)
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountData)

	truncated := withExtensions(mintBytes(nil, 0, nil), 1, tlv(ledger.ExtensionMintCloseAuthority, make([]byte, 32))[:20])
	_, err = DecodeMint(key(), ledger.Token2022ProgramID, truncated)
	assert.Error(t, err)
}

func TestDecodeTokenAccount(t *testing.T) {
	mint, owner, address := key(), key(), key()

	a, err := DecodeTokenAccount(address, ledger.TokenProgramID, accountBytes(mint, owner, 1, ledger.AccountInitialized))
	require.NoError(t, err)
	assert.Equal(t, mint, a.Mint)
	assert.Equal(t, owner, a.Owner)
	assert.Equal(t, uint64(1), a.Amount)
	assert.False(t, a.IsFrozen())

	data := withExtensions(accountBytes(mint, owner, 1, ledger.AccountFrozen), 2, tlv(ledger.ExtensionImmutableOwner, nil))
	a, err = DecodeTokenAccount(address, ledger.Token2022ProgramID, data)
	require.NoError(t, err)
	assert.True(t, a.IsFrozen())
	assert.Equal(t, []ledger.ExtensionType{ledger.ExtensionImmutableOwner}, a.Extensions)
	assert.Len(t, data, 170)
}

func TestFetchPositionState(t *testing.T) {
	ctx := context.Background()
	mint, holder := key(), key()
	account, err := ledger.FindAssociatedTokenAddress(holder, mint, ledger.Token2022ProgramID)
	require.NoError(t, err)

	client := new(clientMock)
	client.On("GetAccountInfo", mock.Anything, mint).Return(accountResult(ledger.Token2022ProgramID, mintBytes(nil, 1, nil)), nil)
	client.On("GetAccountInfo", mock.Anything, account).Return(nil, rpc.ErrNotFound)

	state, err := FetchPositionState(ctx, client, mint, account)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.Mint.Supply)
	assert.Nil(t, state.Account)

	missing := new(clientMock)
	missing.On("GetAccountInfo", mock.Anything, mint).Return(nil, rpc.ErrNotFound)
	missing.On("GetAccountInfo", mock.Anything, account).Return(nil, rpc.ErrNotFound)
	_, err = FetchPositionState(ctx, missing, mint, account)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	broken := new(clientMock)
	broken.On("GetAccountInfo", mock.Anything, mint).Return(nil, errors.New("connection reset"))
	broken.On("GetAccountInfo", mock.Anything, account).Return(nil, rpc.ErrNotFound).Maybe()
	_, err = FetchPositionState(ctx, broken, mint, account)
	assert.ErrorContains(t, err, "connection reset")
}
