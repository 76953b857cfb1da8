// internal/blockchain/solbc/helpers_test.go
package solbc

import (
	"bytes"
	"context"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"

	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

var whirlpoolProgram = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

func key() solana.PublicKey { return solana.NewWallet().PublicKey() }

type clientMock struct {
	mock.Mock
}

var _ blockchain.Client = (*clientMock)(nil)

func (m *clientMock) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *clientMock) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *clientMock) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, pubkey)
	res, _ := args.Get(0).(*rpc.GetAccountInfoResult)
	return res, args.Error(1)
}

func (m *clientMock) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	args := m.Called(ctx, pubkeys)
	res, _ := args.Get(0).(*rpc.GetMultipleAccountsResult)
	return res, args.Error(1)
}

func (m *clientMock) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, signatures)
	res, _ := args.Get(0).(*rpc.GetSignatureStatusesResult)
	return res, args.Error(1)
}

func (m *clientMock) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	args := m.Called(ctx, tx)
	res, _ := args.Get(0).(*blockchain.SimulationResult)
	return res, args.Error(1)
}

func (m *clientMock) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, pubkey, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *clientMock) GetMinimumBalanceForRentExemption(ctx context.Context, space uint64) (uint64, error) {
	args := m.Called(ctx, space)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *clientMock) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error {
	return m.Called(ctx, signature, commitment).Error(0)
}

type submitterMock struct {
	mock.Mock
}

func (m *submitterMock) SendAndConfirm(ctx context.Context, req transaction.Request) (*transaction.Status, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*transaction.Status)
	return res, args.Error(1)
}

func accountResult(owner solana.PublicKey, data []byte) *rpc.GetAccountInfoResult {
	return &rpc.GetAccountInfoResult{Value: &rpc.Account{
		Owner: owner,
		Data:  rpc.DataBytesOrJSONFromBytes(data),
	}}
}

func coption(key *solana.PublicKey) []byte {
	out := make([]byte, 36)
	if key != nil {
		out[0] = 1
		copy(out[4:], key[:])
	}
	return out
}

// mintBytes encodes the base mint layout.
func mintBytes(mintAuthority *solana.PublicKey, supply uint64, freeze *solana.PublicKey) []byte {
	buf := new(bytes.Buffer)
	buf.Write(coption(mintAuthority))
	_ = binary.Write(buf, binary.LittleEndian, supply)
	buf.WriteByte(0) // decimals
	buf.WriteByte(1) // initialized
	buf.Write(coption(freeze))
	return buf.Bytes()
}

// accountBytes encodes the base token account layout.
func accountBytes(mint, owner solana.PublicKey, amount uint64, state ledger.AccountState) []byte {
	buf := new(bytes.Buffer)
	buf.Write(mint[:])
	buf.Write(owner[:])
	_ = binary.Write(buf, binary.LittleEndian, amount)
	buf.Write(coption(nil))
	buf.WriteByte(byte(state))
	buf.Write(make([]byte, 12)) // is_native
	buf.Write(make([]byte, 8))  // delegated_amount
	buf.Write(coption(nil))
	return buf.Bytes()
}

func tlv(ext ledger.ExtensionType, value []byte) []byte {
	out := make([]byte, 4, 4+len(value))
	binary.LittleEndian.PutUint16(out[0:2], uint16(ext))
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(value)))
	return append(out, value...)
}

// withExtensions pads base to the account-type offset and appends entries.
func withExtensions(base []byte, accountType byte, entries ...[]byte) []byte {
	out := make([]byte, ledger.AccountBaseSize, ledger.AccountBaseSize+1)
	copy(out, base)
	out = append(out, accountType)
	for _, e := range entries {
		out = append(out, e...)
	}
	return out
}

func metadataValue(update, mint solana.PublicKey, name, symbol, uri string) []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	_ = enc.Encode(tokenMetadataLayout{UpdateAuthority: update, Mint: mint, Name: name, Symbol: symbol, URI: uri})
	buf.Write([]byte{0, 0, 0, 0}) // no additional metadata
	return buf.Bytes()
}
