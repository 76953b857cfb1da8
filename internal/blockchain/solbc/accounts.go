// internal/blockchain/solbc/accounts.go
package solbc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

var (
	ErrAccountNotFound = ledger.ErrAccountNotFound
	ErrNotTokenAccount = errors.New("account is not owned by a token program")
)

const (
	accountTypeOffset = ledger.AccountBaseSize
	accountTypeMint   = 1
	accountTypeHolder = 2
)

// DecodeMint decodes a mint account of either token program, including the
// Token-2022 extensions this system reads.
func DecodeMint(address, owner solana.PublicKey, data []byte) (*ledger.Mint, error) {
	if !ledger.IsTokenProgram(owner) {
		return nil, fmt.Errorf("%w: %s", ErrNotTokenAccount, address)
	}
	if len(data) < ledger.MintBaseSize {
		return nil, fmt.Errorf("mint %s: short data (%d bytes)", address, len(data))
	}
	var base token.Mint
	if err := base.UnmarshalWithDecoder(bin.NewBinDecoder(data[:ledger.MintBaseSize])); err != nil {
		return nil, fmt.Errorf("mint %s: %w", address, err)
	}
	m := &ledger.Mint{
		Address:         address,
		Program:         owner,
		MintAuthority:   authority.FromOptional(base.MintAuthority),
		FreezeAuthority: authority.FromOptional(base.FreezeAuthority),
		Supply:          base.Supply,
		Decimals:        base.Decimals,
		IsInitialized:   base.IsInitialized,
	}
	if len(data) <= ledger.MintBaseSize {
		return m, nil
	}
	if len(data) <= accountTypeOffset || data[accountTypeOffset] != accountTypeMint {
		return nil, fmt.Errorf("mint %s: %w", address, ledger.ErrInvalidAccountData)
	}
	err := walkExtensions(data[accountTypeOffset+1:], func(ext ledger.ExtensionType, value []byte) error {
		m.Extensions = append(m.Extensions, ext)
		switch ext {
		case ledger.ExtensionMintCloseAuthority:
			m.CloseAuthority = optionalKey(value)
		case ledger.ExtensionMetadataPointer:
			if len(value) < 64 {
				return fmt.Errorf("metadata pointer: short value")
			}
			m.MetadataPointer = &ledger.MetadataPointer{
				Authority:       optionalKey(value[:32]),
				MetadataAddress: optionalKey(value[32:64]),
			}
		case ledger.ExtensionTokenMetadata:
			md, err := decodeTokenMetadata(value)
			if err != nil {
				return err
			}
			m.Metadata = md
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mint %s: %w", address, err)
	}
	return m, nil
}

// DecodeTokenAccount decodes a holding account of either token program.
func DecodeTokenAccount(address, owner solana.PublicKey, data []byte) (*ledger.TokenAccount, error) {
	if !ledger.IsTokenProgram(owner) {
		return nil, fmt.Errorf("%w: %s", ErrNotTokenAccount, address)
	}
	if len(data) < ledger.AccountBaseSize {
		return nil, fmt.Errorf("token account %s: short data (%d bytes)", address, len(data))
	}
	var base token.Account
	if err := base.UnmarshalWithDecoder(bin.NewBinDecoder(data[:ledger.AccountBaseSize])); err != nil {
		return nil, fmt.Errorf("token account %s: %w", address, err)
	}
	a := &ledger.TokenAccount{
		Address: address,
		Mint:    base.Mint,
		Owner:   base.Owner,
		Amount:  base.Amount,
		State:   ledger.AccountState(base.State),
	}
	if len(data) == ledger.AccountBaseSize {
		return a, nil
	}
	if data[accountTypeOffset] != accountTypeHolder {
		return nil, fmt.Errorf("token account %s: %w", address, ledger.ErrInvalidAccountData)
	}
	err := walkExtensions(data[accountTypeOffset+1:], func(ext ledger.ExtensionType, _ []byte) error {
		a.Extensions = append(a.Extensions, ext)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("token account %s: %w", address, err)
	}
	return a, nil
}

// walkExtensions visits the TLV entries of a Token-2022 account.
func walkExtensions(tlv []byte, visit func(ledger.ExtensionType, []byte) error) error {
	for len(tlv) >= 4 {
		ext := ledger.ExtensionType(binary.LittleEndian.Uint16(tlv[0:2]))
		length := int(binary.LittleEndian.Uint16(tlv[2:4]))
		if ext == ledger.ExtensionUninitialized {
			return nil
		}
		if len(tlv) < 4+length {
			return fmt.Errorf("extension %s: truncated value", ext)
		}
		if err := visit(ext, tlv[4:4+length]); err != nil {
			return err
		}
		tlv = tlv[4+length:]
	}
	return nil
}

// optionalKey decodes an OptionalNonZeroPubkey; all zeroes is None.
func optionalKey(b []byte) authority.Authority {
	if len(b) < 32 {
		return authority.None()
	}
	key := solana.PublicKeyFromBytes(b[:32])
	if key.IsZero() {
		return authority.None()
	}
	return authority.Controlled(key)
}

type tokenMetadataLayout struct {
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
}

func decodeTokenMetadata(value []byte) (*ledger.TokenMetadata, error) {
	var raw tokenMetadataLayout
	if err := bin.NewBorshDecoder(value).Decode(&raw); err != nil {
		return nil, fmt.Errorf("token metadata: %w", err)
	}
	return &ledger.TokenMetadata{
		UpdateAuthority: optionalKey(raw.UpdateAuthority[:]),
		Mint:            raw.Mint,
		Name:            raw.Name,
		Symbol:          raw.Symbol,
		URI:             raw.URI,
	}, nil
}

// PositionState is the on-chain state of a position token.
type PositionState struct {
	Mint    *ledger.Mint
	Account *ledger.TokenAccount
}

// FetchPositionState loads the position mint and a holding account in
// parallel. A missing holding account leaves Account nil.
func FetchPositionState(ctx context.Context, client blockchain.Client, mint, account solana.PublicKey) (*PositionState, error) {
	var state PositionState
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		info, err := client.GetAccountInfo(gctx, mint)
		if err != nil && !errors.Is(err, rpc.ErrNotFound) {
			return fmt.Errorf("fetch mint %s: %w", mint, err)
		}
		if info == nil || info.Value == nil {
			return fmt.Errorf("%w: mint %s", ErrAccountNotFound, mint)
		}
		state.Mint, err = DecodeMint(mint, info.Value.Owner, info.Value.Data.GetBinary())
		return err
	})
	g.Go(func() error {
		info, err := client.GetAccountInfo(gctx, account)
		if err != nil && !errors.Is(err, rpc.ErrNotFound) {
			return fmt.Errorf("fetch account %s: %w", account, err)
		}
		if info == nil || info.Value == nil {
			return nil
		}
		state.Account, err = DecodeTokenAccount(account, info.Value.Owner, info.Value.Data.GetBinary())
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &state, nil
}
