// internal/ledger/ledger.go
package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
)

// Program IDs the ledger recognizes.
var (
	SystemProgramID          = solana.SystemProgramID
	TokenProgramID           = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID       = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// IsTokenProgram reports whether program is one of the token programs.
func IsTokenProgram(program solana.PublicKey) bool {
	return program.Equals(TokenProgramID) || program.Equals(Token2022ProgramID)
}

// AccountState of a token account.
type AccountState uint8

const (
	AccountUninitialized AccountState = iota
	AccountInitialized
	AccountFrozen
)

func (s AccountState) String() string {
	switch s {
	case AccountInitialized:
		return "initialized"
	case AccountFrozen:
		return "frozen"
	default:
		return "uninitialized"
	}
}

// AccountInfo is the funding view of any ledger account.
type AccountInfo struct {
	Address  solana.PublicKey
	Lamports uint64
	Owner    solana.PublicKey
	Space    uint64
}

// MetadataPointer extension data.
type MetadataPointer struct {
	Authority       authority.Authority
	MetadataAddress authority.Authority
}

// TokenMetadata is self-hosted metadata stored in the mint.
type TokenMetadata struct {
	UpdateAuthority authority.Authority
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
}

// Mint is the decoded state of a mint account.
type Mint struct {
	Address         solana.PublicKey
	Program         solana.PublicKey
	MintAuthority   authority.Authority
	FreezeAuthority authority.Authority
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool

	Extensions      []ExtensionType
	CloseAuthority  authority.Authority
	MetadataPointer *MetadataPointer
	Metadata        *TokenMetadata
}

// HasExtension reports whether ext was initialized on the mint.
func (m *Mint) HasExtension(ext ExtensionType) bool {
	for _, e := range m.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// TokenAccount is the decoded state of a holding account.
type TokenAccount struct {
	Address    solana.PublicKey
	Mint       solana.PublicKey
	Owner      solana.PublicKey
	Amount     uint64
	State      AccountState
	Extensions []ExtensionType
}

// IsFrozen reports whether transfers out of the account are blocked.
func (a *TokenAccount) IsFrozen() bool {
	return a.State == AccountFrozen
}

// CreateAccountParams allocates a new account funded by Funder.
type CreateAccountParams struct {
	Funder   authority.Signer
	Account  authority.Signer
	Lamports uint64
	Space    uint64
	Owner    solana.PublicKey
}

// InitializeMintParams finalizes a mint.
type InitializeMintParams struct {
	Mint            solana.PublicKey
	Decimals        uint8
	MintAuthority   solana.PublicKey
	FreezeAuthority authority.Authority
}

// TokenMetadataParams initializes self-hosted metadata on a mint.
type TokenMetadataParams struct {
	Mint            solana.PublicKey
	UpdateAuthority authority.Authority
	MintAuthority   authority.Signer
	Name            string
	Symbol          string
	URI             string
}

// AssociatedAccountParams creates the canonical holding account of Owner for Mint.
type AssociatedAccountParams struct {
	Funder       authority.Signer
	Account      solana.PublicKey
	Owner        solana.PublicKey
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey
}

// SetAuthorityParams changes one authority of a mint or token account.
type SetAuthorityParams struct {
	Account      solana.PublicKey
	Type         token.AuthorityType
	NewAuthority authority.Authority
	Current      authority.Signer
}

// TransferParams moves Amount units with a decimals check.
type TransferParams struct {
	Source      solana.PublicKey
	Mint        solana.PublicKey
	Destination solana.PublicKey
	Owner       authority.Signer
	Amount      uint64
	Decimals    uint8
}

// BurnParams destroys Amount units with a decimals check.
type BurnParams struct {
	Account  solana.PublicKey
	Mint     solana.PublicKey
	Owner    authority.Signer
	Amount   uint64
	Decimals uint8
}

// Reader exposes ledger state.
type Reader interface {
	Balance(ctx context.Context, key solana.PublicKey) (uint64, error)
	Account(ctx context.Context, key solana.PublicKey) (*AccountInfo, error)
	Mint(ctx context.Context, key solana.PublicKey) (*Mint, error)
	TokenAccount(ctx context.Context, key solana.PublicKey) (*TokenAccount, error)
}

// Ledger is the external token ledger: system, token and associated-token
// programs. Every call is synchronous and fails independently.
type Ledger interface {
	Reader

	CreateAccount(ctx context.Context, p CreateAccountParams) error
	Transfer(ctx context.Context, from authority.Signer, to solana.PublicKey, lamports uint64) error

	InitializeMintCloseAuthority(ctx context.Context, mint solana.PublicKey, closeAuthority authority.Authority) error
	InitializeMetadataPointer(ctx context.Context, mint solana.PublicKey, pointerAuthority, metadataAddress authority.Authority) error
	InitializeMint2(ctx context.Context, p InitializeMintParams) error
	InitializeTokenMetadata(ctx context.Context, p TokenMetadataParams) error
	InitializeAccount3(ctx context.Context, account, mint, owner solana.PublicKey) error
	CreateAssociatedTokenAccount(ctx context.Context, p AssociatedAccountParams) error

	MintTo(ctx context.Context, mint, destination solana.PublicKey, mintAuthority authority.Signer, amount uint64) error
	SetAuthority(ctx context.Context, p SetAuthorityParams) error
	FreezeAccount(ctx context.Context, account, mint solana.PublicKey, freezeAuthority authority.Signer) error
	ThawAccount(ctx context.Context, account, mint solana.PublicKey, freezeAuthority authority.Signer) error
	TransferChecked(ctx context.Context, p TransferParams) error
	BurnChecked(ctx context.Context, p BurnParams) error
	CloseAccount(ctx context.Context, account, destination solana.PublicKey, closeAuthority authority.Signer) error
}

// Transactor runs fn as one all-or-nothing unit: if fn fails, no ledger
// mutation made inside it survives.
type Transactor interface {
	Atomic(ctx context.Context, fn func(Ledger) error) error
}

// FindAssociatedTokenAddress derives the canonical holding account of owner
// for mint under tokenProgram.
func FindAssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), tokenProgram.Bytes(), mint.Bytes()},
		AssociatedTokenProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	return addr, nil
}
