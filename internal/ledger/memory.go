// internal/ledger/memory.go
package ledger

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
)

// record is one account held by the in-memory ledger.
type record struct {
	lamports uint64
	owner    solana.PublicKey
	space    uint64
	mint     *Mint
	token    *TokenAccount
}

func (r *record) clone() *record {
	out := *r
	if r.mint != nil {
		m := *r.mint
		m.Extensions = slices.Clone(r.mint.Extensions)
		if r.mint.MetadataPointer != nil {
			p := *r.mint.MetadataPointer
			m.MetadataPointer = &p
		}
		if r.mint.Metadata != nil {
			md := *r.mint.Metadata
			m.Metadata = &md
		}
		out.mint = &m
	}
	if r.token != nil {
		t := *r.token
		t.Extensions = slices.Clone(r.token.Extensions)
		out.token = &t
	}
	return &out
}

// Memory is an in-process system + Token-2022 + associated-token ledger.
// Atomic serializes transactions and rolls back every mutation of a failed
// one; calls made outside Atomic commit immediately.
type Memory struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	rent     Rent
	accounts map[solana.PublicKey]*record
	logger   *zap.Logger
}

var (
	_ Ledger     = (*Memory)(nil)
	_ Transactor = (*Memory)(nil)
)

// NewMemory creates an empty ledger using rent for exemption checks.
func NewMemory(rent Rent, logger *zap.Logger) *Memory {
	if rent == nil {
		rent = DefaultRent
	}
	return &Memory{
		rent:     rent,
		accounts: make(map[solana.PublicKey]*record),
		logger:   logger.Named("memory-ledger"),
	}
}

// Fund credits lamports to a system account, creating it when absent.
func (m *Memory) Fund(key solana.PublicKey, lamports uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(key, lamports)
}

// Atomic implements Transactor.
func (m *Memory) Atomic(ctx context.Context, fn func(Ledger) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		m.logger.Debug("transaction rolled back", zap.Error(err))
		return err
	}
	return nil
}

func (m *Memory) snapshot() map[solana.PublicKey]*record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[solana.PublicKey]*record, len(m.accounts))
	for k, r := range m.accounts {
		out[k] = r.clone()
	}
	return out
}

func (m *Memory) restore(snapshot map[solana.PublicKey]*record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = snapshot
}

// credit must be called with mu held.
func (m *Memory) credit(key solana.PublicKey, lamports uint64) {
	r, ok := m.accounts[key]
	if !ok {
		r = &record{owner: SystemProgramID}
		m.accounts[key] = r
	}
	r.lamports += lamports
}

func (m *Memory) verify(instruction string, account solana.PublicKey, s authority.Signer) error {
	if s == nil {
		return reject(instruction, account, ErrMissingSignature)
	}
	if err := s.Verify(); err != nil {
		if authority.IsDerived(s) {
			return reject(instruction, account, ErrInvalidSeeds)
		}
		return reject(instruction, account, ErrMissingSignature)
	}
	return nil
}

func (m *Memory) rentExempt(r *record) bool {
	return r.lamports >= m.rent.MinimumBalance(r.space)
}

// mintRecord must be called with mu held.
func (m *Memory) mintRecord(instruction string, key solana.PublicKey, initialized bool) (*record, error) {
	r, ok := m.accounts[key]
	if !ok {
		return nil, reject(instruction, key, ErrAccountNotFound)
	}
	if !IsTokenProgram(r.owner) {
		return nil, reject(instruction, key, ErrIncorrectProgramID)
	}
	if r.token != nil {
		return nil, reject(instruction, key, ErrInvalidAccountData)
	}
	if initialized && (r.mint == nil || !r.mint.IsInitialized) {
		return nil, reject(instruction, key, ErrUninitialized)
	}
	return r, nil
}

// tokenRecord must be called with mu held.
func (m *Memory) tokenRecord(instruction string, key solana.PublicKey) (*record, error) {
	r, ok := m.accounts[key]
	if !ok {
		return nil, reject(instruction, key, ErrAccountNotFound)
	}
	if !IsTokenProgram(r.owner) {
		return nil, reject(instruction, key, ErrIncorrectProgramID)
	}
	if r.token == nil {
		if r.mint != nil {
			return nil, reject(instruction, key, ErrInvalidAccountData)
		}
		return nil, reject(instruction, key, ErrUninitialized)
	}
	return r, nil
}

// Balance implements Reader.
func (m *Memory) Balance(_ context.Context, key solana.PublicKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.accounts[key]
	if !ok {
		return 0, nil
	}
	return r.lamports, nil
}

// Account implements Reader.
func (m *Memory) Account(_ context.Context, key solana.PublicKey) (*AccountInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.accounts[key]
	if !ok {
		return nil, reject("get_account", key, ErrAccountNotFound)
	}
	return &AccountInfo{Address: key, Lamports: r.lamports, Owner: r.owner, Space: r.space}, nil
}

// Mint implements Reader.
func (m *Memory) Mint(_ context.Context, key solana.PublicKey) (*Mint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.mintRecord("get_mint", key, true)
	if err != nil {
		return nil, err
	}
	return r.clone().mint, nil
}

// TokenAccount implements Reader.
func (m *Memory) TokenAccount(_ context.Context, key solana.PublicKey) (*TokenAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.tokenRecord("get_token_account", key)
	if err != nil {
		return nil, err
	}
	return r.clone().token, nil
}

// CreateAccount implements Ledger.
func (m *Memory) CreateAccount(_ context.Context, p CreateAccountParams) error {
	const ix = "create_account"
	if p.Account == nil {
		return reject(ix, solana.PublicKey{}, ErrMissingSignature)
	}
	key := p.Account.PublicKey()
	if err := m.verify(ix, key, p.Funder); err != nil {
		return err
	}
	if err := m.verify(ix, key, p.Account); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.accounts[key]; ok && (existing.space > 0 || existing.lamports > 0) {
		return reject(ix, key, ErrAccountAlreadyInUse)
	}
	funder, ok := m.accounts[p.Funder.PublicKey()]
	if !ok || funder.lamports < p.Lamports {
		return reject(ix, p.Funder.PublicKey(), ErrInsufficientFunds)
	}
	funder.lamports -= p.Lamports
	m.accounts[key] = &record{lamports: p.Lamports, owner: p.Owner, space: p.Space}
	return nil
}

// Transfer implements Ledger.
func (m *Memory) Transfer(_ context.Context, from authority.Signer, to solana.PublicKey, lamports uint64) error {
	const ix = "transfer"
	if err := m.verify(ix, to, from); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.accounts[from.PublicKey()]
	if !ok || src.lamports < lamports {
		return reject(ix, from.PublicKey(), ErrInsufficientFunds)
	}
	if !src.owner.Equals(SystemProgramID) || src.space > 0 {
		return reject(ix, from.PublicKey(), ErrInvalidAccountData)
	}
	src.lamports -= lamports
	m.credit(to, lamports)
	return nil
}

// initExtension must be called with mu held.
func (m *Memory) initExtension(ix string, key solana.PublicKey, ext ExtensionType) (*Mint, error) {
	r, err := m.mintRecord(ix, key, false)
	if err != nil {
		return nil, err
	}
	if !r.owner.Equals(Token2022ProgramID) {
		return nil, reject(ix, key, ErrIncorrectProgramID)
	}
	if r.mint == nil {
		r.mint = &Mint{Address: key, Program: r.owner}
	}
	if r.mint.IsInitialized {
		return nil, reject(ix, key, ErrAlreadyInitialized)
	}
	if r.mint.HasExtension(ext) {
		return nil, reject(ix, key, ErrAlreadyInitialized)
	}
	needed, err := MintSize(append(slices.Clone(r.mint.Extensions), ext)...)
	if err != nil || needed > r.space {
		return nil, reject(ix, key, ErrInvalidAccountData)
	}
	r.mint.Extensions = append(r.mint.Extensions, ext)
	return r.mint, nil
}

// InitializeMintCloseAuthority implements Ledger.
func (m *Memory) InitializeMintCloseAuthority(_ context.Context, mint solana.PublicKey, closeAuthority authority.Authority) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.initExtension("initialize_mint_close_authority", mint, ExtensionMintCloseAuthority)
	if err != nil {
		return err
	}
	state.CloseAuthority = closeAuthority
	return nil
}

// InitializeMetadataPointer implements Ledger.
func (m *Memory) InitializeMetadataPointer(_ context.Context, mint solana.PublicKey, pointerAuthority, metadataAddress authority.Authority) error {
	const ix = "initialize_metadata_pointer"
	if pointerAuthority.IsNone() && metadataAddress.IsNone() {
		return reject(ix, mint, ErrInvalidAccountData)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.initExtension(ix, mint, ExtensionMetadataPointer)
	if err != nil {
		return err
	}
	state.MetadataPointer = &MetadataPointer{Authority: pointerAuthority, MetadataAddress: metadataAddress}
	return nil
}

// InitializeMint2 implements Ledger.
func (m *Memory) InitializeMint2(_ context.Context, p InitializeMintParams) error {
	const ix = "initialize_mint2"

	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.mintRecord(ix, p.Mint, false)
	if err != nil {
		return err
	}
	if r.mint == nil {
		r.mint = &Mint{Address: p.Mint, Program: r.owner}
	}
	if r.mint.IsInitialized {
		return reject(ix, p.Mint, ErrAlreadyInitialized)
	}
	// allocated space must be exactly the initialized extensions
	expected, err := MintSize(r.mint.Extensions...)
	if err != nil || expected != r.space {
		r.mint = nilIfBare(r.mint)
		return reject(ix, p.Mint, ErrInvalidAccountData)
	}
	if !m.rentExempt(r) {
		r.mint = nilIfBare(r.mint)
		return reject(ix, p.Mint, ErrNotRentExempt)
	}

	r.mint.Decimals = p.Decimals
	r.mint.MintAuthority = authority.Controlled(p.MintAuthority)
	r.mint.FreezeAuthority = p.FreezeAuthority
	r.mint.IsInitialized = true
	return nil
}

func nilIfBare(mint *Mint) *Mint {
	if len(mint.Extensions) == 0 {
		return nil
	}
	return mint
}

// InitializeTokenMetadata implements Ledger.
func (m *Memory) InitializeTokenMetadata(_ context.Context, p TokenMetadataParams) error {
	const ix = "initialize_token_metadata"
	if err := m.verify(ix, p.Mint, p.MintAuthority); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.mintRecord(ix, p.Mint, true)
	if err != nil {
		return err
	}
	state := r.mint
	if state.MetadataPointer == nil {
		return reject(ix, p.Mint, ErrInvalidAccountData)
	}
	if !state.MetadataPointer.MetadataAddress.Is(p.Mint) {
		return reject(ix, p.Mint, ErrInvalidAccountData)
	}
	if state.Metadata != nil {
		return reject(ix, p.Mint, ErrAlreadyInitialized)
	}
	if state.MintAuthority.IsNone() {
		return reject(ix, p.Mint, ErrFixedSupply)
	}
	if !state.MintAuthority.Is(p.MintAuthority.PublicKey()) {
		return reject(ix, p.Mint, ErrOwnerMismatch)
	}

	newSpace := r.space + TokenMetadataSize(p.Name, p.Symbol, p.URI)
	if r.lamports < m.rent.MinimumBalance(newSpace) {
		return reject(ix, p.Mint, ErrInsufficientFunds)
	}

	r.space = newSpace
	state.Extensions = append(state.Extensions, ExtensionTokenMetadata)
	state.Metadata = &TokenMetadata{
		UpdateAuthority: p.UpdateAuthority,
		Mint:            p.Mint,
		Name:            p.Name,
		Symbol:          p.Symbol,
		URI:             p.URI,
	}
	return nil
}

// InitializeAccount3 implements Ledger.
func (m *Memory) InitializeAccount3(_ context.Context, account, mint, owner solana.PublicKey) error {
	const ix = "initialize_account3"

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.accounts[account]
	if !ok {
		return reject(ix, account, ErrAccountNotFound)
	}
	if !IsTokenProgram(r.owner) {
		return reject(ix, account, ErrIncorrectProgramID)
	}
	if r.token != nil || r.mint != nil {
		return reject(ix, account, ErrAlreadyInitialized)
	}
	mr, err := m.mintRecord(ix, mint, true)
	if err != nil {
		return err
	}
	if !mr.owner.Equals(r.owner) {
		return reject(ix, account, ErrIncorrectProgramID)
	}
	if r.space < AccountBaseSize {
		return reject(ix, account, ErrInvalidAccountData)
	}
	if !m.rentExempt(r) {
		return reject(ix, account, ErrNotRentExempt)
	}
	r.token = &TokenAccount{Address: account, Mint: mint, Owner: owner, State: AccountInitialized}
	return nil
}

// CreateAssociatedTokenAccount implements Ledger.
func (m *Memory) CreateAssociatedTokenAccount(_ context.Context, p AssociatedAccountParams) error {
	const ix = "create_associated_token_account"
	if err := m.verify(ix, p.Account, p.Funder); err != nil {
		return err
	}
	expected, err := FindAssociatedTokenAddress(p.Owner, p.Mint, p.TokenProgram)
	if err != nil || !expected.Equals(p.Account) {
		return reject(ix, p.Account, ErrInvalidSeeds)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.accounts[p.Account]; ok && existing.space > 0 {
		return reject(ix, p.Account, ErrAccountAlreadyInUse)
	}
	mr, err := m.mintRecord(ix, p.Mint, true)
	if err != nil {
		return err
	}
	if !mr.owner.Equals(p.TokenProgram) {
		return reject(ix, p.Mint, ErrIncorrectProgramID)
	}

	var exts []ExtensionType
	if p.TokenProgram.Equals(Token2022ProgramID) {
		exts = []ExtensionType{ExtensionImmutableOwner}
	}
	space, err := AccountSize(exts...)
	if err != nil {
		return reject(ix, p.Account, ErrInvalidAccountData)
	}
	lamports := m.rent.MinimumBalance(space)

	funder, ok := m.accounts[p.Funder.PublicKey()]
	if !ok || funder.lamports < lamports {
		return reject(ix, p.Funder.PublicKey(), ErrInsufficientFunds)
	}
	funder.lamports -= lamports

	// the address may already hold lamports sent to it earlier
	var prior uint64
	if existing, ok := m.accounts[p.Account]; ok {
		prior = existing.lamports
	}
	m.accounts[p.Account] = &record{
		lamports: lamports + prior,
		owner:    p.TokenProgram,
		space:    space,
		token: &TokenAccount{
			Address:    p.Account,
			Mint:       p.Mint,
			Owner:      p.Owner,
			State:      AccountInitialized,
			Extensions: exts,
		},
	}
	return nil
}

// MintTo implements Ledger.
func (m *Memory) MintTo(_ context.Context, mint, destination solana.PublicKey, mintAuthority authority.Signer, amount uint64) error {
	const ix = "mint_to"
	if err := m.verify(ix, mint, mintAuthority); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	mr, err := m.mintRecord(ix, mint, true)
	if err != nil {
		return err
	}
	if mr.mint.MintAuthority.IsNone() {
		return reject(ix, mint, ErrFixedSupply)
	}
	if !mr.mint.MintAuthority.Is(mintAuthority.PublicKey()) {
		return reject(ix, mint, ErrOwnerMismatch)
	}
	dr, err := m.tokenRecord(ix, destination)
	if err != nil {
		return err
	}
	if !dr.token.Mint.Equals(mint) {
		return reject(ix, destination, ErrMintMismatch)
	}
	if dr.token.IsFrozen() {
		return reject(ix, destination, ErrAccountFrozen)
	}
	if mr.mint.Supply > math.MaxUint64-amount {
		return reject(ix, mint, ErrOverflow)
	}
	mr.mint.Supply += amount
	dr.token.Amount += amount
	return nil
}

// SetAuthority implements Ledger.
func (m *Memory) SetAuthority(_ context.Context, p SetAuthorityParams) error {
	const ix = "set_authority"
	if err := m.verify(ix, p.Account, p.Current); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.accounts[p.Account]
	if !ok {
		return reject(ix, p.Account, ErrAccountNotFound)
	}
	current := p.Current.PublicKey()

	switch {
	case r.mint != nil && r.mint.IsInitialized:
		var slot *authority.Authority
		switch p.Type {
		case token.AuthorityMintTokens:
			if r.mint.MintAuthority.IsNone() {
				return reject(ix, p.Account, ErrFixedSupply)
			}
			slot = &r.mint.MintAuthority
		case token.AuthorityFreezeAccount:
			if r.mint.FreezeAuthority.IsNone() {
				return reject(ix, p.Account, ErrMintCannotFreeze)
			}
			slot = &r.mint.FreezeAuthority
		case token.AuthorityCloseAccount:
			if !r.mint.HasExtension(ExtensionMintCloseAuthority) || r.mint.CloseAuthority.IsNone() {
				return reject(ix, p.Account, ErrAuthorityTypeNotSupported)
			}
			slot = &r.mint.CloseAuthority
		default:
			return reject(ix, p.Account, ErrAuthorityTypeNotSupported)
		}
		if !slot.Is(current) {
			return reject(ix, p.Account, ErrOwnerMismatch)
		}
		*slot = p.NewAuthority
		return nil

	case r.token != nil:
		switch p.Type {
		case token.AuthorityAccountOwner:
			if slices.Contains(r.token.Extensions, ExtensionImmutableOwner) {
				return reject(ix, p.Account, ErrImmutableOwner)
			}
			if !r.token.Owner.Equals(current) {
				return reject(ix, p.Account, ErrOwnerMismatch)
			}
			key, ok := p.NewAuthority.Key()
			if !ok {
				return reject(ix, p.Account, ErrInvalidAccountData)
			}
			r.token.Owner = key
			return nil
		default:
			return reject(ix, p.Account, ErrAuthorityTypeNotSupported)
		}
	}
	return reject(ix, p.Account, ErrUninitialized)
}

func (m *Memory) setFrozen(ix string, account, mint solana.PublicKey, freezeAuthority authority.Signer, frozen bool) error {
	if err := m.verify(ix, account, freezeAuthority); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ar, err := m.tokenRecord(ix, account)
	if err != nil {
		return err
	}
	if !ar.token.Mint.Equals(mint) {
		return reject(ix, account, ErrMintMismatch)
	}
	mr, err := m.mintRecord(ix, mint, true)
	if err != nil {
		return err
	}
	if mr.mint.FreezeAuthority.IsNone() {
		return reject(ix, mint, ErrMintCannotFreeze)
	}
	if !mr.mint.FreezeAuthority.Is(freezeAuthority.PublicKey()) {
		return reject(ix, mint, ErrOwnerMismatch)
	}
	if ar.token.IsFrozen() == frozen {
		return reject(ix, account, ErrInvalidState)
	}
	if frozen {
		ar.token.State = AccountFrozen
	} else {
		ar.token.State = AccountInitialized
	}
	return nil
}

// FreezeAccount implements Ledger. Freezing a frozen account is rejected.
func (m *Memory) FreezeAccount(_ context.Context, account, mint solana.PublicKey, freezeAuthority authority.Signer) error {
	return m.setFrozen("freeze_account", account, mint, freezeAuthority, true)
}

// ThawAccount implements Ledger. Thawing an unfrozen account is rejected.
func (m *Memory) ThawAccount(_ context.Context, account, mint solana.PublicKey, freezeAuthority authority.Signer) error {
	return m.setFrozen("thaw_account", account, mint, freezeAuthority, false)
}

// TransferChecked implements Ledger.
func (m *Memory) TransferChecked(_ context.Context, p TransferParams) error {
	const ix = "transfer_checked"
	if err := m.verify(ix, p.Source, p.Owner); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := m.tokenRecord(ix, p.Source)
	if err != nil {
		return err
	}
	dst, err := m.tokenRecord(ix, p.Destination)
	if err != nil {
		return err
	}
	if src.token.IsFrozen() || dst.token.IsFrozen() {
		return reject(ix, p.Source, ErrAccountFrozen)
	}
	if !src.token.Mint.Equals(p.Mint) || !dst.token.Mint.Equals(p.Mint) {
		return reject(ix, p.Source, ErrMintMismatch)
	}
	mr, err := m.mintRecord(ix, p.Mint, true)
	if err != nil {
		return err
	}
	if mr.mint.Decimals != p.Decimals {
		return reject(ix, p.Mint, ErrMintDecimalsMismatch)
	}
	if !src.token.Owner.Equals(p.Owner.PublicKey()) {
		return reject(ix, p.Source, ErrOwnerMismatch)
	}
	if src.token.Amount < p.Amount {
		return reject(ix, p.Source, ErrInsufficientFunds)
	}
	src.token.Amount -= p.Amount
	dst.token.Amount += p.Amount
	return nil
}

// BurnChecked implements Ledger.
func (m *Memory) BurnChecked(_ context.Context, p BurnParams) error {
	const ix = "burn_checked"
	if err := m.verify(ix, p.Account, p.Owner); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ar, err := m.tokenRecord(ix, p.Account)
	if err != nil {
		return err
	}
	if ar.token.IsFrozen() {
		return reject(ix, p.Account, ErrAccountFrozen)
	}
	if !ar.token.Mint.Equals(p.Mint) {
		return reject(ix, p.Account, ErrMintMismatch)
	}
	mr, err := m.mintRecord(ix, p.Mint, true)
	if err != nil {
		return err
	}
	if mr.mint.Decimals != p.Decimals {
		return reject(ix, p.Mint, ErrMintDecimalsMismatch)
	}
	if !ar.token.Owner.Equals(p.Owner.PublicKey()) {
		return reject(ix, p.Account, ErrOwnerMismatch)
	}
	if ar.token.Amount < p.Amount {
		return reject(ix, p.Account, ErrInsufficientFunds)
	}
	ar.token.Amount -= p.Amount
	mr.mint.Supply -= p.Amount
	return nil
}

// CloseAccount implements Ledger. It closes token accounts (owner signs,
// balance must be zero) and Token-2022 mints (close authority signs, supply
// must be zero).
func (m *Memory) CloseAccount(_ context.Context, account, destination solana.PublicKey, closeAuthority authority.Signer) error {
	const ix = "close_account"
	if err := m.verify(ix, account, closeAuthority); err != nil {
		return err
	}
	if account.Equals(destination) {
		return reject(ix, account, ErrInvalidAccountData)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.accounts[account]
	if !ok {
		return reject(ix, account, ErrAccountNotFound)
	}
	signer := closeAuthority.PublicKey()

	switch {
	case r.token != nil:
		if r.token.Amount != 0 {
			return reject(ix, account, ErrNonNativeHasBalance)
		}
		if !r.token.Owner.Equals(signer) {
			return reject(ix, account, ErrOwnerMismatch)
		}
	case r.mint != nil && r.mint.IsInitialized:
		if !r.mint.HasExtension(ExtensionMintCloseAuthority) || r.mint.CloseAuthority.IsNone() {
			return reject(ix, account, ErrAuthorityTypeNotSupported)
		}
		if !r.mint.CloseAuthority.Is(signer) {
			return reject(ix, account, ErrOwnerMismatch)
		}
		if r.mint.Supply != 0 {
			return reject(ix, account, ErrMintHasSupply)
		}
	default:
		return reject(ix, account, ErrUninitialized)
	}

	lamports := r.lamports
	delete(m.accounts, account)
	m.credit(destination, lamports)
	return nil
}
