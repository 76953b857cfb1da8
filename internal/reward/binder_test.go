package reward

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

const sol = 1_000_000_000

var whirlpoolProgram = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

type poolStore struct {
	mu      sync.Mutex
	pools   map[solana.PublicKey]*Pool
	saveErr error
}

func (s *poolStore) GetPool(_ context.Context, address solana.PublicKey) (*Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[address]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p.Clone(), nil
}

func (s *poolStore) SavePool(_ context.Context, pool *Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if stored, ok := s.pools[pool.Address]; ok {
		if err := CheckRebind(stored, pool); err != nil {
			return err
		}
	}
	s.pools[pool.Address] = pool.Clone()
	return nil
}

type recorderMock struct {
	mock.Mock
}

func (m *recorderMock) ObserveOperation(operation string, duration time.Duration, err error) {
	m.Called(operation, duration, err)
}

func (m *recorderMock) RecordRewardSlot(index int) {
	m.Called(index)
}

type fixture struct {
	ctx       context.Context
	ledger    *ledger.Memory
	store     *poolStore
	pool      *Pool
	authority authority.Signer
	funder    authority.Signer
	allowed   solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:       context.Background(),
		ledger:    ledger.NewMemory(ledger.DefaultRent, zap.NewNop()),
		authority: authority.Keypair(solana.NewWallet().PublicKey()),
		funder:    authority.Keypair(solana.NewWallet().PublicKey()),
	}
	f.ledger.Fund(f.funder.PublicKey(), 10*sol)
	f.pool = NewPool(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), f.authority.PublicKey())
	f.store = &poolStore{pools: map[solana.PublicKey]*Pool{f.pool.Address: f.pool.Clone()}}
	f.allowed = f.mint(t)
	return f
}

// mint creates a legacy token mint.
func (f *fixture) mint(t *testing.T) solana.PublicKey {
	t.Helper()
	mint := authority.Keypair(solana.NewWallet().PublicKey())
	require.NoError(t, f.ledger.CreateAccount(f.ctx, ledger.CreateAccountParams{
		Funder:   f.funder,
		Account:  mint,
		Lamports: ledger.DefaultRent.MinimumBalance(ledger.MintBaseSize),
		Space:    ledger.MintBaseSize,
		Owner:    ledger.TokenProgramID,
	}))
	require.NoError(t, f.ledger.InitializeMint2(f.ctx, ledger.InitializeMintParams{
		Mint:          mint.PublicKey(),
		Decimals:      6,
		MintAuthority: f.funder.PublicKey(),
	}))
	return mint.PublicKey()
}

func (f *fixture) binder(opts ...Option) *Binder {
	return NewBinder(whirlpoolProgram, f.ledger, f.store, NewStaticAllowList(f.allowed), ledger.DefaultRent, zap.NewNop(), opts...)
}

func (f *fixture) request(t *testing.T, index int, mint solana.PublicKey) BindRequest {
	t.Helper()
	badge, err := authority.DeriveTokenBadge(whirlpoolProgram, f.pool.Config, mint)
	require.NoError(t, err)
	return BindRequest{
		Index:           index,
		RewardAuthority: f.authority,
		Funder:          f.funder,
		Pool:            f.pool.Address,
		Mint:            mint,
		TokenBadge:      badge,
		Vault:           authority.Keypair(solana.NewWallet().PublicKey()),
	}
}

func TestBind(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, 0, f.allowed)

	pool, err := f.binder().Bind(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, f.allowed, pool.RewardInfos[0].Mint)
	assert.Equal(t, req.Vault.PublicKey(), pool.RewardInfos[0].Vault)

	stored, err := f.store.GetPool(f.ctx, f.pool.Address)
	require.NoError(t, err)
	assert.Equal(t, pool.RewardInfos, stored.RewardInfos)

	vault, err := f.ledger.TokenAccount(f.ctx, req.Vault.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, f.allowed, vault.Mint)
	assert.Equal(t, f.pool.Address, vault.Owner)

	info, err := f.ledger.Account(f.ctx, req.Vault.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, ledger.TokenProgramID, info.Owner)
	assert.Equal(t, uint64(ledger.AccountBaseSize), info.Space)
}

func TestBindRejections(t *testing.T) {
	f := newFixture(t)
	unlisted := f.mint(t)

	tests := []struct {
		name   string
		modify func(*BindRequest)
		kind   error
	}{
		{"index at capacity", func(r *BindRequest) { r.Index = NumRewards }, domain.ErrIndexOutOfRange},
		{"index out of order", func(r *BindRequest) { r.Index = 2 }, domain.ErrIndexOutOfRange},
		{"wrong reward authority", func(r *BindRequest) {
			r.RewardAuthority = authority.Keypair(solana.NewWallet().PublicKey())
		}, domain.ErrUnauthorized},
		{"missing reward authority", func(r *BindRequest) { r.RewardAuthority = nil }, domain.ErrUnauthorized},
		{"badge of another mint", func(r *BindRequest) {
			badge, err := authority.DeriveTokenBadge(whirlpoolProgram, f.pool.Config, unlisted)
			require.NoError(t, err)
			r.TokenBadge = badge
		}, domain.ErrUnsupportedMint},
		{"mint not on allow-list", func(r *BindRequest) {
			*r = f.request(t, 0, unlisted)
		}, domain.ErrUnsupportedMint},
		{"mint does not exist", func(r *BindRequest) {
			*r = f.request(t, 0, solana.NewWallet().PublicKey())
		}, domain.ErrExternalLedgerRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(t, 0, f.allowed)
			tt.modify(&req)

			_, err := f.binder().Bind(f.ctx, req)
			assert.ErrorIs(t, err, tt.kind)

			_, err = f.ledger.Account(f.ctx, req.Vault.PublicKey())
			assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
		})
	}

	stored, err := f.store.GetPool(f.ctx, f.pool.Address)
	require.NoError(t, err)
	assert.False(t, stored.RewardInfos[0].Initialized())
}

func TestBindSlotTwice(t *testing.T) {
	f := newFixture(t)
	second := f.mint(t)
	b := NewBinder(whirlpoolProgram, f.ledger, f.store, NewStaticAllowList(f.allowed, second), ledger.DefaultRent, zap.NewNop())

	_, err := b.Bind(f.ctx, f.request(t, 0, f.allowed))
	require.NoError(t, err)

	_, err = b.Bind(f.ctx, f.request(t, 0, second))
	assert.ErrorIs(t, err, domain.ErrSlotAlreadyBound)

	pool, err := b.Bind(f.ctx, f.request(t, 1, second))
	require.NoError(t, err)
	assert.Equal(t, f.allowed, pool.RewardInfos[0].Mint)
	assert.Equal(t, second, pool.RewardInfos[1].Mint)
}

func TestBindRollsBackVaultWhenSaveFails(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = errors.New("store offline")
	req := f.request(t, 0, f.allowed)

	before, err := f.ledger.Balance(f.ctx, f.funder.PublicKey())
	require.NoError(t, err)

	_, err = f.binder().Bind(f.ctx, req)
	assert.ErrorIs(t, err, f.store.saveErr)

	_, err = f.ledger.Account(f.ctx, req.Vault.PublicKey())
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	after, err := f.ledger.Balance(f.ctx, f.funder.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBindInsufficientFunding(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, 0, f.allowed)
	poor := authority.Keypair(solana.NewWallet().PublicKey())
	f.ledger.Fund(poor.PublicKey(), 100)
	req.Funder = poor

	_, err := f.binder().Bind(f.ctx, req)
	assert.ErrorIs(t, err, domain.ErrAllocation)
}

func TestBindRecordsMetrics(t *testing.T) {
	f := newFixture(t)
	rec := &recorderMock{}
	rec.On("ObserveOperation", "initialize_reward", mock.Anything, nil).Once()
	rec.On("RecordRewardSlot", 0).Once()

	_, err := f.binder(WithRecorder(rec)).Bind(f.ctx, f.request(t, 0, f.allowed))
	require.NoError(t, err)
	rec.AssertExpectations(t)
}

func TestBindUnknownPool(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, 0, f.allowed)
	req.Pool = solana.NewWallet().PublicKey()

	_, err := f.binder().Bind(f.ctx, req)
	assert.ErrorIs(t, err, ErrPoolNotFound)
	assert.ErrorIs(t, err, domain.ErrInconsistentState)
	assert.Equal(t, "inconsistent_state", domain.KindName(err))
}

// staleStore serves the pool as it was when the store was created.
type staleStore struct {
	*poolStore
	snapshot *Pool
}

func (s *staleStore) GetPool(_ context.Context, _ solana.PublicKey) (*Pool, error) {
	return s.snapshot.Clone(), nil
}

func TestBindOverStalePoolRead(t *testing.T) {
	f := newFixture(t)
	other := f.mint(t)
	allow := NewStaticAllowList(f.allowed, other)
	stale := &staleStore{poolStore: f.store, snapshot: f.pool.Clone()}

	first := f.request(t, 0, f.allowed)
	_, err := NewBinder(whirlpoolProgram, f.ledger, f.store, allow, ledger.DefaultRent, zap.NewNop()).Bind(f.ctx, first)
	require.NoError(t, err)

	second := f.request(t, 0, other)
	_, err = NewBinder(whirlpoolProgram, f.ledger, stale, allow, ledger.DefaultRent, zap.NewNop()).Bind(f.ctx, second)
	assert.ErrorIs(t, err, domain.ErrSlotAlreadyBound)

	stored, err := f.store.GetPool(f.ctx, f.pool.Address)
	require.NoError(t, err)
	assert.Equal(t, f.allowed, stored.RewardInfos[0].Mint)
	assert.Equal(t, first.Vault.PublicKey(), stored.RewardInfos[0].Vault)

	_, err = f.ledger.Account(f.ctx, second.Vault.PublicKey())
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestBindSameSlotConcurrently(t *testing.T) {
	f := newFixture(t)
	const n = 8
	mints := make([]solana.PublicKey, n)
	for i := range mints {
		mints[i] = f.mint(t)
	}
	b := NewBinder(whirlpoolProgram, f.ledger, f.store, NewStaticAllowList(mints...), ledger.DefaultRent, zap.NewNop())

	reqs := make([]BindRequest, n)
	for i := range reqs {
		reqs[i] = f.request(t, 0, mints[i])
	}
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = b.Bind(f.ctx, reqs[i])
		}(i)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "slot 0 bound more than once")
			winner = i
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSlotAlreadyBound)
	}
	require.NotEqual(t, -1, winner)

	stored, err := f.store.GetPool(f.ctx, f.pool.Address)
	require.NoError(t, err)
	assert.Equal(t, mints[winner], stored.RewardInfos[0].Mint)
	for i, req := range reqs {
		_, err := f.ledger.Account(f.ctx, req.Vault.PublicKey())
		if i == winner {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
		}
	}
}
