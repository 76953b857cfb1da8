// internal/reward/binder.go
package reward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/events"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

// Recorder receives reward binding metrics.
type Recorder interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	RecordRewardSlot(index int)
}

// BindRequest binds Mint to reward slot Index of Pool.
type BindRequest struct {
	Index           int
	RewardAuthority authority.Signer
	Funder          authority.Signer
	Pool            solana.PublicKey
	Mint            solana.PublicKey
	// TokenBadge is the compatibility witness supplied for Mint.
	TokenBadge solana.PublicKey
	// Vault is the new reward vault account.
	Vault authority.Signer
}

// Binder validates reward mints and records them into pool reward slots.
type Binder struct {
	program   solana.PublicKey
	tx        ledger.Transactor
	pools     PoolStore
	allow     AllowList
	rent      ledger.Rent
	publisher events.Publisher
	recorder  Recorder
	logger    *zap.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithPublisher publishes reward events to p.
func WithPublisher(p events.Publisher) Option {
	return func(b *Binder) { b.publisher = p }
}

// WithRecorder records metrics in r.
func WithRecorder(r Recorder) Option {
	return func(b *Binder) { b.recorder = r }
}

// NewBinder creates a Binder for pools of program.
func NewBinder(program solana.PublicKey, tx ledger.Transactor, pools PoolStore, allow AllowList, rent ledger.Rent, logger *zap.Logger, opts ...Option) *Binder {
	if rent == nil {
		rent = ledger.DefaultRent
	}
	b := &Binder{
		program: program,
		tx:      tx,
		pools:   pools,
		allow:   allow,
		rent:    rent,
		logger:  logger.Named("reward"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind checks the slot, the reward authority and mint compatibility, then
// creates a vault owned by the pool and records {mint, vault} in the slot.
// The vault and the pool update commit together or not at all.
func (b *Binder) Bind(ctx context.Context, req BindRequest) (*Pool, error) {
	const op = "initialize_reward"
	start := time.Now()

	pool, err := b.bind(ctx, op, req)
	if b.recorder != nil {
		b.recorder.ObserveOperation(op, time.Since(start), err)
	}
	if err != nil {
		b.logger.Warn("Reward initialization failed",
			zap.String("pool", req.Pool.String()),
			zap.Int("index", req.Index),
			zap.String("kind", domain.KindName(err)),
			zap.Error(err))
		b.publish(events.OperationFailedEvent{
			BaseEvent: events.NewBase(events.OperationFailed),
			Operation: op,
			Mint:      req.Mint,
			Kind:      domain.KindName(err),
			Error:     err,
		})
		return nil, err
	}

	if b.recorder != nil {
		b.recorder.RecordRewardSlot(req.Index)
	}
	b.publish(events.RewardInitializedEvent{
		BaseEvent: events.NewBase(events.RewardInitialized),
		Whirlpool: pool.Address,
		Index:     req.Index,
		Mint:      req.Mint,
		Vault:     req.Vault.PublicKey(),
	})
	b.logger.Info("Reward slot initialized",
		zap.String("pool", pool.Address.String()),
		zap.Int("index", req.Index),
		zap.String("mint", req.Mint.String()),
		zap.String("vault", req.Vault.PublicKey().String()))
	return pool, nil
}

func (b *Binder) bind(ctx context.Context, op string, req BindRequest) (*Pool, error) {
	var pool *Pool
	// The pool read shares the atomic unit with the write so two binds of
	// one slot cannot both pass CheckIndex.
	err := b.tx.Atomic(ctx, func(l ledger.Ledger) error {
		current, err := b.pools.GetPool(ctx, req.Pool)
		if err != nil {
			return domain.Fail(op, domain.ErrInconsistentState, fmt.Errorf("load pool: %w", err))
		}
		pool = current.Clone()

		if err := b.check(op, pool, req); err != nil {
			return err
		}

		mint, err := l.Mint(ctx, req.Mint)
		if err != nil {
			return domain.Fail(op, domain.ErrExternalLedgerRejected, err)
		}

		ok, err := b.allow.Supported(ctx, pool.Config, mint, req.TokenBadge)
		if err != nil {
			return domain.Fail(op, domain.ErrUnsupportedMint, err)
		}
		if !ok {
			return domain.Fail(op, domain.ErrUnsupportedMint,
				fmt.Errorf("mint %s is not supported for config %s", req.Mint, pool.Config))
		}

		if err := b.createVault(ctx, l, op, req, mint, pool.Address); err != nil {
			return err
		}
		if err := pool.InitializeReward(req.Index, req.Mint, req.Vault.PublicKey()); err != nil {
			return err
		}
		if err := b.pools.SavePool(ctx, pool); err != nil {
			return fmt.Errorf("%s: save pool: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// check validates the slot index, the reward authority and the token badge
// witness against the loaded pool.
func (b *Binder) check(op string, pool *Pool, req BindRequest) error {
	if err := pool.CheckIndex(req.Index); err != nil {
		return err
	}

	slot := pool.RewardInfos[req.Index]
	if req.RewardAuthority == nil || req.RewardAuthority.Verify() != nil ||
		!req.RewardAuthority.PublicKey().Equals(slot.Authority) {
		return domain.Fail(op, domain.ErrUnauthorized,
			fmt.Errorf("slot %d is controlled by %s", req.Index, slot.Authority))
	}

	badge, err := authority.DeriveTokenBadge(b.program, pool.Config, req.Mint)
	if err != nil {
		return domain.Fail(op, domain.ErrUnsupportedMint, err)
	}
	if !badge.Equals(req.TokenBadge) {
		return domain.Fail(op, domain.ErrUnsupportedMint,
			fmt.Errorf("witness %s is not the token badge %s", req.TokenBadge, badge))
	}
	return nil
}

// createVault allocates and initializes a token account for mint owned by
// the pool.
func (b *Binder) createVault(ctx context.Context, l ledger.Ledger, op string, req BindRequest, mint *ledger.Mint, pool solana.PublicKey) error {
	var exts []ledger.ExtensionType
	if mint.HasExtension(ledger.ExtensionTransferFeeConfig) {
		exts = append(exts, ledger.ExtensionTransferFeeAmount)
	}
	space, err := ledger.AccountSize(exts...)
	if err != nil {
		return domain.Fail(op, domain.ErrExtensionConflict, err)
	}

	if err := l.CreateAccount(ctx, ledger.CreateAccountParams{
		Funder:   req.Funder,
		Account:  req.Vault,
		Lamports: b.rent.MinimumBalance(space),
		Space:    space,
		Owner:    mint.Program,
	}); err != nil {
		kind := domain.ErrExternalLedgerRejected
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			kind = domain.ErrAllocation
		}
		return domain.Fail(op, kind, err)
	}

	if err := l.InitializeAccount3(ctx, req.Vault.PublicKey(), req.Mint, pool); err != nil {
		return domain.Fail(op, domain.ErrExternalLedgerRejected, err)
	}
	return nil
}

func (b *Binder) publish(e events.Event) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(e); err != nil {
		b.logger.Warn("Failed to publish event",
			zap.String("event_type", string(e.Type())),
			zap.Error(err))
	}
}
