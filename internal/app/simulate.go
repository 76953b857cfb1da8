// internal/app/simulate.go
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/config"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/events"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
	"github.com/rovshanmuradov/whirlpool-positions/internal/position"
	"github.com/rovshanmuradov/whirlpool-positions/internal/reward"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage/memory"
	"github.com/rovshanmuradov/whirlpool-positions/internal/utils/metrics"
)

const lamportsPerSol = 1_000_000_000

var simulatedEvents = []events.EventType{
	events.PositionOpened,
	events.PositionFrozen,
	events.PositionThawed,
	events.PositionTransferred,
	events.PositionClosed,
	events.HoldingAccountClosed,
	events.PositionTeardownResumed,
	events.RewardInitialized,
	events.OperationFailed,
}

// Report summarizes one simulated lifecycle.
type Report struct {
	Whirlpool   solana.PublicKey
	Mint        solana.PublicKey
	Position    solana.PublicKey
	Metadata    *position.Metadata
	Owners      []solana.PublicKey
	Stage       domain.Stage
	RewardMint  solana.PublicKey
	RewardVault solana.PublicKey
	Events      map[events.EventType]int
}

// Simulation runs the whole position lifecycle against the in-memory
// ledger: open with metadata, freeze, thaw, transfer, close, close the
// emptied account, then bind a reward slot.
type Simulation struct {
	cfg     *config.Config
	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewSimulation(cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) *Simulation {
	return &Simulation{
		cfg:     cfg,
		metrics: collector,
		logger:  logger.Named("simulation"),
	}
}

// eventCounter publishes synchronously so every event is counted before
// the report is built.
type eventCounter struct {
	ctx context.Context
	bus *events.Bus

	mu     sync.Mutex
	counts map[events.EventType]int
}

func (c *eventCounter) Publish(e events.Event) error {
	return c.bus.PublishSync(c.ctx, e)
}

func (c *eventCounter) Handle(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[e.Type()]++
	return nil
}

func (c *eventCounter) snapshot() map[events.EventType]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[events.EventType]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

func (s *Simulation) Run(ctx context.Context) (*Report, error) {
	program, err := programID(s.cfg)
	if err != nil {
		return nil, err
	}
	md, err := metadataConfig(s.cfg)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(s.logger, s.cfg.EventBuffer)
	defer func() {
		if err := bus.Shutdown(context.Background()); err != nil {
			s.logger.Warn("Event bus shutdown failed", zap.Error(err))
		}
	}()
	counter := &eventCounter{ctx: ctx, bus: bus, counts: make(map[events.EventType]int)}
	for _, t := range simulatedEvents {
		bus.Subscribe(t, counter)
	}
	if s.cfg.AuditFile != "" {
		audit, err := events.NewAuditLog(s.cfg.AuditFile, time.Second, s.logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := audit.Close(); err != nil {
				s.logger.Warn("Audit log close failed", zap.Error(err))
			}
		}()
		for _, t := range simulatedEvents {
			bus.Subscribe(t, audit)
		}
	}

	mem := ledger.NewMemory(ledger.DefaultRent, s.logger)
	store := memory.NewStorage(s.logger)
	funder := newKeypair()
	mem.Fund(funder.PublicKey(), 10*lamportsPerSol)

	svc := position.NewService(position.Config{Program: program, Metadata: md}, mem, ledger.DefaultRent, s.logger,
		position.WithPublisher(counter),
		position.WithRecorder(s.metrics),
		position.WithTransferor(position.NewTransferor(s.logger, position.WithJournal(store))),
	)

	report := &Report{Whirlpool: solana.NewWallet().PublicKey()}
	first, second := newKeypair(), newKeypair()

	opened, err := svc.Open(ctx, position.OpenRequest{
		Funder:       funder,
		Mint:         newKeypair(),
		Whirlpool:    report.Whirlpool,
		Owner:        first.PublicKey(),
		WithMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	mint := opened.Position.Mint
	report.Mint = mint
	report.Position = opened.Position.Address()
	report.Metadata = opened.Metadata
	report.Owners = append(report.Owners, first.PublicKey())
	s.logger.Info("Position opened",
		zap.String("mint", mint.String()),
		zap.String("owner", first.PublicKey().String()))

	if err := svc.Freeze(ctx, mint); err != nil {
		return nil, err
	}
	if err := svc.Unfreeze(ctx, mint); err != nil {
		return nil, err
	}
	if _, err := svc.Transfer(ctx, mint, first, funder, second.PublicKey()); err != nil {
		return nil, err
	}
	report.Owners = append(report.Owners, second.PublicKey())

	if err := svc.Close(ctx, mint, second, funder.PublicKey()); err != nil {
		return nil, err
	}
	emptied, err := opened.Position.HoldingAccount(first.PublicKey())
	if err != nil {
		return nil, err
	}
	if err := svc.CloseEmptyAccount(ctx, mint, first, emptied, funder.PublicKey()); err != nil {
		return nil, err
	}
	report.Stage = svc.Tracker().Stage(mint)

	if err := s.bindReward(ctx, program, mem, store, funder, counter, report); err != nil {
		return nil, err
	}

	report.Events = counter.snapshot()
	return report, nil
}

// bindReward creates a reward mint and binds it to slot 0 of a fresh pool.
func (s *Simulation) bindReward(ctx context.Context, program solana.PublicKey, mem *ledger.Memory, store *memory.Storage,
	funder authority.Signer, publisher events.Publisher, report *Report) error {
	rewardMint := newKeypair()
	if err := mem.Atomic(ctx, func(l ledger.Ledger) error {
		if err := l.CreateAccount(ctx, ledger.CreateAccountParams{
			Funder:   funder,
			Account:  rewardMint,
			Lamports: ledger.DefaultRent.MinimumBalance(ledger.MintBaseSize),
			Space:    ledger.MintBaseSize,
			Owner:    ledger.TokenProgramID,
		}); err != nil {
			return err
		}
		return l.InitializeMint2(ctx, ledger.InitializeMintParams{
			Mint:          rewardMint.PublicKey(),
			Decimals:      6,
			MintAuthority: funder.PublicKey(),
		})
	}); err != nil {
		return fmt.Errorf("create reward mint: %w", err)
	}

	rewardAuthority := newKeypair()
	pool := reward.NewPool(report.Whirlpool, solana.NewWallet().PublicKey(), rewardAuthority.PublicKey())
	if err := store.SavePool(ctx, pool); err != nil {
		return err
	}
	allow, err := allowList(s.cfg, rewardMint.PublicKey())
	if err != nil {
		return err
	}
	badge, err := authority.DeriveTokenBadge(program, pool.Config, rewardMint.PublicKey())
	if err != nil {
		return err
	}

	vault := newKeypair()
	binder := reward.NewBinder(program, mem, store, allow, ledger.DefaultRent, s.logger,
		reward.WithPublisher(publisher),
		reward.WithRecorder(s.metrics),
	)
	if _, err := binder.Bind(ctx, reward.BindRequest{
		Index:           0,
		RewardAuthority: rewardAuthority,
		Funder:          funder,
		Pool:            pool.Address,
		Mint:            rewardMint.PublicKey(),
		TokenBadge:      badge,
		Vault:           vault,
	}); err != nil {
		return err
	}
	report.RewardMint = rewardMint.PublicKey()
	report.RewardVault = vault.PublicKey()
	return nil
}

func newKeypair() authority.Signer {
	return authority.Keypair(solana.NewWallet().PublicKey())
}
