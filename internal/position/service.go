// internal/position/service.go
package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/events"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
	"github.com/rovshanmuradov/whirlpool-positions/internal/utils/logger"
)

// Recorder receives operation metrics.
type Recorder interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	ObserveTransition(t domain.Transition)
}

// Config configures a Service.
type Config struct {
	Program  solana.PublicKey
	Metadata MetadataConfig
}

// Holding is the tracked custody of a position token.
type Holding struct {
	Position *Position
	Owner    solana.PublicKey
	Account  solana.PublicKey
	Metadata *Metadata
}

// OpenRequest opens a position token for Owner.
type OpenRequest struct {
	Funder       authority.Signer
	Mint         authority.Signer
	Whirlpool    solana.PublicKey
	Owner        solana.PublicKey
	WithMetadata bool
}

// Service runs each lifecycle operation as one atomic unit against the
// ledger, tracking the stage of every position mint it opened.
type Service struct {
	cfg         Config
	tx          ledger.Transactor
	provisioner *Provisioner
	deliverer   *Deliverer
	custodian   *Custodian
	transferor  *Transferor
	tracker     *Tracker
	publisher   events.Publisher
	recorder    Recorder
	logger      *zap.Logger

	mu       sync.Mutex
	holdings map[solana.PublicKey]*Holding
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes lifecycle events to p.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRecorder records operation metrics in r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithTransferor replaces the default transfer and teardown unit.
func WithTransferor(t *Transferor) Option {
	return func(s *Service) { s.transferor = t }
}

// NewService creates a Service over tx.
func NewService(cfg Config, tx ledger.Transactor, rent ledger.Rent, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:         cfg,
		tx:          tx,
		provisioner: NewProvisioner(rent, logger),
		deliverer:   NewDeliverer(logger),
		custodian:   NewCustodian(logger),
		transferor:  NewTransferor(logger),
		tracker:     NewTracker(),
		logger:      logger.Named("position"),
		holdings:    make(map[solana.PublicKey]*Holding),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tracker exposes the lifecycle stages of opened positions.
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// Holding returns the tracked custody of mint.
func (s *Service) Holding(mint solana.PublicKey) (Holding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holdings[mint]
	if !ok {
		return Holding{}, false
	}
	return *h, true
}

// Open provisions the mint, optionally attaches metadata and delivers the
// single unit to the owner. Nothing persists unless every step succeeds.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*Holding, error) {
	const op = "open"
	start := time.Now()

	if req.Mint == nil || req.Funder == nil {
		return nil, s.finish(op, solana.PublicKey{}, start,
			domain.Fail(op, domain.ErrAllocation, errors.New("mint and funder signers are required")))
	}

	pos, err := New(s.cfg.Program, req.Whirlpool, req.Mint.PublicKey())
	if err != nil {
		return nil, s.finish(op, req.Mint.PublicKey(), start, domain.Fail(op, domain.ErrAllocation, err))
	}

	var md *Metadata
	if req.WithMetadata {
		built, err := BuildMetadata(s.cfg.Metadata, req.Whirlpool, pos.Address(), pos.Mint)
		if err != nil {
			return nil, s.finish(op, pos.Mint, start, err)
		}
		md = &built
	}

	path := []domain.Stage{domain.StageAllocated, domain.StageFinalized, domain.StageDelivered}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tracker.Check(pos.Mint, path...); err != nil {
		return nil, s.finish(op, pos.Mint, start, err)
	}

	var account solana.PublicKey
	err = s.tx.Atomic(ctx, func(l ledger.Ledger) error {
		if err := s.provisioner.Provision(ctx, l, ProvisionRequest{
			Funder:       req.Funder,
			Mint:         req.Mint,
			Position:     pos,
			WithMetadata: req.WithMetadata,
		}); err != nil {
			return err
		}
		if md != nil {
			if err := s.provisioner.AttachMetadata(ctx, l, req.Funder, pos, *md, s.cfg.Metadata.UpdateAuthority); err != nil {
				return err
			}
		}
		var err error
		account, err = s.deliverer.Deliver(ctx, l, DeliveryRequest{
			Funder:   req.Funder,
			Owner:    req.Owner,
			Position: pos,
		})
		return err
	})
	if err != nil {
		return nil, s.finish(op, pos.Mint, start, err)
	}

	h := &Holding{Position: pos, Owner: req.Owner, Account: account, Metadata: md}
	s.holdings[pos.Mint] = h
	s.commit(events.PositionOpened, h, path...)
	logger.WithPosition(s.logger, req.Whirlpool, pos.Mint, pos.Address()).Info("Position opened",
		zap.Stringer("owner", req.Owner),
		zap.Stringer("account", account),
		zap.Bool("metadata", md != nil))
	return h, s.finish(op, pos.Mint, start, nil)
}

// Freeze blocks transfers of the position token.
func (s *Service) Freeze(ctx context.Context, mint solana.PublicKey) error {
	return s.custody(ctx, "freeze", mint, domain.StageFrozen, events.PositionFrozen, s.custodian.Freeze)
}

// Unfreeze re-enables transfers of the position token.
func (s *Service) Unfreeze(ctx context.Context, mint solana.PublicKey) error {
	return s.custody(ctx, "unfreeze", mint, domain.StageThawed, events.PositionThawed, s.custodian.Unfreeze)
}

type custodyFunc func(ctx context.Context, l ledger.Ledger, pos *Position, account solana.PublicKey) error

func (s *Service) custody(ctx context.Context, op string, mint solana.PublicKey, to domain.Stage, event events.EventType, fn custodyFunc) error {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.holding(op, mint)
	if err != nil {
		return s.finish(op, mint, start, err)
	}
	if err := s.tracker.Check(mint, to); err != nil {
		return s.finish(op, mint, start, err)
	}
	if err := s.tx.Atomic(ctx, func(l ledger.Ledger) error {
		return fn(ctx, l, h.Position, h.Account)
	}); err != nil {
		return s.finish(op, mint, start, err)
	}
	s.commit(event, h, to)
	return s.finish(op, mint, start, nil)
}

// Transfer moves the position token from its current holder to recipient,
// creating the recipient's holding account when it does not exist yet.
func (s *Service) Transfer(ctx context.Context, mint solana.PublicKey, holder, funder authority.Signer, recipient solana.PublicKey) (solana.PublicKey, error) {
	const op = "transfer"
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.holding(op, mint)
	if err != nil {
		return solana.PublicKey{}, s.finish(op, mint, start, err)
	}
	if err := s.tracker.Transferable(mint); err != nil {
		return solana.PublicKey{}, s.finish(op, mint, start, err)
	}
	if !holder.PublicKey().Equals(h.Owner) {
		return solana.PublicKey{}, s.finish(op, mint, start, domain.Fail(op, domain.ErrUnauthorized,
			fmt.Errorf("%s does not hold %s", holder.PublicKey(), mint)))
	}

	destination, err := h.Position.HoldingAccount(recipient)
	if err != nil {
		return solana.PublicKey{}, s.finish(op, mint, start, domain.Fail(op, domain.ErrAllocation, err))
	}

	err = s.tx.Atomic(ctx, func(l ledger.Ledger) error {
		if _, err := l.TokenAccount(ctx, destination); errors.Is(err, ledger.ErrAccountNotFound) {
			if err := l.CreateAssociatedTokenAccount(ctx, ledger.AssociatedAccountParams{
				Funder:       funder,
				Account:      destination,
				Owner:        recipient,
				Mint:         mint,
				TokenProgram: ledger.Token2022ProgramID,
			}); err != nil {
				return allocation(op, err)
			}
		} else if err != nil {
			return rejected(op, err)
		}
		return s.transferor.Transfer(ctx, l, TransferRequest{
			Position:    h.Position,
			Holder:      holder,
			Source:      h.Account,
			Destination: destination,
		})
	})
	if err != nil {
		return solana.PublicKey{}, s.finish(op, mint, start, err)
	}

	previous := h.Account
	h.Owner, h.Account = recipient, destination
	s.publish(events.PositionEvent{
		BaseEvent: events.NewBase(events.PositionTransferred),
		Mint:      mint,
		Position:  h.Position.Address(),
		Owner:     recipient,
		Account:   destination,
	})
	s.logger.Debug("Holding moved",
		zap.String("mint", mint.String()),
		zap.String("from", previous.String()),
		zap.String("to", destination.String()))
	return destination, s.finish(op, mint, start, nil)
}

// Close burns the position token and closes the holding account and the
// mint, returning rent to receiver. The position record is the caller's to
// destroy afterwards.
func (s *Service) Close(ctx context.Context, mint solana.PublicKey, holder authority.Signer, receiver solana.PublicKey) error {
	const op = "close"
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.holding(op, mint)
	if err != nil {
		return s.finish(op, mint, start, err)
	}
	path := []domain.Stage{domain.StageBurned, domain.StageClosed}
	if err := s.tracker.Check(mint, path...); err != nil {
		return s.finish(op, mint, start, err)
	}
	if err := s.tx.Atomic(ctx, func(l ledger.Ledger) error {
		return s.transferor.Teardown(ctx, l, TeardownRequest{
			Position: h.Position,
			Holder:   holder,
			Account:  h.Account,
			Receiver: receiver,
		})
	}); err != nil {
		return s.finish(op, mint, start, err)
	}
	s.commit(events.PositionClosed, h, path...)
	return s.finish(op, mint, start, nil)
}

// ResumeClose completes a journaled teardown of mint.
func (s *Service) ResumeClose(ctx context.Context, mint solana.PublicKey, holder authority.Signer) error {
	const op = "resume_close"
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.holding(op, mint)
	if err != nil {
		return s.finish(op, mint, start, err)
	}
	path := []domain.Stage{domain.StageBurned, domain.StageClosed}
	if err := s.tracker.Check(mint, path...); err != nil {
		return s.finish(op, mint, start, err)
	}
	if err := s.tx.Atomic(ctx, func(l ledger.Ledger) error {
		return s.transferor.Resume(ctx, l, h.Position, holder)
	}); err != nil {
		return s.finish(op, mint, start, err)
	}
	s.commit(events.PositionTeardownResumed, h, path...)
	return s.finish(op, mint, start, nil)
}

// CloseEmptyAccount closes an empty holding account of mint.
func (s *Service) CloseEmptyAccount(ctx context.Context, mint solana.PublicKey, holder authority.Signer, account, receiver solana.PublicKey) error {
	const op = "close_empty_account"
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.holding(op, mint)
	if err != nil {
		return s.finish(op, mint, start, err)
	}
	if err := s.tx.Atomic(ctx, func(l ledger.Ledger) error {
		return s.transferor.CloseEmptyAccount(ctx, l, h.Position, holder, account, receiver)
	}); err != nil {
		return s.finish(op, mint, start, err)
	}
	s.publish(events.PositionEvent{
		BaseEvent: events.NewBase(events.HoldingAccountClosed),
		Mint:      mint,
		Position:  h.Position.Address(),
		Owner:     holder.PublicKey(),
		Account:   account,
	})
	return s.finish(op, mint, start, nil)
}

// holding must be called with mu held.
func (s *Service) holding(op string, mint solana.PublicKey) (*Holding, error) {
	h, ok := s.holdings[mint]
	if !ok {
		return nil, domain.Fail(op, domain.ErrInvalidTransition,
			fmt.Errorf("position mint %s is not tracked", mint))
	}
	return h, nil
}

// commit must be called with mu held, after the ledger accepted the operation.
func (s *Service) commit(event events.EventType, h *Holding, path ...domain.Stage) {
	transitions, err := s.tracker.Advance(h.Position.Mint, h.Position.Address(), path...)
	if err != nil {
		// checked under the same lock before the ledger call
		s.logger.Error("Tracker diverged from ledger", zap.Error(err))
		return
	}
	if s.recorder != nil {
		for _, t := range transitions {
			s.recorder.ObserveTransition(t)
		}
	}
	s.publish(events.PositionEvent{
		BaseEvent:   events.NewBase(event),
		Mint:        h.Position.Mint,
		Position:    h.Position.Address(),
		Owner:       h.Owner,
		Account:     h.Account,
		Transitions: transitions,
	})
}

func (s *Service) publish(e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(e); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", string(e.Type())),
			zap.Error(err))
	}
}

func (s *Service) finish(op string, mint solana.PublicKey, start time.Time, err error) error {
	duration := time.Since(start)
	if s.recorder != nil {
		s.recorder.ObserveOperation(op, duration, err)
	}
	opLogger := logger.WithOperation(s.logger, op)
	if err != nil {
		opLogger.Warn("Position operation failed",
			zap.String("mint", mint.String()),
			zap.String("kind", domain.KindName(err)),
			zap.Error(err))
		s.publish(events.OperationFailedEvent{
			BaseEvent: events.NewBase(events.OperationFailed),
			Operation: op,
			Mint:      mint,
			Kind:      domain.KindName(err),
			Error:     err,
		})
		return err
	}
	opLogger.Info("Position operation completed",
		zap.String("mint", mint.String()),
		zap.Duration("duration", duration))
	return nil
}
