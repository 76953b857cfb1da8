// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/position"
	"github.com/rovshanmuradov/whirlpool-positions/internal/reward"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage/models"
)

// Storage is a process-local implementation of storage.Storage.
type Storage struct {
	mu           sync.RWMutex
	pools        map[solana.PublicKey]*reward.Pool
	intents      []*position.Intent
	transactions map[string]*models.Transaction
	logger       *zap.Logger
}

var _ storage.Storage = (*Storage)(nil)

func NewStorage(logger *zap.Logger) *Storage {
	return &Storage{
		pools:        make(map[solana.PublicKey]*reward.Pool),
		transactions: make(map[string]*models.Transaction),
		logger:       logger.Named("memory-storage"),
	}
}

func (s *Storage) GetPool(_ context.Context, address solana.PublicKey) (*reward.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", reward.ErrPoolNotFound, address)
	}
	return p.Clone(), nil
}

func (s *Storage) SavePool(_ context.Context, pool *reward.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.pools[pool.Address]; ok {
		if err := reward.CheckRebind(stored, pool); err != nil {
			return err
		}
	}
	s.pools[pool.Address] = pool.Clone()
	return nil
}

func (s *Storage) Begin(_ context.Context, intent position.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.intents {
		if i.ID == intent.ID {
			return fmt.Errorf("intent %s already recorded", intent.ID)
		}
	}
	intent.Completed = slices.Clone(intent.Completed)
	s.intents = append(s.intents, &intent)
	s.logger.Debug("teardown intent recorded",
		zap.String("intent", intent.ID.String()),
		zap.String("mint", intent.Mint.String()))
	return nil
}

func (s *Storage) Mark(_ context.Context, id uuid.UUID, step position.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.intents {
		if i.ID != id {
			continue
		}
		if !i.Done(step) {
			i.Completed = append(i.Completed, step)
			i.UpdatedAt = time.Now()
		}
		return nil
	}
	return fmt.Errorf("%w: %s", position.ErrNoIntent, id)
}

func (s *Storage) Pending(_ context.Context, mint solana.PublicKey) (position.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k := len(s.intents) - 1; k >= 0; k-- {
		if i := s.intents[k]; i.Mint.Equals(mint) && !i.Finished() {
			out := *i
			out.Completed = slices.Clone(i.Completed)
			return out, nil
		}
	}
	return position.Intent{}, position.ErrNoIntent
}

func (s *Storage) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.Signature]; ok {
		return fmt.Errorf("transaction %s already recorded", tx.Signature)
	}
	cp := *tx
	now := time.Now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.transactions[tx.Signature] = &cp
	return nil
}

func (s *Storage) GetTransaction(_ context.Context, signature string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[signature]
	if !ok {
		return nil, storage.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *Storage) ListTransactions(_ context.Context, mint string, limit, offset int) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, tx := range s.transactions {
		if tx.Mint == mint {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) UpdateTransactionStatus(_ context.Context, signature, status, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[signature]
	if !ok {
		return storage.ErrTransactionNotFound
	}
	tx.Status = status
	tx.ErrorMessage = errorMsg
	tx.UpdatedAt = time.Now().UTC()
	if status == models.TransactionConfirmed {
		at := tx.UpdatedAt
		tx.ConfirmedAt = &at
	}
	return nil
}

// RunMigrations is a no-op.
func (s *Storage) RunMigrations() error { return nil }

func (s *Storage) Close() error { return nil }
