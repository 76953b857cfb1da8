// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/whirlpool-positions/internal/position"
	"github.com/rovshanmuradov/whirlpool-positions/internal/reward"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage/models"
)

// ErrTransactionNotFound is returned when no transaction has the signature.
var ErrTransactionNotFound = errors.New("transaction not found")

// Storage persists reward pools, the teardown journal and submitted
// lifecycle transactions.
type Storage interface {
	reward.PoolStore
	position.Journal

	// Transactions
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, signature string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, mint string, limit, offset int) ([]*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, signature, status, errorMsg string) error

	RunMigrations() error
	Close() error
}
