// internal/blockchain/solbc/transaction/manager.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage/models"
	"github.com/rovshanmuradov/whirlpool-positions/internal/utils/logger"
)

// History records submitted transactions.
type History interface {
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	UpdateTransactionStatus(ctx context.Context, signature, status, errorMsg string) error
}

// Manager builds, signs, sends and confirms lifecycle transactions.
type Manager struct {
	client   blockchain.Client
	history  History
	analyzer *ErrorAnalyzer
	metrics  *Metrics
	config   Config
	logger   *zap.Logger
}

// NewManager creates a manager. history and metrics may be nil.
func NewManager(client blockchain.Client, config Config, history History, metrics *Metrics, logger *zap.Logger) *Manager {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Manager{
		client:   client,
		history:  history,
		analyzer: NewErrorAnalyzer(logger),
		metrics:  metrics,
		config:   config,
		logger:   logger.Named("tx-manager"),
	}
}

// SendAndConfirm submits req, resubmitting with a fresh blockhash while the
// failure is retryable, and waits for confirmation.
func (tm *Manager) SendAndConfirm(ctx context.Context, req Request) (*Status, error) {
	if req.Payer == nil {
		return nil, ErrNoPayer
	}
	start := time.Now()
	defer tm.metrics.TrackTransaction(start)

	instructions, err := tm.prefix(req.Instructions)
	if err != nil {
		return nil, err
	}

	attempts := 0
	op := func() (solana.Signature, error) {
		attempts++
		tx, err := tm.createSignedTransaction(ctx, req, instructions)
		if err != nil {
			return solana.Signature{}, err
		}
		return tm.submitAndConfirm(ctx, req, tx)
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(tm.config.MaxElapsedTime),
	}
	if tm.config.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(tm.config.MaxTries))
	}
	sig, err := backoff.Retry(ctx, op, opts...)
	status := &Status{
		Status:    models.TransactionConfirmed,
		Attempts:  attempts,
		Timestamp: time.Now(),
	}
	if !sig.IsZero() {
		status.Signature = sig.String()
	}
	if err != nil {
		tm.metrics.attempt(req.Operation, "failed")
		status.Status = models.TransactionFailed
		status.Error = err.Error()
		tm.logger.Error("Transaction failed",
			zap.String("operation", req.Operation),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return status, err
	}

	if statuses, err := tm.client.GetSignatureStatuses(ctx, sig); err == nil &&
		statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
		status.Slot = statuses.Value[0].Slot
	}
	tm.metrics.attempt(req.Operation, "confirmed")
	logger.WithTransaction(tm.logger, status.Signature).Info("Transaction confirmed",
		zap.String("operation", req.Operation),
		zap.Uint64("slot", status.Slot))
	return status, nil
}

// prefix prepends the compute-budget instructions.
func (tm *Manager) prefix(instructions []solana.Instruction) ([]solana.Instruction, error) {
	if len(instructions) == 0 {
		return nil, ErrInvalidInstruction
	}
	var out []solana.Instruction
	if tm.config.ComputeUnitLimit > 0 {
		ix, err := computebudget.NewSetComputeUnitLimitInstruction(tm.config.ComputeUnitLimit).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("compute unit limit: %w", err)
		}
		out = append(out, ix)
	}
	if tm.config.ComputeUnitPrice > 0 {
		ix, err := computebudget.NewSetComputeUnitPriceInstruction(tm.config.ComputeUnitPrice).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("compute unit price: %w", err)
		}
		out = append(out, ix)
	}
	return append(out, instructions...), nil
}

func (tm *Manager) createSignedTransaction(ctx context.Context, req Request, instructions []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := tm.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(req.Payer.PublicKey))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create transaction: %w", err))
	}

	keys := map[solana.PublicKey]*solana.PrivateKey{req.Payer.PublicKey: &req.Payer.PrivateKey}
	for _, w := range req.Signers {
		keys[w.PublicKey] = &w.PrivateKey
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey { return keys[key] })
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to sign transaction: %w", err))
	}
	if err := Validate(tx); err != nil {
		return nil, backoff.Permanent(err)
	}
	return tx, nil
}

func (tm *Manager) submitAndConfirm(ctx context.Context, req Request, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := tm.client.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		SkipPreflight:       tm.config.SkipPreflight,
		PreflightCommitment: tm.config.Commitment,
	})
	if err != nil {
		analysis := tm.analyzer.Analyze(err)
		if analysis.Retryable() {
			tm.metrics.attempt(req.Operation, "retried")
			tm.logger.Warn("Retrying transaction send", zap.Error(err))
			return solana.Signature{}, err
		}
		tm.logger.Debug("Transaction rejected", zap.String("analysis", analysis.Format()))
		return solana.Signature{}, backoff.Permanent(fmt.Errorf("transaction rejected: %w", err))
	}

	tm.record(ctx, req, sig)

	if err := tm.client.WaitForTransactionConfirmation(ctx, sig, tm.config.Commitment); err != nil {
		tm.updateStatus(ctx, sig, models.TransactionFailed, err.Error())
		var txErr *TransactionError
		if errors.As(err, &txErr) || errors.Is(err, ErrConfirmationTimeout) {
			return sig, backoff.Permanent(err)
		}
		return sig, backoff.Permanent(fmt.Errorf("confirmation failed: %w", err))
	}
	tm.updateStatus(ctx, sig, models.TransactionConfirmed, "")
	return sig, nil
}

func (tm *Manager) record(ctx context.Context, req Request, sig solana.Signature) {
	if tm.history == nil {
		return
	}
	rec := &models.Transaction{
		Signature: sig.String(),
		Operation: req.Operation,
		Payer:     req.Payer.PublicKey.String(),
		Status:    models.TransactionPending,
	}
	if !req.Mint.IsZero() {
		rec.Mint = req.Mint.String()
	}
	if err := tm.history.SaveTransaction(ctx, rec); err != nil {
		tm.logger.Warn("Failed to record transaction", zap.String("signature", rec.Signature), zap.Error(err))
	}
}

func (tm *Manager) updateStatus(ctx context.Context, sig solana.Signature, status, msg string) {
	if tm.history == nil {
		return
	}
	if err := tm.history.UpdateTransactionStatus(ctx, sig.String(), status, msg); err != nil {
		tm.logger.Warn("Failed to update transaction status", zap.String("signature", sig.String()), zap.Error(err))
	}
}
