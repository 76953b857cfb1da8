// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain/solbc/transaction"
)

const (
	confirmationPoll    = 500 * time.Millisecond
	confirmationTimeout = 60 * time.Second
)

// LatencyRecorder receives RPC latencies.
type LatencyRecorder interface {
	RecordRPCLatency(method, endpoint string, duration time.Duration)
}

// Client is a thin adapter over the RPC node list.
type Client struct {
	rpc    *rpc.RPCClient
	logger *zap.Logger
}

var _ blockchain.Client = (*Client)(nil)

// NewClient connects to urls. recorder may be nil.
func NewClient(urls []string, recorder LatencyRecorder, logger *zap.Logger) (*Client, error) {
	nodes, err := rpc.NewClient(urls, logger)
	if err != nil {
		return nil, err
	}
	if recorder != nil {
		nodes.SetObserver(func(method, url string, d time.Duration, _ error) {
			recorder.RecordRPCLatency(method, url, d)
		})
	}
	return &Client{
		rpc:    nodes,
		logger: logger.Named("solbc-client"),
	}, nil
}

func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransaction(ctx, tx, solanarpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Debug("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfo(ctx, pubkey)
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
	if len(pubkeys) == 0 {
		return &solanarpc.GetMultipleAccountsResult{}, nil
	}
	res, err := c.rpc.GetMultipleAccounts(ctx, pubkeys)
	if err != nil {
		c.logger.Debug("GetMultipleAccounts error", zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, signatures...)
	if err != nil {
		c.logger.Error("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	result, err := c.rpc.SimulateTransaction(ctx, tx)
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, err
	}
	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &blockchain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment solanarpc.CommitmentType) (uint64, error) {
	balance, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return balance, nil
}

func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, space uint64) (uint64, error) {
	return c.rpc.GetMinimumBalanceForRentExemption(ctx, space)
}

// WaitForTransactionConfirmation polls signature statuses until the
// transaction reaches commitment, fails, or the wait times out.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment solanarpc.CommitmentType) error {
	ticker := time.NewTicker(confirmationPoll)
	defer ticker.Stop()
	timeout := time.After(confirmationTimeout)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("%w: %s", transaction.ErrConfirmationTimeout, signature)
		case <-ticker.C:
			statuses, err := c.GetSignatureStatuses(ctx, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return &transaction.TransactionError{Signature: signature, Err: status.Err}
			}
			if reached(status.ConfirmationStatus, commitment) {
				return nil
			}
		}
	}
}

// reached reports whether got satisfies the wanted commitment.
func reached(got solanarpc.ConfirmationStatusType, want solanarpc.CommitmentType) bool {
	switch got {
	case solanarpc.ConfirmationStatusFinalized:
		return true
	case solanarpc.ConfirmationStatusConfirmed:
		return want != solanarpc.CommitmentFinalized
	case solanarpc.ConfirmationStatusProcessed:
		return want == solanarpc.CommitmentProcessed
	}
	return false
}

func (c *Client) Close() error {
	return c.rpc.Close()
}
