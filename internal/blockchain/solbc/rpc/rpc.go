// internal/blockchain/solbc/rpc/rpc.go
package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	retryDelay = 500 * time.Millisecond
	reqTimeout = 10 * time.Second
)

// LatencyObserver receives the duration of every node call.
type LatencyObserver func(method, url string, d time.Duration, err error)

// RPCClient spreads calls over a list of nodes, moving to the next node on
// transport failures.
type RPCClient struct {
	nodes   []*solanarpc.Client
	urls    []string
	current int
	mu      sync.Mutex
	observe LatencyObserver
	logger  *zap.Logger
}

func NewClient(urls []string, logger *zap.Logger) (*RPCClient, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}

	nodes := make([]*solanarpc.Client, len(urls))
	for i, url := range urls {
		nodes[i] = solanarpc.New(url)
	}

	return &RPCClient{
		nodes:   nodes,
		urls:    urls,
		observe: func(string, string, time.Duration, error) {},
		logger:  logger.Named("rpc-client"),
	}, nil
}

// SetObserver installs fn as the latency observer.
func (c *RPCClient) SetObserver(fn LatencyObserver) {
	if fn != nil {
		c.observe = fn
	}
}

// ExecuteWithRetry runs operation against the nodes in turn, at most once
// per node. JSON-RPC errors are returned as-is.
func (c *RPCClient) ExecuteWithRetry(ctx context.Context, method string, operation func(context.Context, *solanarpc.Client) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, reqTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < len(c.nodes); attempt++ {
		if err := timeoutCtx.Err(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s", ErrTimeout, method)
		}

		c.mu.Lock()
		node := c.nodes[c.current]
		url := c.urls[c.current]
		c.current = (c.current + 1) % len(c.nodes)
		c.mu.Unlock()

		start := time.Now()
		err := operation(timeoutCtx, node)
		c.observe(method, url, time.Since(start), err)
		if err == nil {
			return nil
		}
		lastErr = NewError(err, url, method)
		if IsNodeResponse(err) {
			return lastErr
		}

		c.logger.Debug("RPC request failed, trying next node",
			zap.String("url", url),
			zap.String("method", method),
			zap.Error(err),
			zap.Int("attempt", attempt+1))

		if attempt < len(c.nodes)-1 {
			select {
			case <-timeoutCtx.Done():
			case <-time.After(retryDelay):
			}
		}
	}

	c.logger.Warn("All RPC nodes failed", zap.String("method", method), zap.Error(lastErr))
	return lastErr
}

func (c *RPCClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	var result *solanarpc.GetAccountInfoResult
	err := c.ExecuteWithRetry(ctx, "getAccountInfo", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		result, err = client.GetAccountInfoWithOpts(ctx, pubkey, &solanarpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: solanarpc.CommitmentConfirmed,
		})
		return err
	})
	return result, err
}

func (c *RPCClient) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
	var result *solanarpc.GetMultipleAccountsResult
	err := c.ExecuteWithRetry(ctx, "getMultipleAccounts", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		result, err = client.GetMultipleAccountsWithOpts(ctx, pubkeys, &solanarpc.GetMultipleAccountsOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: solanarpc.CommitmentConfirmed,
		})
		return err
	})
	return result, err
}

func (c *RPCClient) GetLatestBlockhash(ctx context.Context) (*solanarpc.GetLatestBlockhashResult, error) {
	var result *solanarpc.GetLatestBlockhashResult
	err := c.ExecuteWithRetry(ctx, "getLatestBlockhash", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		result, err = client.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
		return err
	})
	return result, err
}

func (c *RPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error) {
	var signature solana.Signature
	err := c.ExecuteWithRetry(ctx, "sendTransaction", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		signature, err = client.SendTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return signature, err
}

func (c *RPCClient) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*solanarpc.SimulateTransactionResponse, error) {
	var result *solanarpc.SimulateTransactionResponse
	err := c.ExecuteWithRetry(ctx, "simulateTransaction", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		result, err = client.SimulateTransaction(ctx, tx)
		return err
	})
	return result, err
}

func (c *RPCClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	var result *solanarpc.GetSignatureStatusesResult
	err := c.ExecuteWithRetry(ctx, "getSignatureStatuses", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		result, err = client.GetSignatureStatuses(ctx, false, signatures...)
		return err
	})
	return result, err
}

func (c *RPCClient) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment solanarpc.CommitmentType) (uint64, error) {
	var balance uint64
	err := c.ExecuteWithRetry(ctx, "getBalance", func(ctx context.Context, client *solanarpc.Client) error {
		result, err := client.GetBalance(ctx, pubkey, commitment)
		if err != nil {
			return err
		}
		balance = result.Value
		return nil
	})
	return balance, err
}

func (c *RPCClient) GetMinimumBalanceForRentExemption(ctx context.Context, space uint64) (uint64, error) {
	var lamports uint64
	err := c.ExecuteWithRetry(ctx, "getMinimumBalanceForRentExemption", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		lamports, err = client.GetMinimumBalanceForRentExemption(ctx, space, solanarpc.CommitmentConfirmed)
		return err
	})
	return lamports, err
}

// Close closes every node connection.
func (c *RPCClient) Close() error {
	var firstErr error
	for _, node := range c.nodes {
		if err := node.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
