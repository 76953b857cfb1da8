// internal/app/runner.go
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain/solbc"
	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/whirlpool-positions/internal/config"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage/models"
	"github.com/rovshanmuradov/whirlpool-positions/internal/utils/metrics"
	"github.com/rovshanmuradov/whirlpool-positions/internal/wallet"
)

// DefaultWalletName is used when a command names no wallet.
const DefaultWalletName = "default"

// Lifecycle is the on-chain surface the runner drives.
type Lifecycle interface {
	OpenPosition(ctx context.Context, req solbc.OpenRequest) (*solbc.Opened, error)
	ClosePosition(ctx context.Context, holder *wallet.Wallet, receiver, mint solana.PublicKey) (*transaction.Status, error)
	TransferPosition(ctx context.Context, holder *wallet.Wallet, recipient, mint solana.PublicKey) (*transaction.Status, error)
	InitializeReward(ctx context.Context, req solbc.RewardRequest) (solana.PublicKey, *transaction.Status, error)
}

// Result is the outcome of one executed command.
type Result struct {
	Operation string
	Signature string
	Mint      solana.PublicKey
	Position  solana.PublicKey
	Account   solana.PublicKey
	Vault     solana.PublicKey
}

// Runner wires configuration, wallets, storage and the on-chain client and
// executes CLI commands against a cluster.
type Runner struct {
	cfg       *config.Config
	registry  prometheus.Registerer
	metrics   *metrics.Collector
	logger    *zap.Logger
	store     storage.Storage
	lifecycle Lifecycle
	wallets   map[string]*wallet.Wallet
	shutdown  *ShutdownHandler
}

func NewRunner(cfg *config.Config, reg prometheus.Registerer, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		registry: reg,
		metrics:  metrics.NewCollectorWith(reg),
		logger:   logger.Named("runner"),
		shutdown: NewShutdownHandler(logger, 30*time.Second),
	}
}

// Initialize loads wallets and connects storage and RPC nodes.
func (r *Runner) Initialize(walletsPath string) error {
	wallets, err := wallet.LoadWallets(walletsPath)
	if err != nil {
		return fmt.Errorf("load wallets: %w", err)
	}
	r.wallets = wallets
	r.logger.Info("Wallets loaded", zap.Int("count", len(wallets)))

	store, err := openStorage(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	r.store = store
	r.shutdown.Add("storage", store)

	client, err := solbc.NewClient(r.cfg.RPCList, r.metrics, r.logger)
	if err != nil {
		return fmt.Errorf("create rpc client: %w", err)
	}
	r.shutdown.Add("rpc", client)

	program, err := programID(r.cfg)
	if err != nil {
		return err
	}
	txConfig := transaction.DefaultConfig()
	txConfig.ComputeUnitLimit = r.cfg.ComputeUnitLimit
	txConfig.ComputeUnitPrice = r.cfg.ComputeUnitPrice
	txConfig.MaxTries = uint(r.cfg.Retries) + 1

	manager := transaction.NewManager(client, txConfig, store, transaction.NewMetrics(r.registry), r.logger)
	r.lifecycle = solbc.NewLifecycle(client, solbc.NewBuilder(program), manager, r.logger)
	return nil
}

// Run executes cmd, cancelling it on SIGINT or SIGTERM, then shuts down.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.Shutdown()

	return r.Execute(ctx, cmd)
}

// Execute validates and runs one command.
func (r *Runner) Execute(ctx context.Context, cmd Command) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	logger := r.logger.With(zap.String("operation", cmd.Name()))
	logger.Debug("Executing command")

	var (
		res *Result
		err error
	)
	switch c := cmd.(type) {
	case OpenCommand:
		res, err = r.open(ctx, c)
	case CloseCommand:
		res, err = r.close(ctx, c)
	case TransferCommand:
		res, err = r.transfer(ctx, c)
	case InitRewardCommand:
		res, err = r.initReward(ctx, c)
	default:
		return nil, fmt.Errorf("%w: unknown command %T", ErrInvalidCommand, cmd)
	}
	if err != nil {
		logger.Error("Command failed", zap.Error(err))
		return nil, err
	}
	res.Operation = cmd.Name()
	logger.Info("Command completed",
		zap.String("signature", res.Signature),
		zap.String("mint", res.Mint.String()))
	return res, nil
}

func (r *Runner) open(ctx context.Context, c OpenCommand) (*Result, error) {
	funder, err := r.wallet(c.Wallet)
	if err != nil {
		return nil, err
	}
	whirlpool, _ := parseKey("whirlpool", c.Whirlpool, true)
	owner, _ := parseKey("owner", c.Owner, false)

	opened, err := r.lifecycle.OpenPosition(ctx, solbc.OpenRequest{
		Funder:         funder,
		Owner:          owner,
		Whirlpool:      whirlpool,
		TickLowerIndex: c.TickLower,
		TickUpperIndex: c.TickUpper,
		WithMetadata:   c.WithMetadata,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Signature: opened.Status.Signature,
		Mint:      opened.Mint,
		Position:  opened.Position,
		Account:   opened.Account,
	}, nil
}

func (r *Runner) close(ctx context.Context, c CloseCommand) (*Result, error) {
	holder, err := r.wallet(c.Wallet)
	if err != nil {
		return nil, err
	}
	mint, _ := parseKey("mint", c.Mint, true)
	receiver, _ := parseKey("receiver", c.Receiver, false)

	status, err := r.lifecycle.ClosePosition(ctx, holder, receiver, mint)
	if err != nil {
		return nil, err
	}
	return &Result{Signature: status.Signature, Mint: mint}, nil
}

func (r *Runner) transfer(ctx context.Context, c TransferCommand) (*Result, error) {
	holder, err := r.wallet(c.Wallet)
	if err != nil {
		return nil, err
	}
	mint, _ := parseKey("mint", c.Mint, true)
	recipient, _ := parseKey("recipient", c.Recipient, true)

	status, err := r.lifecycle.TransferPosition(ctx, holder, recipient, mint)
	if err != nil {
		return nil, err
	}
	return &Result{Signature: status.Signature, Mint: mint}, nil
}

func (r *Runner) initReward(ctx context.Context, c InitRewardCommand) (*Result, error) {
	funder, err := r.wallet(c.Wallet)
	if err != nil {
		return nil, err
	}
	rewardAuthority := funder
	if c.Authority != "" {
		if rewardAuthority, err = r.wallet(c.Authority); err != nil {
			return nil, err
		}
	}
	whirlpool, _ := parseKey("whirlpool", c.Whirlpool, true)
	whirlpoolsConfig, _ := parseKey("config", c.Config, true)
	rewardMint, _ := parseKey("reward_mint", c.RewardMint, true)

	vault, status, err := r.lifecycle.InitializeReward(ctx, solbc.RewardRequest{
		RewardAuthority:  rewardAuthority,
		Funder:           funder,
		Whirlpool:        whirlpool,
		WhirlpoolsConfig: whirlpoolsConfig,
		RewardMint:       rewardMint,
		Index:            uint8(c.Index),
	})
	if err != nil {
		return nil, err
	}
	return &Result{Signature: status.Signature, Mint: rewardMint, Vault: vault}, nil
}

// wallet resolves name, falling back to the "default" wallet and then to
// the first wallet by name.
func (r *Runner) wallet(name string) (*wallet.Wallet, error) {
	if name != "" {
		w, ok := r.wallets[name]
		if !ok {
			return nil, fmt.Errorf("%w: wallet %q not found", ErrInvalidCommand, name)
		}
		return w, nil
	}
	if w, ok := r.wallets[DefaultWalletName]; ok {
		return w, nil
	}
	names := make([]string, 0, len(r.wallets))
	for n := range r.wallets {
		names = append(names, n)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no wallets loaded", ErrInvalidCommand)
	}
	sort.Strings(names)
	return r.wallets[names[0]], nil
}

// History lists recorded transactions of mint, newest first.
func (r *Runner) History(ctx context.Context, mint string, limit int) ([]*models.Transaction, error) {
	if r.store == nil {
		return nil, fmt.Errorf("storage is not initialized")
	}
	return r.store.ListTransactions(ctx, mint, limit, 0)
}

// Shutdown closes storage and RPC connections and flushes the logger.
func (r *Runner) Shutdown() {
	if err := r.shutdown.Shutdown(context.Background()); err != nil {
		r.logger.Warn("Shutdown completed with errors", zap.Error(err))
	}
	if err := r.logger.Sync(); err != nil && !os.IsNotExist(err) &&
		err.Error() != "sync /dev/stdout: invalid argument" &&
		err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
		fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
	}
}
