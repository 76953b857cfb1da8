// internal/blockchain/solbc/lifecycle.go
package solbc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
	"github.com/rovshanmuradov/whirlpool-positions/internal/wallet"
)

// Submitter sends lifecycle transactions.
type Submitter interface {
	SendAndConfirm(ctx context.Context, req transaction.Request) (*transaction.Status, error)
}

// Lifecycle drives the position-token lifecycle against a live cluster.
// Checks that mirror program constraints run against prefetched state so
// doomed transactions are not sent.
type Lifecycle struct {
	client    blockchain.Client
	builder   *Builder
	submitter Submitter
	logger    *zap.Logger
}

func NewLifecycle(client blockchain.Client, builder *Builder, submitter Submitter, logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		client:    client,
		builder:   builder,
		submitter: submitter,
		logger:    logger.Named("lifecycle"),
	}
}

// OpenRequest opens a position token for Owner in Whirlpool.
type OpenRequest struct {
	Funder         *wallet.Wallet
	Owner          solana.PublicKey
	Whirlpool      solana.PublicKey
	TickLowerIndex int32
	TickUpperIndex int32
	WithMetadata   bool
}

// Opened is the result of a confirmed open.
type Opened struct {
	Mint     solana.PublicKey
	Position solana.PublicKey
	Account  solana.PublicKey
	Status   *transaction.Status
}

func (l *Lifecycle) OpenPosition(ctx context.Context, req OpenRequest) (*Opened, error) {
	mint, err := wallet.NewRandomWallet()
	if err != nil {
		return nil, err
	}
	owner := req.Owner
	if owner.IsZero() {
		owner = req.Funder.PublicKey
	}
	ix, position, err := l.builder.OpenPosition(OpenPositionParams{
		Funder:         req.Funder.PublicKey,
		Owner:          owner,
		Whirlpool:      req.Whirlpool,
		PositionMint:   mint.PublicKey,
		TickLowerIndex: req.TickLowerIndex,
		TickUpperIndex: req.TickUpperIndex,
		WithMetadata:   req.WithMetadata,
	})
	if err != nil {
		return nil, err
	}
	account, err := ledger.FindAssociatedTokenAddress(owner, mint.PublicKey, ledger.Token2022ProgramID)
	if err != nil {
		return nil, err
	}

	status, err := l.submitter.SendAndConfirm(ctx, transaction.Request{
		Operation:    ixOpenPosition,
		Mint:         mint.PublicKey,
		Payer:        req.Funder,
		Signers:      []*wallet.Wallet{mint},
		Instructions: []solana.Instruction{ix},
	})
	if err != nil {
		return nil, fmt.Errorf("open position: %w", err)
	}
	l.logger.Info("Position opened",
		zap.Stringer("mint", mint.PublicKey),
		zap.Stringer("position", position),
		zap.Stringer("owner", owner))
	return &Opened{Mint: mint.PublicKey, Position: position, Account: account, Status: status}, nil
}

// holding loads the position token state for holder and checks it can
// leave the account.
func (l *Lifecycle) holding(ctx context.Context, holder, mint solana.PublicKey) (solana.PublicKey, error) {
	account, err := ledger.FindAssociatedTokenAddress(holder, mint, ledger.Token2022ProgramID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	state, err := FetchPositionState(ctx, l.client, mint, account)
	if err != nil {
		return solana.PublicKey{}, err
	}
	switch {
	case state.Account == nil:
		return solana.PublicKey{}, fmt.Errorf("%w: holding account %s", ErrAccountNotFound, account)
	case !state.Account.Owner.Equals(holder):
		return solana.PublicKey{}, domain.ErrUnauthorized
	case state.Account.Amount != 1:
		return solana.PublicKey{}, fmt.Errorf("%w: %s holds %d", domain.ErrInconsistentState, account, state.Account.Amount)
	case state.Account.IsFrozen():
		return solana.PublicKey{}, ledger.ErrAccountFrozen
	case state.Mint.Supply != 1:
		return solana.PublicKey{}, fmt.Errorf("%w: supply %d", domain.ErrInconsistentState, state.Mint.Supply)
	}
	return account, nil
}

// ClosePosition burns the token and closes the holding account and mint,
// returning rent to receiver.
func (l *Lifecycle) ClosePosition(ctx context.Context, holder *wallet.Wallet, receiver, mint solana.PublicKey) (*transaction.Status, error) {
	account, err := l.holding(ctx, holder.PublicKey, mint)
	if err != nil {
		return nil, err
	}
	if receiver.IsZero() {
		receiver = holder.PublicKey
	}
	ix, err := l.builder.ClosePosition(ClosePositionParams{
		PositionAuthority: holder.PublicKey,
		Receiver:          receiver,
		PositionMint:      mint,
		PositionAccount:   account,
	})
	if err != nil {
		return nil, err
	}
	return l.submitter.SendAndConfirm(ctx, transaction.Request{
		Operation:    ixClosePosition,
		Mint:         mint,
		Payer:        holder,
		Instructions: []solana.Instruction{ix},
	})
}

// TransferPosition moves the position token from holder to recipient.
func (l *Lifecycle) TransferPosition(ctx context.Context, holder *wallet.Wallet, recipient, mint solana.PublicKey) (*transaction.Status, error) {
	if recipient.Equals(holder.PublicKey) {
		return nil, errors.New("recipient is the current holder")
	}
	if _, err := l.holding(ctx, holder.PublicKey, mint); err != nil {
		return nil, err
	}
	ixs, err := l.builder.TransferPosition(holder.PublicKey, holder.PublicKey, recipient, mint)
	if err != nil {
		return nil, err
	}
	return l.submitter.SendAndConfirm(ctx, transaction.Request{
		Operation:    "transfer_checked",
		Mint:         mint,
		Payer:        holder,
		Instructions: ixs,
	})
}

// RewardRequest binds reward slot Index of Whirlpool to RewardMint.
type RewardRequest struct {
	RewardAuthority  *wallet.Wallet
	Funder           *wallet.Wallet
	Whirlpool        solana.PublicKey
	WhirlpoolsConfig solana.PublicKey
	RewardMint       solana.PublicKey
	Index            uint8
}

// InitializeReward creates the reward vault and binds the slot. It returns
// the vault address.
func (l *Lifecycle) InitializeReward(ctx context.Context, req RewardRequest) (solana.PublicKey, *transaction.Status, error) {
	info, err := l.client.GetAccountInfo(ctx, req.RewardMint)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("fetch reward mint: %w", err)
	}
	if info == nil || info.Value == nil {
		return solana.PublicKey{}, nil, fmt.Errorf("%w: reward mint %s", ErrAccountNotFound, req.RewardMint)
	}
	if _, err := DecodeMint(req.RewardMint, info.Value.Owner, info.Value.Data.GetBinary()); err != nil {
		return solana.PublicKey{}, nil, err
	}

	vault, err := wallet.NewRandomWallet()
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	ix, err := l.builder.InitializeReward(InitializeRewardParams{
		RewardAuthority:    req.RewardAuthority.PublicKey,
		Funder:             req.Funder.PublicKey,
		Whirlpool:          req.Whirlpool,
		WhirlpoolsConfig:   req.WhirlpoolsConfig,
		RewardMint:         req.RewardMint,
		RewardVault:        vault.PublicKey,
		RewardTokenProgram: info.Value.Owner,
		RewardIndex:        req.Index,
	})
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	signers := []*wallet.Wallet{vault}
	if !req.RewardAuthority.PublicKey.Equals(req.Funder.PublicKey) {
		signers = append(signers, req.RewardAuthority)
	}
	status, err := l.submitter.SendAndConfirm(ctx, transaction.Request{
		Operation:    ixInitializeReward,
		Mint:         req.RewardMint,
		Payer:        req.Funder,
		Signers:      signers,
		Instructions: []solana.Instruction{ix},
	})
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	return vault.PublicKey, status, nil
}
