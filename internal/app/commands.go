// internal/app/commands.go
package app

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/whirlpool-positions/internal/reward"
)

var ErrInvalidCommand = errors.New("invalid command")

// Command is one on-chain lifecycle operation requested from the CLI.
type Command interface {
	Name() string
	Validate() error
}

// OpenCommand opens a position token in Whirlpool. Owner defaults to the
// funding wallet.
type OpenCommand struct {
	Wallet       string
	Whirlpool    string
	Owner        string
	TickLower    int32
	TickUpper    int32
	WithMetadata bool
}

func (c OpenCommand) Name() string { return "open" }

func (c OpenCommand) Validate() error {
	if _, err := parseKey("whirlpool", c.Whirlpool, true); err != nil {
		return err
	}
	if _, err := parseKey("owner", c.Owner, false); err != nil {
		return err
	}
	if c.TickLower >= c.TickUpper {
		return fmt.Errorf("%w: tick_lower %d must be below tick_upper %d", ErrInvalidCommand, c.TickLower, c.TickUpper)
	}
	return nil
}

// CloseCommand burns the position token and closes its accounts.
type CloseCommand struct {
	Wallet   string
	Mint     string
	Receiver string
}

func (c CloseCommand) Name() string { return "close" }

func (c CloseCommand) Validate() error {
	if _, err := parseKey("mint", c.Mint, true); err != nil {
		return err
	}
	_, err := parseKey("receiver", c.Receiver, false)
	return err
}

// TransferCommand moves the position token to Recipient.
type TransferCommand struct {
	Wallet    string
	Mint      string
	Recipient string
}

func (c TransferCommand) Name() string { return "transfer" }

func (c TransferCommand) Validate() error {
	if _, err := parseKey("mint", c.Mint, true); err != nil {
		return err
	}
	_, err := parseKey("recipient", c.Recipient, true)
	return err
}

// InitRewardCommand binds reward slot Index of Whirlpool to RewardMint.
// Authority defaults to the funding wallet.
type InitRewardCommand struct {
	Wallet     string
	Authority  string
	Whirlpool  string
	Config     string
	RewardMint string
	Index      int
}

func (c InitRewardCommand) Name() string { return "init-reward" }

func (c InitRewardCommand) Validate() error {
	for field, value := range map[string]string{
		"whirlpool":   c.Whirlpool,
		"config":      c.Config,
		"reward_mint": c.RewardMint,
	} {
		if _, err := parseKey(field, value, true); err != nil {
			return err
		}
	}
	if c.Index < 0 || c.Index >= reward.NumRewards {
		return fmt.Errorf("%w: index must be between 0 and %d, got: %d", ErrInvalidCommand, reward.NumRewards-1, c.Index)
	}
	return nil
}

// parseKey decodes a base58 address. An empty optional value is the zero key.
func parseKey(field, value string, required bool) (solana.PublicKey, error) {
	if value == "" {
		if required {
			return solana.PublicKey{}, fmt.Errorf("%w: %s cannot be empty", ErrInvalidCommand, field)
		}
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s: %v", ErrInvalidCommand, field, err)
	}
	return key, nil
}
