// internal/app/wiring.go
package app

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/config"
	"github.com/rovshanmuradov/whirlpool-positions/internal/position"
	"github.com/rovshanmuradov/whirlpool-positions/internal/reward"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage/memory"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage/postgres"
)

func programID(cfg *config.Config) (solana.PublicKey, error) {
	program, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("program_id: %w", err)
	}
	return program, nil
}

func metadataConfig(cfg *config.Config) (position.MetadataConfig, error) {
	md := position.MetadataConfig{
		NamePrefix: cfg.Metadata.NamePrefix,
		Symbol:     cfg.Metadata.Symbol,
		URIBase:    cfg.Metadata.URIBase,
	}
	if cfg.Metadata.UpdateAuthority != "" {
		key, err := solana.PublicKeyFromBase58(cfg.Metadata.UpdateAuthority)
		if err != nil {
			return md, fmt.Errorf("metadata.update_authority: %w", err)
		}
		md.UpdateAuthority = authority.Controlled(key)
	}
	return md, nil
}

// allowList accepts the configured mints, mints with a configured token
// badge, and extra.
func allowList(cfg *config.Config, extra ...solana.PublicKey) (reward.AllowList, error) {
	mints, err := keys(cfg.Reward.SupportedMints)
	if err != nil {
		return nil, fmt.Errorf("reward.supported_mints: %w", err)
	}
	badges, err := keys(cfg.Reward.TokenBadges)
	if err != nil {
		return nil, fmt.Errorf("reward.token_badges: %w", err)
	}
	lists := []reward.AllowList{
		reward.NewStaticAllowList(append(mints, extra...)...),
		reward.NewBadgeAllowList(badges...),
	}
	if cfg.Reward.AcceptSafeExtensions {
		lists = append(lists, reward.ExtensionAllowList{})
	}
	return reward.AnyOf(lists...), nil
}

func keys(values []string) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(values))
	for _, v := range values {
		key, err := solana.PublicKeyFromBase58(v)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, nil
}

// openStorage uses Postgres when a DSN is configured and memory otherwise.
func openStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.PostgresURL == "" {
		logger.Debug("No postgres_url configured, using in-memory storage")
		return memory.NewStorage(logger), nil
	}
	store, err := postgres.NewStorage(cfg.PostgresURL, postgres.DefaultOptions(), logger)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}
