// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

type Config struct {
	ProgramID          string         `mapstructure:"program_id"`
	Token2022ProgramID string         `mapstructure:"token_2022_program_id"`
	RPCList            []string       `mapstructure:"rpc_list"`
	Retries            int            `mapstructure:"retries"`
	ComputeUnitLimit   uint32         `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice   uint64         `mapstructure:"compute_unit_price"`
	Metadata           MetadataConfig `mapstructure:"metadata"`
	Reward             RewardConfig   `mapstructure:"reward"`
	PostgresURL        string         `mapstructure:"postgres_url"`
	Log                LogConfig      `mapstructure:"log"`
	EventBuffer        int            `mapstructure:"event_buffer"`
	AuditFile          string         `mapstructure:"audit_file"`
}

type MetadataConfig struct {
	NamePrefix      string `mapstructure:"name_prefix"`
	Symbol          string `mapstructure:"symbol"`
	URIBase         string `mapstructure:"uri_base"`
	UpdateAuthority string `mapstructure:"update_authority"`
}

type RewardConfig struct {
	SupportedMints []string `mapstructure:"supported_mints"`
	TokenBadges    []string `mapstructure:"token_badges"`
	// AcceptSafeExtensions admits any mint whose extensions need no badge.
	AcceptSafeExtensions bool `mapstructure:"accept_safe_extensions"`
}

type LogConfig struct {
	File        string `mapstructure:"file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
	Development bool   `mapstructure:"development"`
}

const (
	DefaultProgramID          = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	DefaultToken2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	DefaultNamePrefix         = "OWP"
	DefaultSymbol             = "OWP"
	DefaultURIBase            = "https://position-nft.orca.so/meta"
	DefaultRetries            = 3
	DefaultComputeUnitLimit   = 400_000
	DefaultEventBuffer        = 256
	DefaultLogFile            = "whirlpool-positions.log"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"program_id":                    DefaultProgramID,
		"token_2022_program_id":         DefaultToken2022ProgramID,
		"retries":                       DefaultRetries,
		"compute_unit_limit":            DefaultComputeUnitLimit,
		"compute_unit_price":            0,
		"metadata.name_prefix":          DefaultNamePrefix,
		"metadata.symbol":               DefaultSymbol,
		"metadata.uri_base":             DefaultURIBase,
		"event_buffer":                  DefaultEventBuffer,
		"reward.accept_safe_extensions": false,
		"audit_file":                    "",
		"log.file":                      DefaultLogFile,
		"log.max_size":                  100,
		"log.max_backups":               3,
		"log.max_age":                   7,
		"log.compress":                  true,
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	loadEnvironmentVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if envRPCList := v.GetString("rpc_list"); envRPCList != "" {
		cfg.RPCList = splitList(envRPCList)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	keys := map[string]string{
		"program_id":            cfg.ProgramID,
		"token_2022_program_id": cfg.Token2022ProgramID,
	}
	if cfg.Metadata.UpdateAuthority != "" {
		keys["metadata.update_authority"] = cfg.Metadata.UpdateAuthority
	}
	for name, value := range keys {
		if _, err := solana.PublicKeyFromBase58(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	for _, list := range [][]string{cfg.Reward.SupportedMints, cfg.Reward.TokenBadges} {
		for _, mint := range list {
			if _, err := solana.PublicKeyFromBase58(mint); err != nil {
				return fmt.Errorf("invalid reward mint %q: %w", mint, err)
			}
		}
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if err := validateURLWithCache(cfg.Metadata.URIBase, "https"); err != nil {
		return errors.New("metadata uri_base must use HTTPS")
	}
	if cfg.Metadata.NamePrefix == "" || cfg.Metadata.Symbol == "" {
		return errors.New("metadata name_prefix and symbol are required")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.EventBuffer <= 0 {
		return errors.New("invalid event_buffer")
	}
	if cfg.ComputeUnitLimit == 0 || cfg.ComputeUnitLimit > 1_400_000 {
		return errors.New("invalid compute_unit_limit")
	}
	if cfg.Log.MaxSize < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAge < 0 {
		return errors.New("invalid log rotation settings")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// loadEnvironmentVariables lets WHIRLPOOL_* variables override file values,
// e.g. WHIRLPOOL_METADATA_URI_BASE for metadata.uri_base.
func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix("WHIRLPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
