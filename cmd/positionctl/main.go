// cmd/positionctl/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/whirlpool-positions/internal/app"
	"github.com/rovshanmuradov/whirlpool-positions/internal/config"
	"github.com/rovshanmuradov/whirlpool-positions/internal/utils/logger"
	"github.com/rovshanmuradov/whirlpool-positions/internal/utils/metrics"
)

const usage = `usage: positionctl [-config file] [-wallets file] <command> [flags]

commands:
  simulate     run the full lifecycle on the in-memory ledger
  open         open a position token
  close        burn a position token and close its accounts
  transfer     move a position token to another owner
  init-reward  bind a reward slot of a whirlpool
  history      list recorded transactions of a mint
`

func main() {
	configPath := flag.String("config", "", "config file (json or yaml)")
	walletsPath := flag.String("wallets", "configs/wallets.csv", "wallets csv")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxAge:      cfg.Log.MaxAge,
		MaxBackups:  cfg.Log.MaxBackups,
		Compress:    cfg.Log.Compress,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	name, args := flag.Arg(0), flag.Args()[1:]

	if name == "simulate" {
		done := log.TrackPerformance("simulate")
		report, err := app.NewSimulation(cfg, metrics.NewCollector(), log.Logger).Run(ctx)
		done()
		if err != nil {
			log.Fatal("Simulation failed", zap.Error(err))
		}
		printJSON(report)
		return
	}

	runner := app.NewRunner(cfg, prometheus.DefaultRegisterer, log.Logger)
	if err := runner.Initialize(*walletsPath); err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}

	if name == "history" {
		fs := flag.NewFlagSet(name, flag.ExitOnError)
		mint := fs.String("mint", "", "position or reward mint")
		limit := fs.Int("limit", 20, "maximum entries")
		_ = fs.Parse(args)
		txs, err := runner.History(ctx, *mint, *limit)
		runner.Shutdown()
		if err != nil {
			log.Fatal("Failed to list transactions", zap.Error(err))
		}
		printJSON(txs)
		return
	}

	cmd, err := parseCommand(name, args)
	if err != nil {
		runner.Shutdown()
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		log.LogError("Command failed", err, zap.String("operation", cmd.Name()))
		os.Exit(1)
	}
	printJSON(res)
}

func parseCommand(name string, args []string) (app.Command, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	walletName := fs.String("wallet", "", "wallet name from the wallets csv")

	switch name {
	case "open":
		c := app.OpenCommand{}
		fs.StringVar(&c.Whirlpool, "whirlpool", "", "whirlpool address")
		fs.StringVar(&c.Owner, "owner", "", "position owner (defaults to the wallet)")
		lower := fs.Int("tick-lower", 0, "lower tick index")
		upper := fs.Int("tick-upper", 0, "upper tick index")
		fs.BoolVar(&c.WithMetadata, "metadata", false, "attach token metadata")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		c.Wallet, c.TickLower, c.TickUpper = *walletName, int32(*lower), int32(*upper)
		return c, nil
	case "close":
		c := app.CloseCommand{}
		fs.StringVar(&c.Mint, "mint", "", "position mint")
		fs.StringVar(&c.Receiver, "receiver", "", "rent receiver (defaults to the wallet)")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		c.Wallet = *walletName
		return c, nil
	case "transfer":
		c := app.TransferCommand{}
		fs.StringVar(&c.Mint, "mint", "", "position mint")
		fs.StringVar(&c.Recipient, "to", "", "recipient")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		c.Wallet = *walletName
		return c, nil
	case "init-reward":
		c := app.InitRewardCommand{}
		fs.StringVar(&c.Authority, "authority", "", "reward authority wallet name (defaults to the wallet)")
		fs.StringVar(&c.Whirlpool, "whirlpool", "", "whirlpool address")
		fs.StringVar(&c.Config, "whirlpools-config", "", "whirlpools config address")
		fs.StringVar(&c.RewardMint, "reward-mint", "", "reward token mint")
		fs.IntVar(&c.Index, "index", 0, "reward slot index")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		c.Wallet = *walletName
		return c, nil
	}
	return nil, fmt.Errorf("unknown command %q", name)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
