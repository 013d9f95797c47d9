package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "vault",
		Short:        "Share vault and reward distribution engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply an operations JSONL file to the vault engine",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("ops", "", "operations JSONL path")
	replayCmd.Flags().String("events-out", "./data/events.jsonl", "output events JSONL path")
	replayCmd.Flags().String("errors-out", "./data/op_errors.jsonl", "rejected operations JSONL path")
	replayCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().String("snapshot-name", "vault", "snapshot name in the store")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN (omit to use the embedded store)")
	replayCmd.Flags().String("badger-dir", "./data/vaultdb", "embedded store directory")
	replayCmd.Flags().Int("batch-size", 100, "operations per store flush")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts for store writes")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("asset", "", "underlying asset address")
	replayCmd.Flags().String("custody", "", "exchange coordinator custody address")
	replayCmd.Flags().String("reward-pool", "", "reward accumulator custody address")
	replayCmd.Flags().String("initial-price", "", "initial price (scaled by 1e18, default 1:1)")
	replayCmd.Flags().StringSlice("injector", nil, "addresses with the injector capability")
	replayCmd.Flags().StringSlice("pricer", nil, "addresses with the pricer capability")
	replayCmd.Flags().StringSlice("treasurer", nil, "addresses with the treasurer capability")
	replayCmd.Flags().StringSlice("operator", nil, "addresses with the operator capability")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check conservation invariants over a stored snapshot",
		RunE:  runVerify,
	}

	verifyCmd.Flags().String("snapshot-name", "vault", "snapshot name in the store")
	verifyCmd.Flags().String("pg-dsn", "", "Postgres DSN (omit to use the embedded store)")
	verifyCmd.Flags().String("badger-dir", "./data/vaultdb", "embedded store directory")
	verifyCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(verifyCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
