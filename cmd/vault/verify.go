package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shareVault/internal/config"
	"shareVault/internal/vault"
)

func runVerify(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, found, err := store.LoadSnapshot(ctx, cfg.SnapshotName)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !found {
		return fmt.Errorf("snapshot %q not found", cfg.SnapshotName)
	}

	if err := vault.CheckSnapshot(snap); err != nil {
		return fmt.Errorf("invariant violation: %w", err)
	}

	logger.Info("snapshot verified",
		zap.String("snapshot", cfg.SnapshotName),
		zap.String("total_supply", snap.TotalSupply),
		zap.String("distributed", snap.TotalRewardsDistributed),
		zap.String("claimed", snap.TotalRewardsClaimed),
		zap.Int("holders", len(snap.Holders)),
		zap.Uint64("last_seq", snap.LastSeq),
	)
	return nil
}
