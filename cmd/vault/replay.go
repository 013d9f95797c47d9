package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shareVault/internal/asset"
	"shareVault/internal/auth"
	"shareVault/internal/config"
	"shareVault/internal/replay"
	"shareVault/internal/storage"
	"shareVault/internal/storage/badgerstore"
	"shareVault/internal/storage/postgres"
	"shareVault/internal/vault"
)

type snapshotStore interface {
	replay.Store
	Close()
}

func runReplay(cmd *cobra.Command, _ []string) error {
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

	if cfg.OpsPath == "" {
		return fmt.Errorf("ops path is required")
	}
	assetAddr, err := parseAddressFlag(cfg.AssetAddress, "asset")
	if err != nil {
		return err
	}
	custody, err := parseAddressFlag(cfg.Custody, "custody")
	if err != nil {
		return err
	}
	rewardPool, err := parseAddressFlag(cfg.RewardPool, "reward-pool")
	if err != nil {
		return err
	}

	var initialPrice *big.Int
	if cfg.InitialPrice != "" {
		price, ok := new(big.Int).SetString(cfg.InitialPrice, 10)
		if !ok || price.Sign() <= 0 {
			return fmt.Errorf("invalid initial price: %s", cfg.InitialPrice)
		}
		initialPrice = price
	}

	policy, err := buildPolicy(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := uuid.NewString()
	token := asset.NewLedger()
	collector := &storage.Collector{}
	eventSink := storage.MultiSink{storage.NewJsonlSink(cfg.EventsOut), collector}
	errSink := storage.NewJsonlSink(cfg.ErrorsOut)

	engine, err := vault.New(vault.Config{
		Asset:        token,
		AssetAddress: assetAddr,
		Custody:      custody,
		RewardPool:   rewardPool,
		Policy:       policy,
		Events:       eventSink,
		Logger:       logger,
		InitialPrice: initialPrice,
		RunID:        runID,
	})
	if err != nil {
		return err
	}

	runner := replay.NewRunner(replay.RunConfig{
		OpsPath:           cfg.OpsPath,
		SnapshotName:      cfg.SnapshotName,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, engine, token, collector, errSink, store, logger)

	logger.Info("replay start",
		zap.String("run_id", runID),
		zap.String("ops", cfg.OpsPath),
		zap.String("events_out", cfg.EventsOut),
		zap.String("snapshot", cfg.SnapshotName),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Int("batch_size", cfg.BatchSize),
	)

	return runner.Run(ctx)
}

func openStore(ctx context.Context, cfg config.Config) (snapshotStore, error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, nil
	}
	store, err := badgerstore.NewStore(cfg.BadgerDir)
	if err != nil {
		return nil, fmt.Errorf("open embedded store: %w", err)
	}
	return store, nil
}

func buildPolicy(cfg config.Config) (*auth.StaticPolicy, error) {
	policy := auth.NewStaticPolicy()
	grants := []struct {
		cap   auth.Capability
		addrs []string
	}{
		{auth.CapInjector, cfg.Injectors},
		{auth.CapPricer, cfg.Pricers},
		{auth.CapTreasurer, cfg.Treasurers},
		{auth.CapOperator, cfg.Operators},
	}
	for _, grant := range grants {
		for _, input := range grant.addrs {
			if !common.IsHexAddress(input) {
				return nil, fmt.Errorf("invalid %s address: %s", grant.cap, input)
			}
			policy.Grant(common.HexToAddress(input), grant.cap)
		}
	}
	return policy, nil
}

func parseAddressFlag(input, name string) (common.Address, error) {
	if input == "" {
		return common.Address{}, fmt.Errorf("%s address is required", name)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", name, input)
	}
	return common.HexToAddress(input), nil
}
