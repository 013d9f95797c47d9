package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"shareVault/internal/asset"
	"shareVault/internal/model"
	"shareVault/internal/storage"
	"shareVault/internal/vault"
)

// Store persists vault snapshots and emitted events.
type Store interface {
	SaveSnapshot(ctx context.Context, name string, snap model.Snapshot) error
	LoadSnapshot(ctx context.Context, name string) (model.Snapshot, bool, error)
	AppendEvents(ctx context.Context, events []model.EventRecord) error
}

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	OpsPath           string
	SnapshotName      string
	BatchSize         int
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner applies an operations JSONL file to the vault engine, one op at
// a time. It is the serializing host: no two operations interleave.
type Runner struct {
	cfg        RunConfig
	vault      *vault.Vault
	token      *asset.Ledger
	collector  *storage.Collector
	errSink    *storage.JsonlSink
	store      Store
	checkpoint *CheckpointStore
	logger     *zap.Logger
}

func NewRunner(cfg RunConfig, v *vault.Vault, token *asset.Ledger, collector *storage.Collector, errSink *storage.JsonlSink, store Store, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		vault:      v,
		token:      token,
		collector:  collector,
		errSink:    errSink,
		store:      store,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		logger:     logger,
	}
}

// Run executes the replay loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.vault == nil || r.token == nil {
		return fmt.Errorf("vault and token are required")
	}
	if r.store == nil {
		return fmt.Errorf("store is required")
	}
	if r.cfg.BatchSize <= 0 {
		r.cfg.BatchSize = 100
	}
	if r.cfg.SnapshotName == "" {
		r.cfg.SnapshotName = "vault"
	}

	lastSeq, err := r.resume(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(r.cfg.OpsPath)
	if err != nil {
		return fmt.Errorf("open ops: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, applied, skipped, rejected, sinceFlush int
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var op model.OpRecord
		if err := json.Unmarshal(line, &op); err != nil {
			rejected++
			r.logger.Warn("decode op", zap.Error(err))
			continue
		}
		if op.Seq <= lastSeq {
			skipped++
			continue
		}

		if err := r.apply(ctx, op); err != nil {
			rejected++
			r.logger.Warn("op rejected", zap.Uint64("seq", op.Seq), zap.String("op", op.Op), zap.Error(err))
			if r.errSink != nil {
				if werr := r.errSink.WriteOpError(model.OpError{
					Seq:    op.Seq,
					Op:     op.Op,
					Caller: op.Caller,
					Error:  err.Error(),
				}); werr != nil {
					r.logger.Warn("write op error", zap.Error(werr))
				}
			}
		} else {
			applied++
		}
		lastSeq = op.Seq
		sinceFlush++

		if sinceFlush >= r.cfg.BatchSize {
			if err := r.flush(ctx, lastSeq); err != nil {
				return err
			}
			sinceFlush = 0
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan ops: %w", err)
	}

	if err := r.flush(ctx, lastSeq); err != nil {
		return err
	}

	r.logger.Info("replay complete",
		zap.Int("total", total),
		zap.Int("applied", applied),
		zap.Int("skipped", skipped),
		zap.Int("rejected", rejected),
		zap.Uint64("last_seq", lastSeq),
	)
	return nil
}

func (r *Runner) resume(ctx context.Context) (uint64, error) {
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	snap, found, err := r.store.LoadSnapshot(ctx, r.cfg.SnapshotName)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("checkpoint at seq %d but snapshot %q missing", cp.LastAppliedSeq, r.cfg.SnapshotName)
	}
	if err := r.vault.Restore(snap); err != nil {
		return 0, fmt.Errorf("restore vault: %w", err)
	}
	if err := r.token.Restore(cp.Asset); err != nil {
		return 0, fmt.Errorf("restore asset: %w", err)
	}

	r.logger.Info("resume from checkpoint", zap.Uint64("last_applied_seq", cp.LastAppliedSeq))
	return cp.LastAppliedSeq, nil
}

func (r *Runner) flush(ctx context.Context, lastSeq uint64) error {
	if r.collector != nil {
		events := r.collector.Drain()
		if len(events) > 0 {
			err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
				return r.store.AppendEvents(ctx, events)
			})
			if err != nil {
				return fmt.Errorf("store events: %w", err)
			}
		}
	}

	snap := r.vault.Snapshot(lastSeq)
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		return r.store.SaveSnapshot(ctx, r.cfg.SnapshotName, snap)
	})
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	return r.checkpoint.Save(Checkpoint{
		LastAppliedSeq: lastSeq,
		Asset:          r.token.State(),
	})
}

func (r *Runner) apply(ctx context.Context, op model.OpRecord) error {
	caller, err := parseAddress(op.Caller)
	if err != nil {
		return fmt.Errorf("caller: %w", err)
	}

	switch op.Op {
	case model.OpFund:
		amount, err := parsePositive(op.Amount)
		if err != nil {
			return err
		}
		r.token.Mint(caller, amount)
		return nil
	case model.OpApprove:
		spender, err := parseAddress(op.To)
		if err != nil {
			return fmt.Errorf("spender: %w", err)
		}
		amount, err := parsePositive(op.Amount)
		if err != nil {
			return err
		}
		r.token.Approve(caller, spender, amount)
		return nil
	case model.OpSubscribe:
		assetAddr, err := parseAddress(op.Asset)
		if err != nil {
			return fmt.Errorf("asset: %w", err)
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		_, err = r.vault.Subscribe(ctx, caller, assetAddr, amount)
		return err
	case model.OpRedeem:
		shares, err := parseAmount(op.Shares)
		if err != nil {
			return err
		}
		_, err = r.vault.Redeem(ctx, caller, shares)
		return err
	case model.OpTransfer:
		to, err := parseAddress(op.To)
		if err != nil {
			return fmt.Errorf("to: %w", err)
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return r.vault.Transfer(caller, to, amount)
	case model.OpClaim:
		_, err := r.vault.Claim(ctx, caller)
		return err
	case model.OpClaimFor:
		holder, err := parseAddress(op.Holder)
		if err != nil {
			return fmt.Errorf("holder: %w", err)
		}
		_, err = r.vault.ClaimFor(ctx, caller, holder)
		return err
	case model.OpInject:
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return r.vault.Inject(ctx, caller, amount)
	case model.OpSetPrice:
		price, err := parseAmount(op.Price)
		if err != nil {
			return err
		}
		_, err = r.vault.SetPrice(caller, price)
		return err
	case model.OpDepositAsset:
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return r.vault.DepositAsset(ctx, caller, amount)
	case model.OpWithdrawAsset:
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return r.vault.WithdrawAsset(ctx, caller, amount)
	default:
		return fmt.Errorf("unknown op: %s", op.Op)
	}
}

func parseAddress(input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func parsePositive(value string) (*big.Int, error) {
	parsed, err := parseAmount(value)
	if err != nil {
		return nil, err
	}
	if parsed.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive: %s", value)
	}
	return parsed, nil
}
