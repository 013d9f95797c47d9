package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shareVault/internal/model"
)

// Store provides Postgres persistence for vault snapshots and events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveSnapshot upserts the aggregate snapshot and its holder positions.
func (s *Store) SaveSnapshot(ctx context.Context, name string, snap model.Snapshot) error {
	if name == "" {
		return fmt.Errorf("snapshot name required")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO vault_snapshots (
			name, total_supply, reward_per_unit_stored, total_rewards_distributed,
			total_rewards_claimed, current_price_id, reserve, reward_pool,
			last_seq, data, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
		ON CONFLICT (name) DO UPDATE SET
			total_supply = EXCLUDED.total_supply,
			reward_per_unit_stored = EXCLUDED.reward_per_unit_stored,
			total_rewards_distributed = EXCLUDED.total_rewards_distributed,
			total_rewards_claimed = EXCLUDED.total_rewards_claimed,
			current_price_id = EXCLUDED.current_price_id,
			reserve = EXCLUDED.reserve,
			reward_pool = EXCLUDED.reward_pool,
			last_seq = EXCLUDED.last_seq,
			data = EXCLUDED.data,
			updated_at = now()
	`,
		name,
		snap.TotalSupply,
		snap.RewardPerUnitStored,
		snap.TotalRewardsDistributed,
		snap.TotalRewardsClaimed,
		int64(snap.CurrentPriceID),
		snap.Reserve,
		snap.RewardPool,
		int64(snap.LastSeq),
		snap,
	)
	if err != nil {
		return err
	}

	if len(snap.Holders) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, holder := range snap.Holders {
		batch.Queue(`
			INSERT INTO vault_holders (
				snapshot_name, address, balance, reward_per_unit_paid, rewards, updated_at
			) VALUES ($1,$2,$3,$4,$5,now())
			ON CONFLICT (snapshot_name, address) DO UPDATE SET
				balance = EXCLUDED.balance,
				reward_per_unit_paid = EXCLUDED.reward_per_unit_paid,
				rewards = EXCLUDED.rewards,
				updated_at = now()
		`,
			name,
			holder.Address,
			holder.Balance,
			holder.RewardPerUnit,
			holder.SettledRewards,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snap.Holders {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot reads back the aggregate snapshot stored under name.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (model.Snapshot, bool, error) {
	if name == "" {
		return model.Snapshot{}, false, fmt.Errorf("snapshot name required")
	}
	var snap model.Snapshot
	row := s.pool.QueryRow(ctx, `SELECT data FROM vault_snapshots WHERE name=$1`, name)
	if err := row.Scan(&snap); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, err
	}
	return snap, true, nil
}

// AppendEvents inserts a batch of emitted event records.
func (s *Store) AppendEvents(ctx context.Context, events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO vault_events (run_id, seq, type, ts, data)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (run_id, seq) DO NOTHING
		`,
			ev.RunID,
			int64(ev.Seq),
			ev.Type,
			int64(ev.Timestamp),
			[]byte(ev.Data),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
