package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"shareVault/internal/asset"
	"shareVault/internal/auth"
	"shareVault/internal/model"
)

// EventSink receives emitted event records. Emission is fire-and-forget;
// a sink failure is logged and never fails the operation.
type EventSink interface {
	Emit(ev model.EventRecord) error
}

// Config wires a Vault with its collaborators.
type Config struct {
	Asset        asset.Token
	AssetAddress common.Address
	// Custody is the exchange coordinator's asset custody account and the
	// identity allowed to mint/burn on the claim ledger.
	Custody common.Address
	// RewardPool is the reward accumulator's custody account.
	RewardPool common.Address
	Policy     auth.Policy
	Events     EventSink
	Logger     *zap.Logger
	Now        func() time.Time
	// InitialPrice seeds price id 0. Defaults to 1:1 (PRECISION).
	InitialPrice *big.Int
	// RunID is stamped into emitted event records.
	RunID string
}

// Vault is the external operation surface over the claim ledger, reward
// accumulator, and exchange coordinator.
type Vault struct {
	ledger *ClaimLedger
	acc    *RewardAccumulator
	coord  *Coordinator
	sink   EventSink
	logger *zap.Logger
	now    func() time.Time
	runID  string
	seq    uint64
}

func New(cfg Config) (*Vault, error) {
	if cfg.Asset == nil {
		return nil, fmt.Errorf("asset is required")
	}
	if cfg.Custody == zeroAddress || cfg.RewardPool == zeroAddress {
		return nil, fmt.Errorf("custody and reward pool addresses are required")
	}
	if cfg.Policy == nil {
		return nil, fmt.Errorf("policy is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.InitialPrice == nil {
		cfg.InitialPrice = Precision
	}
	if cfg.InitialPrice.Sign() <= 0 {
		return nil, fmt.Errorf("initial price must be positive")
	}

	v := &Vault{
		sink:   cfg.Events,
		logger: cfg.Logger,
		now:    cfg.Now,
		runID:  cfg.RunID,
	}
	guard := &reentryGuard{}
	v.acc = newRewardAccumulator(cfg.Asset, cfg.RewardPool, cfg.Policy, guard, v.emit, cfg.Now)
	v.ledger = newClaimLedger(cfg.Custody, guard, v.emit)
	v.ledger.acc = v.acc
	v.acc.ledger = v.ledger
	v.coord = newCoordinator(cfg.Asset, cfg.AssetAddress, cfg.Custody, cfg.Policy, guard, cfg.InitialPrice, v.emit)
	v.coord.ledger = v.ledger
	v.coord.acc = v.acc
	return v, nil
}

func (v *Vault) emit(evType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		v.logger.Warn("marshal event", zap.String("type", evType), zap.Error(err))
		return
	}
	v.seq++
	rec := model.EventRecord{
		Seq:       v.seq,
		Type:      evType,
		Timestamp: uint64(v.now().Unix()),
		RunID:     v.runID,
		Data:      payload,
	}
	if v.sink == nil {
		return
	}
	if err := v.sink.Emit(rec); err != nil {
		v.logger.Warn("emit event", zap.String("type", evType), zap.Error(err))
	}
}

// Subscribe converts an asset deposit into minted shares.
func (v *Vault) Subscribe(ctx context.Context, caller, assetAddr common.Address, amount *big.Int) (*big.Int, error) {
	return v.coord.Subscribe(ctx, caller, assetAddr, amount)
}

// Redeem converts shares back into the underlying asset.
func (v *Vault) Redeem(ctx context.Context, caller common.Address, shares *big.Int) (*big.Int, error) {
	return v.coord.Redeem(ctx, caller, shares)
}

// Transfer moves claim tokens between holders.
func (v *Vault) Transfer(from, to common.Address, amount *big.Int) error {
	return v.ledger.Transfer(from, to, amount)
}

// Claim pays out the caller's own reward.
func (v *Vault) Claim(ctx context.Context, holder common.Address) (*big.Int, error) {
	return v.acc.Claim(ctx, holder, holder)
}

// ClaimFor pays out a holder's reward on its behalf; caller needs the
// operator capability.
func (v *Vault) ClaimFor(ctx context.Context, caller, holder common.Address) (*big.Int, error) {
	return v.acc.Claim(ctx, caller, holder)
}

// Inject distributes new reward across current holders.
func (v *Vault) Inject(ctx context.Context, caller common.Address, amount *big.Int) error {
	return v.acc.Inject(ctx, caller, amount)
}

// SetPrice appends a new price entry.
func (v *Vault) SetPrice(caller common.Address, price *big.Int) (uint64, error) {
	return v.coord.SetPrice(caller, price)
}

// DepositAsset tops up coordinator custody.
func (v *Vault) DepositAsset(ctx context.Context, caller common.Address, amount *big.Int) error {
	return v.coord.DepositAsset(ctx, caller, amount)
}

// WithdrawAsset drains coordinator custody.
func (v *Vault) WithdrawAsset(ctx context.Context, caller common.Address, amount *big.Int) error {
	return v.coord.WithdrawAsset(ctx, caller, amount)
}

// Earned is the pure claimable-reward query.
func (v *Vault) Earned(holder common.Address) *big.Int { return v.acc.Earned(holder) }

// BalanceOf returns a holder's claim balance.
func (v *Vault) BalanceOf(holder common.Address) *big.Int { return v.ledger.BalanceOf(holder) }

// TotalSupply returns the claim-token supply.
func (v *Vault) TotalSupply() *big.Int { return v.ledger.TotalSupply() }

// UnclaimedTotal returns distributed minus claimed reward.
func (v *Vault) UnclaimedTotal() *big.Int { return v.acc.UnclaimedTotal() }

// CurrentPrice returns the latest price entry.
func (v *Vault) CurrentPrice() (uint64, *big.Int) { return v.coord.CurrentPrice() }

// Reserve returns the coordinator custody balance.
func (v *Vault) Reserve() *big.Int { return v.coord.Reserve() }

// Snapshot exports the persisted state surface. lastSeq records the last
// applied operation sequence for resume.
func (v *Vault) Snapshot(lastSeq uint64) model.Snapshot {
	holders := make(map[common.Address]bool)
	for addr := range v.ledger.balances {
		holders[addr] = true
	}
	for addr := range v.acc.paid {
		holders[addr] = true
	}
	for addr := range v.acc.rewards {
		holders[addr] = true
	}
	sorted := make([]common.Address, 0, len(holders))
	for addr := range holders {
		sorted = append(sorted, addr)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Hex() < sorted[j].Hex()
	})

	states := make([]model.HolderState, 0, len(sorted))
	for _, addr := range sorted {
		paid := big.NewInt(0)
		if p := v.acc.paid[addr]; p != nil {
			paid = p
		}
		settled := big.NewInt(0)
		if r := v.acc.rewards[addr]; r != nil {
			settled = r
		}
		states = append(states, model.HolderState{
			Address:        addr.Hex(),
			Balance:        v.ledger.BalanceOf(addr).String(),
			RewardPerUnit:  paid.String(),
			SettledRewards: settled.String(),
		})
	}

	prices := make([]model.PriceEntry, 0, len(v.coord.prices))
	for _, p := range v.coord.prices {
		prices = append(prices, model.PriceEntry{PriceID: p.id, Price: p.price.String()})
	}
	priceID, _ := v.coord.CurrentPrice()

	return model.Snapshot{
		TotalSupply:             v.ledger.TotalSupply().String(),
		RewardPerUnitStored:     v.acc.rewardPerUnitStored.String(),
		TotalRewardsDistributed: v.acc.TotalDistributed().String(),
		TotalRewardsClaimed:     v.acc.TotalClaimed().String(),
		CurrentPriceID:          priceID,
		Prices:                  prices,
		Reserve:                 v.Reserve().String(),
		RewardPool:              v.acc.token.BalanceOf(v.acc.pool).String(),
		Holders:                 states,
		LastSeq:                 lastSeq,
	}
}

// Restore loads a previously exported snapshot into the engine. The
// underlying asset ledger is external state and is restored by the host.
func (v *Vault) Restore(snap model.Snapshot) error {
	supply, err := parseBigInt(snap.TotalSupply)
	if err != nil {
		return fmt.Errorf("total supply: %w", err)
	}
	stored, err := parseBigInt(snap.RewardPerUnitStored)
	if err != nil {
		return fmt.Errorf("reward per unit: %w", err)
	}
	distributed, err := parseBigInt(snap.TotalRewardsDistributed)
	if err != nil {
		return fmt.Errorf("distributed: %w", err)
	}
	claimed, err := parseBigInt(snap.TotalRewardsClaimed)
	if err != nil {
		return fmt.Errorf("claimed: %w", err)
	}

	balances := make(map[common.Address]*big.Int, len(snap.Holders))
	paid := make(map[common.Address]*big.Int, len(snap.Holders))
	rewards := make(map[common.Address]*big.Int, len(snap.Holders))
	for _, h := range snap.Holders {
		if !common.IsHexAddress(h.Address) {
			return fmt.Errorf("invalid holder address: %s", h.Address)
		}
		addr := common.HexToAddress(h.Address)
		bal, err := parseBigInt(h.Balance)
		if err != nil {
			return fmt.Errorf("holder %s balance: %w", h.Address, err)
		}
		perUnit, err := parseBigInt(h.RewardPerUnit)
		if err != nil {
			return fmt.Errorf("holder %s checkpoint: %w", h.Address, err)
		}
		settled, err := parseBigInt(h.SettledRewards)
		if err != nil {
			return fmt.Errorf("holder %s rewards: %w", h.Address, err)
		}
		if bal.Sign() > 0 {
			balances[addr] = bal
		}
		paid[addr] = perUnit
		rewards[addr] = settled
	}

	prices := make([]pricePoint, 0, len(snap.Prices))
	for _, p := range snap.Prices {
		price, err := parseBigInt(p.Price)
		if err != nil {
			return fmt.Errorf("price %d: %w", p.PriceID, err)
		}
		prices = append(prices, pricePoint{id: p.PriceID, price: price})
	}
	if len(prices) == 0 {
		return fmt.Errorf("snapshot has no price entries")
	}

	v.ledger.balances = balances
	v.ledger.supply = supply
	v.acc.rewardPerUnitStored = stored
	v.acc.paid = paid
	v.acc.rewards = rewards
	v.acc.totalDistributed = distributed
	v.acc.totalClaimed = claimed
	v.coord.prices = prices
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
