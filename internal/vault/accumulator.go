package vault

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"shareVault/internal/asset"
	"shareVault/internal/auth"
	"shareVault/internal/model"
)

// Precision is the fixed-point scale for the reward-per-unit accumulator
// and the price series.
var Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// RewardAccumulator tracks cumulative reward per claim-token unit and
// per-holder checkpoints. It exclusively owns the accumulator state; the
// claim ledger reaches it only through settle.
type RewardAccumulator struct {
	token  asset.Token
	pool   common.Address
	policy auth.Policy
	ledger *ClaimLedger
	guard  *reentryGuard
	emit   func(string, any)
	now    func() time.Time

	rewardPerUnitStored *big.Int
	paid                map[common.Address]*big.Int
	rewards             map[common.Address]*big.Int
	totalDistributed    *big.Int
	totalClaimed        *big.Int
}

func newRewardAccumulator(token asset.Token, pool common.Address, policy auth.Policy, guard *reentryGuard, emit func(string, any), now func() time.Time) *RewardAccumulator {
	return &RewardAccumulator{
		token:               token,
		pool:                pool,
		policy:              policy,
		guard:               guard,
		emit:                emit,
		now:                 now,
		rewardPerUnitStored: big.NewInt(0),
		paid:                make(map[common.Address]*big.Int),
		rewards:             make(map[common.Address]*big.Int),
		totalDistributed:    big.NewInt(0),
		totalClaimed:        big.NewInt(0),
	}
}

// Inject pulls amount of the reward asset from caller and raises the
// accumulator by amount/supply. The division truncates; the sub-unit
// remainder of each injection is forfeited.
func (a *RewardAccumulator) Inject(ctx context.Context, caller common.Address, amount *big.Int) error {
	if !a.policy.Allow(caller, auth.CapInjector) {
		return fmt.Errorf("inject %s: %w", caller.Hex(), ErrUnauthorized)
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	supply := a.ledger.TotalSupply()
	if supply.Sign() == 0 {
		return ErrNoSupply
	}
	if err := a.guard.enter(); err != nil {
		return err
	}
	defer a.guard.leave()

	if err := a.token.TransferFrom(ctx, a.pool, caller, a.pool, amount); err != nil {
		return fmt.Errorf("pull reward: %w", err)
	}

	delta := new(big.Int).Mul(amount, Precision)
	delta.Div(delta, supply)
	a.rewardPerUnitStored.Add(a.rewardPerUnitStored, delta)
	a.totalDistributed.Add(a.totalDistributed, amount)

	a.emit(model.EventRewardInjected, model.RewardInjectedEventData{
		Amount:    amount.String(),
		Timestamp: uint64(a.now().Unix()),
	})
	a.emit(model.EventRewardDistributed, model.RewardDistributedEventData{
		Amount:  amount.String(),
		NewRate: a.rewardPerUnitStored.String(),
	})
	return nil
}

// settle folds a holder's accrued reward into its settled balance and
// advances the checkpoint. Invoked by the claim ledger before every
// balance mutation, never exported.
func (a *RewardAccumulator) settle(holder common.Address) {
	pending := a.pending(holder)
	settled := a.rewards[holder]
	if settled == nil {
		settled = big.NewInt(0)
		a.rewards[holder] = settled
	}
	settled.Add(settled, pending)
	a.paid[holder] = new(big.Int).Set(a.rewardPerUnitStored)

	a.emit(model.EventRewardUpdated, model.RewardUpdatedEventData{
		User:   holder.Hex(),
		Earned: settled.String(),
	})
}

// Earned returns the holder's total claimable reward without mutating state.
func (a *RewardAccumulator) Earned(holder common.Address) *big.Int {
	total := a.pending(holder)
	if settled := a.rewards[holder]; settled != nil {
		total.Add(total, settled)
	}
	return total
}

// Claim pays out the holder's full claimable reward. A holder may
// self-claim; any other caller needs the operator capability. State
// commits only after the outbound transfer succeeded.
func (a *RewardAccumulator) Claim(ctx context.Context, caller, holder common.Address) (*big.Int, error) {
	if caller != holder && !a.policy.Allow(caller, auth.CapOperator) {
		return nil, fmt.Errorf("claim for %s: %w", holder.Hex(), ErrUnauthorized)
	}
	if err := a.guard.enter(); err != nil {
		return nil, err
	}
	defer a.guard.leave()

	amount := a.Earned(holder)
	if amount.Sign() == 0 {
		return nil, ErrNoRewardToClaim
	}

	if err := a.token.Transfer(ctx, a.pool, holder, amount); err != nil {
		return nil, fmt.Errorf("pay reward: %w", err)
	}

	a.rewards[holder] = big.NewInt(0)
	a.paid[holder] = new(big.Int).Set(a.rewardPerUnitStored)
	a.totalClaimed.Add(a.totalClaimed, amount)

	a.emit(model.EventRewardUpdated, model.RewardUpdatedEventData{
		User:   holder.Hex(),
		Earned: "0",
	})
	a.emit(model.EventRewardClaimed, model.RewardClaimedEventData{
		User:   holder.Hex(),
		Amount: amount.String(),
	})
	return amount, nil
}

// UnclaimedTotal is the reward distributed but not yet claimed.
func (a *RewardAccumulator) UnclaimedTotal() *big.Int {
	return new(big.Int).Sub(a.totalDistributed, a.totalClaimed)
}

// TotalDistributed returns the monotonic injected-reward counter.
func (a *RewardAccumulator) TotalDistributed() *big.Int {
	return new(big.Int).Set(a.totalDistributed)
}

// TotalClaimed returns the monotonic claimed-reward counter.
func (a *RewardAccumulator) TotalClaimed() *big.Int {
	return new(big.Int).Set(a.totalClaimed)
}

func (a *RewardAccumulator) pending(holder common.Address) *big.Int {
	balance := a.ledger.BalanceOf(holder)
	if balance.Sign() == 0 {
		return big.NewInt(0)
	}
	diff := new(big.Int).Set(a.rewardPerUnitStored)
	if paid := a.paid[holder]; paid != nil {
		diff.Sub(diff, paid)
	}
	pending := diff.Mul(balance, diff)
	return pending.Div(pending, Precision)
}
