package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"shareVault/internal/model"
)

// zeroAddress is the mint/burn sentinel; it never holds a checkpoint.
var zeroAddress common.Address

// ClaimLedger is the fungible claim-token ledger. Every balance mutation
// funnels through move, which settles reward checkpoints for both sides
// before any delta applies.
type ClaimLedger struct {
	hub      common.Address
	acc      *RewardAccumulator
	guard    *reentryGuard
	balances map[common.Address]*big.Int
	supply   *big.Int
	emit     func(string, any)
}

func newClaimLedger(hub common.Address, guard *reentryGuard, emit func(string, any)) *ClaimLedger {
	return &ClaimLedger{
		hub:      hub,
		guard:    guard,
		balances: make(map[common.Address]*big.Int),
		supply:   big.NewInt(0),
		emit:     emit,
	}
}

// Mint creates claim tokens for a holder. Hub only.
func (l *ClaimLedger) Mint(caller, to common.Address, amount *big.Int) error {
	if caller != l.hub {
		return fmt.Errorf("mint by %s: %w", caller.Hex(), ErrNotHubCaller)
	}
	if to == zeroAddress || amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAddressOrAmount
	}
	if err := l.move(zeroAddress, to, amount); err != nil {
		return err
	}
	l.emit(model.EventMintedByHub, model.MintEventData{To: to.Hex(), Amount: amount.String()})
	return nil
}

// Burn destroys claim tokens held by a holder. Hub only.
func (l *ClaimLedger) Burn(caller, from common.Address, amount *big.Int) error {
	if caller != l.hub {
		return fmt.Errorf("burn by %s: %w", caller.Hex(), ErrNotHubCaller)
	}
	if from == zeroAddress || amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAddressOrAmount
	}
	if err := l.move(from, zeroAddress, amount); err != nil {
		return err
	}
	l.emit(model.EventBurnedByHub, model.BurnEventData{From: from.Hex(), Amount: amount.String()})
	return nil
}

// Transfer moves claim tokens between holders. It refuses to run while
// an asset-moving operation holds the guard, so a callback during a
// payout cannot shift balances out from under the pending commit.
func (l *ClaimLedger) Transfer(from, to common.Address, amount *big.Int) error {
	if from == zeroAddress || to == zeroAddress || amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAddressOrAmount
	}
	if l.guard.held() {
		return ErrReentrancy
	}
	return l.move(from, to, amount)
}

// move applies a balance delta. Checkpoints for the real accounts on both
// sides are settled first, so reward accrued on the old balances is frozen
// before they change.
func (l *ClaimLedger) move(from, to common.Address, amount *big.Int) error {
	if from != zeroAddress {
		bal := l.balances[from]
		if bal == nil || bal.Cmp(amount) < 0 {
			return fmt.Errorf("%s holds %s, needs %s: %w", from.Hex(), l.BalanceOf(from), amount, ErrInsufficientBalance)
		}
	}

	if from != zeroAddress {
		l.acc.settle(from)
	}
	if to != zeroAddress {
		l.acc.settle(to)
	}

	if from == zeroAddress {
		l.supply.Add(l.supply, amount)
	} else {
		l.balances[from].Sub(l.balances[from], amount)
	}
	if to == zeroAddress {
		l.supply.Sub(l.supply, amount)
	} else {
		bal := l.balances[to]
		if bal == nil {
			bal = big.NewInt(0)
			l.balances[to] = bal
		}
		bal.Add(bal, amount)
	}
	return nil
}

// BalanceOf returns a copy of the holder's claim balance.
func (l *ClaimLedger) BalanceOf(holder common.Address) *big.Int {
	if bal, ok := l.balances[holder]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// TotalSupply returns a copy of the claim-token supply.
func (l *ClaimLedger) TotalSupply() *big.Int {
	return new(big.Int).Set(l.supply)
}
