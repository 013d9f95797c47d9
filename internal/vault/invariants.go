package vault

import (
	"fmt"
	"math/big"

	"shareVault/internal/model"
)

// CheckSnapshot validates the conservation properties over an exported
// snapshot: balances sum to supply, claimed never exceeds distributed,
// and the claimable total stays within the distributed-but-unclaimed
// remainder (per-holder truncation only loses dust, never creates reward).
func CheckSnapshot(snap model.Snapshot) error {
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

	if claimed.Cmp(distributed) > 0 {
		return fmt.Errorf("claimed %s exceeds distributed %s", claimed, distributed)
	}

	balanceSum := big.NewInt(0)
	earnedSum := big.NewInt(0)
	for _, h := range snap.Holders {
		bal, err := parseBigInt(h.Balance)
		if err != nil {
			return fmt.Errorf("holder %s balance: %w", h.Address, err)
		}
		paid, err := parseBigInt(h.RewardPerUnit)
		if err != nil {
			return fmt.Errorf("holder %s checkpoint: %w", h.Address, err)
		}
		settled, err := parseBigInt(h.SettledRewards)
		if err != nil {
			return fmt.Errorf("holder %s rewards: %w", h.Address, err)
		}
		if bal.Sign() < 0 || settled.Sign() < 0 {
			return fmt.Errorf("holder %s has negative state", h.Address)
		}
		if paid.Cmp(stored) > 0 {
			return fmt.Errorf("holder %s checkpoint %s ahead of accumulator %s", h.Address, paid, stored)
		}
		balanceSum.Add(balanceSum, bal)

		pending := new(big.Int).Sub(stored, paid)
		pending.Mul(pending, bal)
		pending.Div(pending, Precision)
		earnedSum.Add(earnedSum, pending)
		earnedSum.Add(earnedSum, settled)
	}

	if balanceSum.Cmp(supply) != 0 {
		return fmt.Errorf("balance sum %s != total supply %s", balanceSum, supply)
	}

	unclaimed := new(big.Int).Sub(distributed, claimed)
	if earnedSum.Cmp(unclaimed) > 0 {
		return fmt.Errorf("claimable %s exceeds unclaimed remainder %s", earnedSum, unclaimed)
	}
	return nil
}
