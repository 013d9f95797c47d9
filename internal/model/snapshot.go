package model

// HolderState is the per-holder slice of the persisted state surface.
// Big integers are decimal strings.
type HolderState struct {
	Address        string `json:"address"`
	Balance        string `json:"balance"`
	RewardPerUnit  string `json:"user_reward_per_unit_paid"`
	SettledRewards string `json:"rewards"`
}

// PriceEntry is one append-only price series entry.
type PriceEntry struct {
	PriceID uint64 `json:"price_id"`
	Price   string `json:"price"`
}

// Snapshot is the full externally readable state of the vault engine.
type Snapshot struct {
	TotalSupply             string        `json:"total_supply"`
	RewardPerUnitStored     string        `json:"reward_per_unit_stored"`
	TotalRewardsDistributed string        `json:"total_rewards_distributed"`
	TotalRewardsClaimed     string        `json:"total_rewards_claimed"`
	CurrentPriceID          uint64        `json:"current_price_id"`
	Prices                  []PriceEntry  `json:"prices"`
	Reserve                 string        `json:"reserve"`
	RewardPool              string        `json:"reward_pool"`
	Holders                 []HolderState `json:"holders"`
	LastSeq                 uint64        `json:"last_seq"`
}
