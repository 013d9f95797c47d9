package model

// Event types emitted by the vault engine.
const (
	EventRequestedSubscription = "RequestedSubscription"
	EventRequestedRedemption   = "RequestedRedemption"
	EventPriceUpdated          = "PriceUpdated"
	EventRewardInjected        = "RewardInjected"
	EventRewardDistributed     = "RewardDistributed"
	EventRewardClaimed         = "RewardClaimed"
	EventRewardUpdated         = "RewardUpdated"
	EventMintedByHub           = "MintedByHub"
	EventBurnedByHub           = "BurnedByHub"
)

// SubscriptionEventData is the RequestedSubscription payload.
type SubscriptionEventData struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
	Shares string `json:"shares"`
}

// RedemptionEventData is the RequestedRedemption payload.
type RedemptionEventData struct {
	User   string `json:"user"`
	Shares string `json:"shares"`
	Amount string `json:"amount"`
}

// PriceUpdatedEventData is the PriceUpdated payload.
type PriceUpdatedEventData struct {
	PriceID uint64 `json:"price_id"`
	Price   string `json:"price"`
}

// RewardInjectedEventData is the RewardInjected payload.
type RewardInjectedEventData struct {
	Amount    string `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
}

// RewardDistributedEventData is the RewardDistributed payload.
type RewardDistributedEventData struct {
	Amount  string `json:"amount"`
	NewRate string `json:"new_rate"`
}

// RewardClaimedEventData is the RewardClaimed payload.
type RewardClaimedEventData struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
}

// RewardUpdatedEventData is the RewardUpdated payload.
type RewardUpdatedEventData struct {
	User   string `json:"user"`
	Earned string `json:"earned"`
}

// MintEventData is the MintedByHub payload.
type MintEventData struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// BurnEventData is the BurnedByHub payload.
type BurnEventData struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}
