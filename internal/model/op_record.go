package model

import (
	"encoding/json"
)

// Operation kinds accepted by the replay pipeline.
const (
	OpFund          = "fund"
	OpApprove       = "approve"
	OpSubscribe     = "subscribe"
	OpRedeem        = "redeem"
	OpTransfer      = "transfer"
	OpClaim         = "claim"
	OpClaimFor      = "claim_for"
	OpInject        = "inject"
	OpSetPrice      = "set_price"
	OpDepositAsset  = "deposit_asset"
	OpWithdrawAsset = "withdraw_asset"
)

// OpRecord is one operation line in the replay input. Amount fields are
// decimal strings so arbitrary-precision values survive JSON.
type OpRecord struct {
	Seq       uint64 `json:"seq"`
	Op        string `json:"op"`
	Caller    string `json:"caller"`
	Holder    string `json:"holder,omitempty"`
	To        string `json:"to,omitempty"`
	Asset     string `json:"asset,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Shares    string `json:"shares,omitempty"`
	Price     string `json:"price,omitempty"`
	Timestamp uint64 `json:"timestamp,omitempty"`
}

// MarshalJSON ensures OpRecord is encoded with stable field names.
func (op OpRecord) MarshalJSON() ([]byte, error) {
	type Alias OpRecord
	return json.Marshal(Alias(op))
}

// UnmarshalJSON decodes an OpRecord from JSON.
func (op *OpRecord) UnmarshalJSON(data []byte) error {
	type Alias OpRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*op = OpRecord(a)
	return nil
}
