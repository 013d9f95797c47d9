package model

import (
	"encoding/json"
)

// EventRecord is the normalized representation of an emitted event for
// storage. Data holds the type-specific payload.
type EventRecord struct {
	Seq       uint64          `json:"seq"`
	Type      string          `json:"type"`
	Timestamp uint64          `json:"timestamp"`
	RunID     string          `json:"run_id,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// MarshalJSON ensures EventRecord is encoded with stable field names.
func (ev EventRecord) MarshalJSON() ([]byte, error) {
	type Alias EventRecord
	return json.Marshal(Alias(ev))
}

// UnmarshalJSON decodes an EventRecord from JSON.
func (ev *EventRecord) UnmarshalJSON(data []byte) error {
	type Alias EventRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*ev = EventRecord(a)
	return nil
}
