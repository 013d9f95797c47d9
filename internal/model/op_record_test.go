package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestOpRecordJSONRoundTrip(t *testing.T) {
	original := OpRecord{
		Seq:       12,
		Op:        OpSubscribe,
		Caller:    "0x1111111111111111111111111111111111111111",
		Asset:     "0x2222222222222222222222222222222222222222",
		Amount:    "1000000000000000000",
		Timestamp: 1700000000,
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded OpRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestEventRecordJSONRoundTrip(t *testing.T) {
	payload, err := json.Marshal(RewardClaimedEventData{
		User:   "0x1111111111111111111111111111111111111111",
		Amount: "500",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	original := EventRecord{
		Seq:       7,
		Type:      EventRewardClaimed,
		Timestamp: 1700000000,
		RunID:     "run-1",
		Data:      payload,
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded EventRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}
