package proto

import (
	"encoding/json"
	"testing"
)

func TestDecode_ProfileFrame(t *testing.T) {
	frame := []byte(`{"type":"profile","profile":{"username":"Zuri","pvpLevel":5,"properties":[],"dailyReward":10}}`)

	msg, err := Decode(frame)
	if err != nil {
		t.Fatalf("Expected frame to decode, got error: %v", err)
	}

	if msg.Type != TypeProfile {
		t.Errorf("Expected type %q, got %q", TypeProfile, msg.Type)
	}

	var payload ProfilePayload
	if err := msg.DecodePayload(&payload); err != nil {
		t.Fatalf("Expected payload to decode, got error: %v", err)
	}

	if payload.Profile.Username != "Zuri" {
		t.Errorf("Expected username 'Zuri', got %q", payload.Profile.Username)
	}
	if payload.Profile.PvPLevel != 5 {
		t.Errorf("Expected pvpLevel 5, got %d", payload.Profile.PvPLevel)
	}
	if payload.Profile.DailyReward != 10 {
		t.Errorf("Expected dailyReward 10, got %d", payload.Profile.DailyReward)
	}
}

func TestDecode_MissingType(t *testing.T) {
	if _, err := Decode([]byte(`{"foo":"bar"}`)); err == nil {
		t.Error("Expected an error for a frame without a type field")
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	if _, err := Decode([]byte(`{"type":`)); err == nil {
		t.Error("Expected an error for malformed JSON")
	}
}

func TestDecode_UnknownTypeIsNotAnError(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"seasonReset","season":2}`))
	if err != nil {
		t.Fatalf("Expected unknown types to decode cleanly, got error: %v", err)
	}
	if msg.Type != "seasonReset" {
		t.Errorf("Expected type 'seasonReset', got %q", msg.Type)
	}
}

func TestDecode_CopiesFrame(t *testing.T) {
	frame := []byte(`{"type":"battleUpdate","update":"hit"}`)
	msg, err := Decode(frame)
	if err != nil {
		t.Fatalf("Expected frame to decode, got error: %v", err)
	}

	// Mutating the caller's buffer must not corrupt the message.
	frame[0] = 'x'

	var payload BattleUpdatePayload
	if err := msg.DecodePayload(&payload); err != nil {
		t.Fatalf("Expected payload to decode after buffer reuse, got error: %v", err)
	}
	if payload.Update != "hit" {
		t.Errorf("Expected update 'hit', got %q", payload.Update)
	}
}

func TestEncode_PurchaseRequest(t *testing.T) {
	req := Purchase("build-1", "Buildings")

	frame, err := Encode(req)
	if err != nil {
		t.Fatalf("Expected request to encode, got error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(frame, &decoded); err != nil {
		t.Fatalf("Expected encoded frame to be valid JSON: %v", err)
	}

	if decoded["type"] != TypePurchase {
		t.Errorf("Expected type %q, got %v", TypePurchase, decoded["type"])
	}
	if decoded["itemId"] != "build-1" {
		t.Errorf("Expected itemId 'build-1', got %v", decoded["itemId"])
	}
	if decoded["category"] != "Buildings" {
		t.Errorf("Expected category 'Buildings', got %v", decoded["category"])
	}
	if decoded["requestId"] == "" {
		t.Error("Expected a generated requestId")
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	a := Challenge("p-1", true)
	b := Challenge("p-1", true)
	if a.RequestID == b.RequestID {
		t.Error("Expected distinct request ids per request")
	}
}
