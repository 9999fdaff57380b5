package proto

import (
	"encoding/json"
	"fmt"
)

// Inbound message types sent by the server.
const (
	TypeProfile           = "profile"
	TypeWorldUpdate       = "worldUpdate"
	TypePlayerList        = "playerList"
	TypePurchaseAck       = "purchaseAck"
	TypeChallengeRequest  = "challengeRequest"
	TypeChallengeResponse = "challengeResponse"
	TypeBattleUpdate      = "battleUpdate"
)

// Outbound request types sent by the client.
const (
	TypeGetProfile  = "getProfile"
	TypeListPlayers = "listPlayers"
	TypePurchase    = "purchase"
	TypeChallenge   = "challenge"
)

// Message is one decoded wire frame. Every frame is a flat JSON object
// whose "type" field selects the payload schema; the raw frame is kept
// so consumers can unmarshal the type-specific fields lazily.
type Message struct {
	Type string
	Raw  json.RawMessage
}

// Decode parses a raw text frame into a Message. Malformed JSON or a
// missing/empty "type" field is a decode failure; an unrecognized type
// is not (new server message types must decode cleanly).
func Decode(frame []byte) (Message, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return Message{}, fmt.Errorf("invalid JSON frame: %w", err)
	}
	if env.Type == "" {
		return Message{}, fmt.Errorf("frame is missing the type field")
	}
	raw := make(json.RawMessage, len(frame))
	copy(raw, frame)
	return Message{Type: env.Type, Raw: raw}, nil
}

// DecodePayload unmarshals the frame's type-specific fields into v.
func (m Message) DecodePayload(v any) error {
	if err := json.Unmarshal(m.Raw, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", m.Type, err)
	}
	return nil
}

// Encode marshals an outbound request into a single text frame.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame: %w", err)
	}
	return data, nil
}
