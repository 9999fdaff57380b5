package proto

import "github.com/google/uuid"

// Property is a reward-bearing asset owned by a player.
type Property struct {
	Name   string `json:"name"`
	Reward int    `json:"reward"`
}

// Profile is the server-authoritative view of the local player.
type Profile struct {
	Username    string     `json:"username"`
	PvPLevel    int        `json:"pvpLevel"`
	Properties  []Property `json:"properties"`
	DailyReward int        `json:"dailyReward"`
}

// Building is one placed structure in the shared world.
type Building struct {
	ID       string     `json:"id"`
	Position [3]float64 `json:"position"`
	Color    string     `json:"color"`
}

// PlayerInfo identifies another connected player in the arena lobby.
type PlayerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	PvPLevel int    `json:"pvpLevel"`
}

// Payload shapes for inbound messages, keyed by the frame's "type".

type ProfilePayload struct {
	Profile Profile `json:"profile"`
}

type WorldUpdatePayload struct {
	Buildings []Building `json:"buildings"`
}

type PlayerListPayload struct {
	Players []PlayerInfo `json:"players"`
}

type PurchaseAckPayload struct {
	ItemID string `json:"itemId"`
}

type ChallengeRequestPayload struct {
	Challenger     string `json:"challenger"`
	ChallengerName string `json:"challengerName"`
	Stake          bool   `json:"stake"`
}

type ChallengeResponsePayload struct {
	Message string `json:"message"`
}

type BattleUpdatePayload struct {
	Update string `json:"update"`
}

// Outbound requests. RequestID is generated per request so a future
// server revision can echo it back for correlation; responses today are
// matched by type alone.

type GetProfileRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
}

func GetProfile() GetProfileRequest {
	return GetProfileRequest{Type: TypeGetProfile, RequestID: uuid.NewString()}
}

type ListPlayersRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
}

func ListPlayers() ListPlayersRequest {
	return ListPlayersRequest{Type: TypeListPlayers, RequestID: uuid.NewString()}
}

type PurchaseRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	ItemID    string `json:"itemId"`
	Category  string `json:"category"`
}

func Purchase(itemID, category string) PurchaseRequest {
	return PurchaseRequest{Type: TypePurchase, RequestID: uuid.NewString(), ItemID: itemID, Category: category}
}

type ChallengeRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Target    string `json:"target"`
	Stake     bool   `json:"stake"`
}

func Challenge(target string, stake bool) ChallengeRequest {
	return ChallengeRequest{Type: TypeChallenge, RequestID: uuid.NewString(), Target: target, Stake: stake}
}
