package server

import "github.com/afriverse/gameclient/proto"

// Server-to-client frames. These mirror the inbound payload shapes in
// proto with the type discriminant attached.

type profileMessage struct {
	Type    string        `json:"type"`
	Profile proto.Profile `json:"profile"`
}

type playerListMessage struct {
	Type    string             `json:"type"`
	Players []proto.PlayerInfo `json:"players"`
}

type purchaseAckMessage struct {
	Type   string `json:"type"`
	ItemID string `json:"itemId"`
}

type worldUpdateMessage struct {
	Type      string           `json:"type"`
	Buildings []proto.Building `json:"buildings"`
}

type challengeRequestMessage struct {
	Type           string `json:"type"`
	Challenger     string `json:"challenger"`
	ChallengerName string `json:"challengerName"`
	Stake          bool   `json:"stake"`
}

type challengeResponseMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
