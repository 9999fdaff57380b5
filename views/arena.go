package views

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/afriverse/gameclient/proto"
	"github.com/afriverse/gameclient/router"
)

// maxArenaEvents bounds the retained event log.
const maxArenaEvents = 64

// ArenaEvent is one PvP notification shown to the player.
type ArenaEvent struct {
	Kind string // challengeResponse, challengeRequest or battleUpdate
	Text string
}

// ArenaView projects the PvP lobby: the opponent list, replaced
// wholesale on every playerList message, and a bounded log of challenge
// and battle events.
type ArenaView struct {
	// MergePlayers combines the previous opponent list with an
	// incoming one. Nil means replacement. Set before Attach.
	MergePlayers func(old, next []proto.PlayerInfo) []proto.PlayerInfo

	router *router.Router
	subs   []router.Subscription

	mu      sync.RWMutex
	players []proto.PlayerInfo
	events  []ArenaEvent
}

func NewArenaView() *ArenaView {
	return &ArenaView{}
}

// Attach subscribes the view and requests the opponent list.
func (v *ArenaView) Attach(r *router.Router) {
	v.router = r
	v.subs = []router.Subscription{
		r.Subscribe(proto.TypePlayerList, v.onPlayerList),
		r.Subscribe(proto.TypeChallengeResponse, v.onChallengeResponse),
		r.Subscribe(proto.TypeChallengeRequest, v.onChallengeRequest),
		r.Subscribe(proto.TypeBattleUpdate, v.onBattleUpdate),
	}
	if err := v.Refresh(); err != nil {
		slog.Warn("Failed to request player list", "error", err)
	}
}

func (v *ArenaView) Detach() {
	if v.router == nil {
		return
	}
	for _, sub := range v.subs {
		v.router.Unsubscribe(sub)
	}
	v.subs = nil
	v.router = nil
}

// Refresh re-requests the opponent list.
func (v *ArenaView) Refresh() error {
	if v.router == nil {
		return fmt.Errorf("arena view is not attached")
	}
	return v.router.Publish(proto.ListPlayers())
}

// Challenge invites another player to a battle, optionally staking
// tokens on the outcome.
func (v *ArenaView) Challenge(target string, stake bool) error {
	if v.router == nil {
		return fmt.Errorf("arena view is not attached")
	}
	return v.router.Publish(proto.Challenge(target, stake))
}

// Players returns a copy of the current opponent list.
func (v *ArenaView) Players() []proto.PlayerInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]proto.PlayerInfo, len(v.players))
	copy(out, v.players)
	return out
}

// Events returns the retained event log, oldest first.
func (v *ArenaView) Events() []ArenaEvent {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]ArenaEvent, len(v.events))
	copy(out, v.events)
	return out
}

func (v *ArenaView) onPlayerList(msg proto.Message) {
	var payload proto.PlayerListPayload
	if err := msg.DecodePayload(&payload); err != nil {
		slog.Warn("Dropping malformed player list", "error", err)
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.MergePlayers != nil {
		v.players = v.MergePlayers(v.players, payload.Players)
	} else {
		v.players = payload.Players
	}
}

func (v *ArenaView) onChallengeResponse(msg proto.Message) {
	var payload proto.ChallengeResponsePayload
	if err := msg.DecodePayload(&payload); err != nil {
		slog.Warn("Dropping malformed challenge response", "error", err)
		return
	}
	v.appendEvent(ArenaEvent{Kind: proto.TypeChallengeResponse, Text: payload.Message})
}

func (v *ArenaView) onChallengeRequest(msg proto.Message) {
	var payload proto.ChallengeRequestPayload
	if err := msg.DecodePayload(&payload); err != nil {
		slog.Warn("Dropping malformed challenge request", "error", err)
		return
	}
	text := fmt.Sprintf("%s challenged you (stake: %t)", payload.ChallengerName, payload.Stake)
	v.appendEvent(ArenaEvent{Kind: proto.TypeChallengeRequest, Text: text})
}

func (v *ArenaView) onBattleUpdate(msg proto.Message) {
	var payload proto.BattleUpdatePayload
	if err := msg.DecodePayload(&payload); err != nil {
		slog.Warn("Dropping malformed battle update", "error", err)
		return
	}
	v.appendEvent(ArenaEvent{Kind: proto.TypeBattleUpdate, Text: payload.Update})
}

func (v *ArenaView) appendEvent(ev ArenaEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, ev)
	if len(v.events) > maxArenaEvents {
		v.events = v.events[len(v.events)-maxArenaEvents:]
	}
}
