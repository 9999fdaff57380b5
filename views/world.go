package views

import (
	"log/slog"
	"sync"

	"github.com/afriverse/gameclient/proto"
	"github.com/afriverse/gameclient/router"
)

// WorldView projects the shared world's building state. Each worldUpdate
// replaces the building list wholesale unless a merge function is set.
type WorldView struct {
	// Merge combines the previous building list with an incoming one.
	// Nil means replacement. Set before Attach.
	Merge func(old, next []proto.Building) []proto.Building

	router *router.Router
	sub    router.Subscription

	mu        sync.RWMutex
	buildings []proto.Building
}

func NewWorldView() *WorldView {
	return &WorldView{}
}

func (v *WorldView) Attach(r *router.Router) {
	v.router = r
	v.sub = r.Subscribe(proto.TypeWorldUpdate, v.onWorldUpdate)
}

func (v *WorldView) Detach() {
	if v.router != nil {
		v.router.Unsubscribe(v.sub)
		v.router = nil
	}
}

// Buildings returns a copy of the current projection.
func (v *WorldView) Buildings() []proto.Building {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]proto.Building, len(v.buildings))
	copy(out, v.buildings)
	return out
}

func (v *WorldView) onWorldUpdate(msg proto.Message) {
	var payload proto.WorldUpdatePayload
	if err := msg.DecodePayload(&payload); err != nil {
		slog.Warn("Dropping malformed world update", "error", err)
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Merge != nil {
		v.buildings = v.Merge(v.buildings, payload.Buildings)
	} else {
		v.buildings = payload.Buildings
	}
}
