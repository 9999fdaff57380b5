// Package views holds the client-side projections of server-authoritative
// state. Each view subscribes to the message types it cares about and
// replaces its projection wholesale on every relevant update; a view that
// needs different semantics can install a merge function. Views never
// touch the transport and tolerate responses that never arrive.
package views

import (
	"log/slog"
	"sync"

	"github.com/afriverse/gameclient/proto"
	"github.com/afriverse/gameclient/router"
)

// ProfileView projects the local player's profile. It requests the
// profile once on attach and mirrors every profile message thereafter.
type ProfileView struct {
	// Merge combines the previous projection with an incoming one.
	// Nil means the incoming profile replaces the old one. Set before
	// Attach.
	Merge func(old, next proto.Profile) proto.Profile

	router *router.Router
	sub    router.Subscription

	mu      sync.RWMutex
	profile proto.Profile
	loaded  bool
}

func NewProfileView() *ProfileView {
	return &ProfileView{}
}

// Attach subscribes the view and requests the current profile.
func (v *ProfileView) Attach(r *router.Router) {
	v.router = r
	v.sub = r.Subscribe(proto.TypeProfile, v.onProfile)
	if err := r.Publish(proto.GetProfile()); err != nil {
		slog.Warn("Failed to request profile", "error", err)
	}
}

// Detach unsubscribes the view. The last projection remains readable.
func (v *ProfileView) Detach() {
	if v.router != nil {
		v.router.Unsubscribe(v.sub)
		v.router = nil
	}
}

// Snapshot returns the current projection and whether any profile
// message has arrived yet.
func (v *ProfileView) Snapshot() (proto.Profile, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.profile, v.loaded
}

func (v *ProfileView) onProfile(msg proto.Message) {
	var payload proto.ProfilePayload
	if err := msg.DecodePayload(&payload); err != nil {
		slog.Warn("Dropping malformed profile message", "error", err)
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Merge != nil && v.loaded {
		v.profile = v.Merge(v.profile, payload.Profile)
	} else {
		v.profile = payload.Profile
	}
	v.loaded = true
}
