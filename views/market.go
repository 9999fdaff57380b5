package views

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/afriverse/gameclient/proto"
	"github.com/afriverse/gameclient/router"
)

// MarketView issues purchases and records their acknowledgements. A
// purchase with no acknowledgement is simply absent from Acks: there is
// no delivery guarantee and no timeout at this layer.
type MarketView struct {
	router *router.Router
	sub    router.Subscription

	mu   sync.RWMutex
	acks []string
}

func NewMarketView() *MarketView {
	return &MarketView{}
}

func (v *MarketView) Attach(r *router.Router) {
	v.router = r
	v.sub = r.Subscribe(proto.TypePurchaseAck, v.onPurchaseAck)
}

func (v *MarketView) Detach() {
	if v.router != nil {
		v.router.Unsubscribe(v.sub)
		v.router = nil
	}
}

// Purchase requests one marketplace item. The request is best effort.
func (v *MarketView) Purchase(itemID, category string) error {
	if v.router == nil {
		return fmt.Errorf("market view is not attached")
	}
	return v.router.Publish(proto.Purchase(itemID, category))
}

// Acks returns the item ids acknowledged so far, oldest first.
func (v *MarketView) Acks() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, len(v.acks))
	copy(out, v.acks)
	return out
}

func (v *MarketView) onPurchaseAck(msg proto.Message) {
	var payload proto.PurchaseAckPayload
	if err := msg.DecodePayload(&payload); err != nil {
		slog.Warn("Dropping malformed purchase ack", "error", err)
		return
	}

	v.mu.Lock()
	v.acks = append(v.acks, payload.ItemID)
	v.mu.Unlock()
}
