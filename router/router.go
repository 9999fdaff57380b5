// Package router decodes inbound frames into typed messages and
// dispatches them to the subscriptions registered for each message type.
// It is the single consumer of the channel's inbound frame stream and the
// single producer of its outbound frames.
package router

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/afriverse/gameclient/proto"
)

// Handler consumes one decoded message. Handlers run synchronously on
// the goroutine that delivered the frame, in registration order.
type Handler func(msg proto.Message)

// Subscription identifies one registered (type, handler) pair.
type Subscription struct {
	id      string
	msgType string
}

type subscriber struct {
	id      string
	handler Handler
	removed atomic.Bool
}

// SendFunc forwards an encoded frame to the channel. Delivery is best
// effort; the router never learns whether the frame reached a transport.
type SendFunc func(frame []byte)

// Router routes typed messages between the channel and its consumers.
type Router struct {
	send    SendFunc
	metrics *metrics

	mu   sync.Mutex
	subs map[string][]*subscriber
}

func New(send SendFunc, reg prometheus.Registerer) *Router {
	return &Router{
		send:    send,
		metrics: newMetrics(reg),
		subs:    make(map[string][]*subscriber),
	}
}

// Subscribe registers a handler for one message type. Multiple handlers
// may subscribe to the same type; each dispatch invokes them in the
// order they subscribed.
func (r *Router) Subscribe(msgType string, h Handler) Subscription {
	sub := &subscriber{id: uuid.NewString(), handler: h}

	r.mu.Lock()
	r.subs[msgType] = append(r.subs[msgType], sub)
	r.mu.Unlock()

	slog.Debug("Subscribed", "type", msgType, "subscription", sub.id)
	return Subscription{id: sub.id, msgType: msgType}
}

// Unsubscribe removes a subscription. It is idempotent, and is safe to
// call from inside a handler: the removed handler is never invoked by
// any later dispatch.
func (r *Router) Unsubscribe(s Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.subs[s.msgType]
	for i, sub := range list {
		if sub.id == s.id {
			sub.removed.Store(true)
			r.subs[s.msgType] = append(list[:i], list[i+1:]...)
			if len(r.subs[s.msgType]) == 0 {
				delete(r.subs, s.msgType)
			}
			slog.Debug("Unsubscribed", "type", s.msgType, "subscription", s.id)
			return
		}
	}
}

// HandleFrame decodes one inbound frame and dispatches the result. A
// frame that fails to decode is logged and dropped; it never reaches a
// subscriber and never disturbs the channel.
func (r *Router) HandleFrame(frame []byte) {
	msg, err := proto.Decode(frame)
	if err != nil {
		slog.Warn("Dropping undecodable frame", "error", err, "data", string(frame))
		r.metrics.decodeFailures.Inc()
		return
	}
	r.Dispatch(msg)
}

// Dispatch invokes every live subscription registered for msg.Type. A
// message type with no subscription is a no-op, not an error.
func (r *Router) Dispatch(msg proto.Message) {
	r.mu.Lock()
	list := r.subs[msg.Type]
	snapshot := make([]*subscriber, len(list))
	copy(snapshot, list)
	r.mu.Unlock()

	if len(snapshot) == 0 {
		slog.Debug("No subscription for message type", "type", msg.Type)
		return
	}

	invoked := 0
	for _, sub := range snapshot {
		if sub.removed.Load() {
			continue
		}
		sub.handler(msg)
		invoked++
	}
	if invoked == 0 {
		return
	}
	r.metrics.dispatched.Inc()
	slog.Debug("Dispatched message", "type", msg.Type, "handlers", invoked)
}

// Publish encodes an outbound request and forwards it to the channel.
// It fails only on a request that cannot become a valid frame; whether
// the frame is ultimately delivered is the channel's best-effort
// concern, invisible here.
func (r *Router) Publish(v any) error {
	frame, err := proto.Encode(v)
	if err != nil {
		return err
	}
	if _, err := proto.Decode(frame); err != nil {
		return fmt.Errorf("refusing to publish frame: %w", err)
	}
	r.send(frame)
	return nil
}
