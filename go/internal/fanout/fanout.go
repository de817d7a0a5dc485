package fanout

import "github.com/google/uuid"

// Event is one delivery to a subscribed sink: the event name plus the game
// snapshot (or, for broker-relayed events, its raw JSON).
type Event struct {
	Code int       `json:"code"`
	Name EventName `json:"event"`
	Data any       `json:"data"`
}

// Subscription is a live sink attached to one session code. Events arrive
// on C; when the subscription is removed the channel is closed.
type Subscription struct {
	ID   uuid.UUID
	Code int
	C    <-chan Event

	ch chan Event
}

// PubSub delivers published events to every live subscription for a code.
// Publish is fire-and-forget: it never blocks on slow or dead sinks, and
// offers no delivery to subscribers that attach afterwards. The engine
// never sees whether it is backed by the in-process broadcaster or a
// cross-process broker.
type PubSub interface {
	Subscribe(code int) *Subscription
	Unsubscribe(sub *Subscription)
	Publish(code int, name EventName, data any)
}
