package fanout

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// sinkBuffer is the per-subscription channel capacity. A sink that falls
// this far behind starts losing events rather than stalling publishers.
const sinkBuffer = 256

// Broadcaster delivers events to subscriptions within one process. It is
// the complete fanout for single-instance deployments and the local leg of
// the NATS-backed fanout.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[int]map[uuid.UUID]*Subscription
}

// NewBroadcaster creates an in-process fanout.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]map[uuid.UUID]*Subscription),
	}
}

func (b *Broadcaster) Subscribe(code int) *Subscription {
	sub := &Subscription{
		ID:   uuid.New(),
		Code: code,
		ch:   make(chan Event, sinkBuffer),
	}
	sub.C = sub.ch

	b.mu.Lock()
	if b.subs[code] == nil {
		b.subs[code] = make(map[uuid.UUID]*Subscription)
	}
	b.subs[code][sub.ID] = sub
	count := len(b.subs[code])
	b.mu.Unlock()

	log.Debug().
		Str("subscription", sub.ID.String()).
		Int("code", code).
		Int("subscribers", count).
		Msg("client subscribed")
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// more than once.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[sub.Code]
	if !ok {
		return
	}
	if _, ok := subs[sub.ID]; !ok {
		return
	}
	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(b.subs, sub.Code)
	}
	close(sub.ch)

	log.Debug().
		Str("subscription", sub.ID.String()).
		Int("code", sub.Code).
		Msg("client unsubscribed")
}

// Publish delivers the event to every subscription for the code. Sends are
// non-blocking; a full sink drops the event for that sink only.
func (b *Broadcaster) Publish(code int, name EventName, data any) {
	event := Event{Code: code, Name: name, Data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[code] {
		select {
		case sub.ch <- event:
		default:
			log.Warn().
				Str("subscription", sub.ID.String()).
				Int("code", code).
				Str("event", string(name)).
				Msg("sink buffer full, dropping event")
		}
	}
}
