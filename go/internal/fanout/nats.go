package fanout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// DefaultSubject is the shared NATS subject carrying every game event.
const DefaultSubject = "game.events"

// envelope is the wire form of an event on the broker.
type envelope struct {
	Code int             `json:"code"`
	Name EventName       `json:"event"`
	Data json.RawMessage `json:"data"`
}

// NATSPubSub relays events through a NATS subject so that subscribers
// attached to different service instances observe every event for a shared
// session. Each instance's local broadcaster replays broker messages to
// its own subscriptions; local delivery therefore also goes through the
// broker, keeping ordering identical across instances.
type NATSPubSub struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	local   *Broadcaster
	subject string
}

// NewNATSPubSub connects to the broker and starts relaying the subject
// into a local broadcaster.
func NewNATSPubSub(url, subject string) (*NATSPubSub, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	p := &NATSPubSub{
		nc:      nc,
		local:   NewBroadcaster(),
		subject: subject,
	}

	sub, err := nc.Subscribe(subject, p.relay)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	p.sub = sub

	log.Info().Str("subject", subject).Msg("initializing NATS fanout")
	return p, nil
}

func (p *NATSPubSub) relay(msg *nats.Msg) {
	env, err := decodeEnvelope(msg.Data)
	if err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("dropping malformed broker event")
		return
	}
	p.local.Publish(env.Code, env.Name, env.Data)
}

func (p *NATSPubSub) Subscribe(code int) *Subscription {
	return p.local.Subscribe(code)
}

func (p *NATSPubSub) Unsubscribe(sub *Subscription) {
	p.local.Unsubscribe(sub)
}

// Publish serializes the event onto the shared subject. Fire-and-forget; a
// publish failure is logged, never surfaced to the caller.
func (p *NATSPubSub) Publish(code int, name EventName, data any) {
	payload, err := encodeEnvelope(code, name, data)
	if err != nil {
		log.Error().Err(err).Int("code", code).Str("event", string(name)).Msg("failed to encode event")
		return
	}
	if err := p.nc.Publish(p.subject, payload); err != nil {
		log.Error().Err(err).Int("code", code).Str("event", string(name)).Msg("failed to publish event")
	}
}

// Close detaches from the broker.
func (p *NATSPubSub) Close() {
	if p.sub != nil {
		if err := p.sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("failed to unsubscribe from NATS subject")
		}
	}
	p.nc.Close()
}

func encodeEnvelope(code int, name EventName, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Code: code, Name: name, Data: raw})
}

func decodeEnvelope(payload []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return envelope{}, err
	}
	return env, nil
}
