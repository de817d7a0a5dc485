package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gifmeananswer/server/go/internal/fanout"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsReadTimeout    = 60 * time.Second
	wsPingInterval   = 30 * time.Second
	wsMaxMessageSize = 1024
)

// gameSocket serves the same event stream as gameEvents over a WebSocket,
// for clients behind proxies that buffer server-sent events.
func (h *Handler) gameSocket(w http.ResponseWriter, r *http.Request) {
	code, ok := gameCode(w, r)
	if !ok {
		return
	}
	if _, err := h.orch.GetGame(r.Context(), code); err != nil {
		writeMessage(w, http.StatusNotFound, notFoundMessage(code))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Int("code", code).Msg("failed to upgrade WebSocket connection")
		return
	}

	sub := h.pubsub.Subscribe(code)

	go h.socketWritePump(conn, sub)
	go h.socketReadPump(conn, sub)
}

// socketWritePump forwards fanout events to the socket and keeps the
// connection alive with pings. A write failure tears the subscription
// down; it is never treated as fatal.
func (h *Handler) socketWritePump(conn *websocket.Conn, sub *fanout.Subscription) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
		h.pubsub.Unsubscribe(sub)
	}()

	init, err := json.Marshal(initFrame{Event: fanout.EventInit, SupportedEvents: fanout.SupportedEvents()})
	if err == nil {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, init); err != nil {
			return
		}
	}

	for {
		select {
		case ev, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			frame, err := json.Marshal(eventFrame{Event: ev.Name, Data: ev.Data})
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal socket frame")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug().Err(err).Int("code", sub.Code).Msg("socket write failed, dropping client")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// socketReadPump discards client messages; it exists to notice the close.
func (h *Handler) socketReadPump(conn *websocket.Conn, sub *fanout.Subscription) {
	defer func() {
		h.pubsub.Unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Int("code", sub.Code).Msg("socket closed unexpectedly")
			}
			return
		}
	}
}
