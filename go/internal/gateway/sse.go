package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gifmeananswer/server/go/internal/fanout"
)

// eventFrame is the JSON body of one stream frame.
type eventFrame struct {
	Event fanout.EventName `json:"event"`
	Data  any              `json:"data"`
}

// initFrame opens every stream, enumerating the events a client may see.
type initFrame struct {
	Event           fanout.EventName   `json:"event"`
	SupportedEvents []fanout.EventName `json:"supportedEvents"`
}

// gameEvents serves the persistent text-event stream for a session. Events
// published before the client connected are not replayed; reconnecting
// clients recover via the snapshot endpoint.
func (h *Handler) gameEvents(w http.ResponseWriter, r *http.Request) {
	code, ok := gameCode(w, r)
	if !ok {
		return
	}
	if _, err := h.orch.GetGame(r.Context(), code); err != nil {
		writeMessage(w, http.StatusNotFound, notFoundMessage(code))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.pubsub.Subscribe(code)
	defer h.pubsub.Unsubscribe(sub)

	writeFrame(w, initFrame{Event: fanout.EventInit, SupportedEvents: fanout.SupportedEvents()})
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("code", code).Str("subscription", sub.ID.String()).Msg("event-stream client disconnected")
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			writeFrame(w, eventFrame{Event: ev.Name, Data: ev.Data})
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal stream frame")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
