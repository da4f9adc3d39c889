// internal/realtime/hub.go
//
// Server-sent-events hub.
//
// One hub serves every game; subscribers register under a game ID and
// receive only that game's events. Broadcasts copy the subscriber set
// under a read lock and send without holding it, with a short per-client
// timeout so one stalled connection cannot wedge a broadcast.

package realtime

import (
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// sendTimeout bounds how long a broadcast waits on one slow client.
const sendTimeout = 2 * time.Second

// clientBuffer is the per-subscriber channel depth. A client this far
// behind starts dropping events; the stream is advisory, clients refetch
// state on reconnect.
const clientBuffer = 16

// Message is one SSE frame: an event name and a JSON payload.
type Message struct {
	Event string
	Data  string
}

// Hub fans events out to per-game subscriber sets.
type Hub struct {
	mu    sync.RWMutex
	games map[string]map[chan Message]string // gameID -> channel -> subscriber label
	log   zerolog.Logger
}

// NewHub returns an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{games: make(map[string]map[chan Message]string), log: log}
}

// Subscribe registers a new client on a game's stream. The label is
// diagnostic only (participant or admin ID). The hub never closes the
// channel: a broadcast racing an unsubscribe may still hold a reference
// to it, and the reader exits on its request context instead.
func (h *Hub) Subscribe(gameID, label string) chan Message {
	ch := make(chan Message, clientBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.games[gameID] == nil {
		h.games[gameID] = make(map[chan Message]string)
	}
	h.games[gameID][ch] = label
	h.log.Debug().Str("game_id", gameID).Str("client", label).
		Int("clients", len(h.games[gameID])).Msg("sse subscribe")
	return ch
}

// Unsubscribe removes a client from a game's stream.
func (h *Hub) Unsubscribe(gameID string, ch chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.games[gameID]
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(h.games, gameID)
	}
}

// ClientCount reports the current subscriber count for a game.
func (h *Hub) ClientCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// Broadcast sends an event to every subscriber of a game. The payload is
// JSON-encoded; an unencodable payload is logged and dropped.
func (h *Hub) Broadcast(gameID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("sse payload encode failed")
		return
	}
	msg := Message{Event: event, Data: string(data)}

	h.mu.RLock()
	clients := maps.Clone(h.games[gameID])
	h.mu.RUnlock()

	// Send without the lock so Subscribe/Unsubscribe never wait on a
	// slow client.
	for ch := range clients {
		select {
		case ch <- msg:
		case <-time.After(sendTimeout):
			h.log.Warn().Str("game_id", gameID).Str("event", event).
				Str("client", clients[ch]).Msg("sse send timeout, dropping event")
		}
	}
}
