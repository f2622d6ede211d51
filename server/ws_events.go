package server

import (
	"net/http"
	"sync"
	"time"

	"cassette/core/player"
	"cassette/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventHub fans coordinator events out to connected presentation
// clients. Broadcast-only: clients never send anything meaningful.
type EventHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan player.Event
}

// NewEventHub starts the fan-out pump over the coordinator's event feed.
func NewEventHub(events <-chan player.Event) *EventHub {
	h := &EventHub{clients: make(map[*websocket.Conn]chan player.Event)}
	go h.run(events)
	return h
}

func (h *EventHub) run(events <-chan player.Event) {
	for ev := range events {
		h.mu.Lock()
		for conn, ch := range h.clients {
			select {
			case ch <- ev:
			default:
				// Slow client: drop it rather than stall the feed.
				logger.Warn("event client too slow, dropping connection")
				close(ch)
				delete(h.clients, conn)
			}
		}
		h.mu.Unlock()
	}
}

func (h *EventHub) register(conn *websocket.Conn) chan player.Event {
	ch := make(chan player.Event, 16)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *EventHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

// EventsHandler upgrades the connection and streams coordinator events
// until the client goes away.
func (h *EventHub) EventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	ch := h.register(conn)
	defer func() {
		h.unregister(conn)
		conn.Close()
	}()

	// Read pump exists only to observe the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("event client read error", logger.ErrorField(err))
				}
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("event client write error", logger.ErrorField(err))
				return
			}
		case <-done:
			return
		}
	}
}
