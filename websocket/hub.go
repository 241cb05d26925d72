package websocket

import (
	"context"
	"encoding/json/v2"
	"sync"

	"github.com/rs/zerolog"
)

// Hub fans a broadcast message out to every registered Conn, tagging
// each with a uuid.UUID ID and logging lifecycle events via zerolog.
//
// All exported methods are safe for concurrent use; Run must be
// started in its own goroutine before Register/Broadcast are useful
// and should run for the Hub's whole lifetime, until Close.
type Hub struct {
	clients map[*Conn]bool

	register   chan *Conn
	unregister chan *Conn
	broadcast  chan hubMessage

	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
	mu     sync.RWMutex

	logger zerolog.Logger
}

// hubMessage pairs a queued broadcast payload with the MessageType it
// must be framed as, so BroadcastText/BroadcastJSON reach peers as
// Text frames instead of being flattened to Binary.
type hubMessage struct {
	msgType MessageType
	payload []byte
}

// NewHub returns a ready-to-use Hub; callers must run `go hub.Run()`
// before registering clients.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Conn]bool),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		broadcast:  make(chan hubMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the Hub's event loop. It blocks until Close is called,
// so it should be run in its own goroutine.
func (h *Hub) Run() {
	h.wg.Add(1)
	defer h.wg.Done()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug().Stringer("conn_id", client.ID).Int("clients", h.ClientCount()).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				_ = client.Close(context.Background())
			}
			h.mu.Unlock()
			h.logger.Debug().Stringer("conn_id", client.ID).Msg("client unregistered")

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				go func(c *Conn, msg hubMessage) {
					if err := c.Write(context.Background(), msg.msgType, msg.payload); err != nil {
						h.logger.Debug().Stringer("conn_id", c.ID).Err(err).Msg("broadcast write failed, unregistering")
						h.Unregister(c)
					}
				}(client, message)
			}
			h.mu.RUnlock()

		case <-h.done:
			return
		}
	}
}

// Register adds client to the Hub; it will receive future broadcasts.
func (h *Hub) Register(client *Conn) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return
	}
	h.register <- client
}

// Unregister removes client from the Hub and closes its connection.
// Safe to call more than once for the same client.
func (h *Hub) Unregister(client *Conn) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return
	}
	h.unregister <- client
}

// Broadcast queues message for delivery to every registered client as
// a Binary frame. It returns immediately; delivery happens in Run's
// goroutine (and one more per client).
func (h *Hub) Broadcast(message []byte) {
	h.queue(hubMessage{msgType: BinaryMessage, payload: message})
}

// BroadcastText queues text for delivery to every client as a Text
// frame.
func (h *Hub) BroadcastText(text string) {
	h.queue(hubMessage{msgType: TextMessage, payload: []byte(text)})
}

// BroadcastJSON marshals v with encoding/json/v2 and queues it for
// delivery to every client as a Text frame.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.queue(hubMessage{msgType: TextMessage, payload: data})
	return nil
}

func (h *Hub) queue(msg hubMessage) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return
	}
	h.broadcast <- msg
}

// ClientCount returns the number of currently registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the Hub's event loop, closes every registered client's
// connection, and waits for Run to return. Safe to call more than
// once.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	close(h.done)
	h.wg.Wait()

	h.mu.Lock()
	for client := range h.clients {
		_ = client.Close(context.Background())
	}
	h.clients = make(map[*Conn]bool)
	h.mu.Unlock()

	close(h.register)
	close(h.unregister)
	close(h.broadcast)

	return nil
}
