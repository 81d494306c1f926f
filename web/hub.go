// ABOUTME: Websocket hub pushing repository change events to browsers
// ABOUTME: Clients register on /ws and receive every event as JSON
package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/harperreed/leadpipe/crm"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans events out to connected websocket clients. Events arrive through
// a buffer so a slow client never blocks a repository mutation.
type Hub struct {
	log *logrus.Entry

	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	events chan crm.Event
	done   chan struct{}
	once   sync.Once
}

func NewHub(logger *logrus.Logger) *Hub {
	h := &Hub{
		log:     logger.WithField("component", "web.hub"),
		clients: make(map[*websocket.Conn]bool),
		events:  make(chan crm.Event, 256),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

// Publish queues e for broadcast. Events are dropped when the buffer is full.
func (h *Hub) Publish(e crm.Event) {
	select {
	case h.events <- e:
	case <-h.done:
	default:
		h.log.WithField("kind", e.Kind).Debug("event buffer full, dropping")
	}
}

func (h *Hub) run() {
	for {
		select {
		case e := <-h.events:
			h.broadcast(e)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) broadcast(e crm.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(e); err != nil {
			_ = client.Close()
			delete(h.clients, client)
		}
	}
}

// Clients reports how many connections are registered.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the connection until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Incoming frames are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// Close stops broadcasting and disconnects every client.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for client := range h.clients {
			_ = client.Close()
			delete(h.clients, client)
		}
	})
}
