package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/iamprecieee/raiku-simulator/pkg/events"
)

// WebsocketBroadcaster fans marketplace events out to websocket clients.
type WebsocketBroadcaster struct {
	bus      *events.Bus
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	clients map[*websocket.Conn]struct{}
	mu      sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWebsocketBroadcaster creates a broadcaster with no clients.
func NewWebsocketBroadcaster(bus *events.Bus, log logrus.FieldLogger) *WebsocketBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	return &WebsocketBroadcaster{
		bus:      bus,
		log:      log.WithField("component", "websocket"),
		upgrader: websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins forwarding bus events to connected clients.
func (b *WebsocketBroadcaster) Start() {
	sub := b.bus.Subscribe()

	b.wg.Add(1)

	go func() {
		defer b.wg.Done()
		defer sub.Unsubscribe()

		for {
			select {
			case <-b.ctx.Done():
				return
			case event := <-sub.Channel():
				b.broadcast(event)
			}
		}
	}()
}

// Stop disconnects all clients and stops the forwarding loop.
func (b *WebsocketBroadcaster) Stop() {
	b.cancel()
	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()

	for conn := range b.clients {
		conn.Close()
		delete(b.clients, conn)
	}
}

// ClientCount returns the number of connected websocket clients.
func (b *WebsocketBroadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.clients)
}

// broadcast writes the event to every client, dropping clients whose
// connection has failed.
func (b *WebsocketBroadcaster) broadcast(event *events.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		b.log.WithError(err).Warn("Failed to marshal event")

		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for conn := range b.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			delete(b.clients, conn)
		}
	}
}

// Websocket upgrades the connection and streams marketplace events until
// the client disconnects.
func (h *APIHandler) Websocket(w http.ResponseWriter, r *http.Request) {
	b := h.broadcaster

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.WithError(err).Warn("Websocket upgrade failed")

		return
	}

	b.mu.Lock()
	b.clients[conn] = struct{}{}
	b.mu.Unlock()

	// Read loop to detect disconnects; inbound messages are ignored.
	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.clients, conn)
			b.mu.Unlock()
			conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
