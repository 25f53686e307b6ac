package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iamprecieee/raiku-simulator/pkg/events"
	"github.com/iamprecieee/raiku-simulator/pkg/marketplace"
)

// EventStreamManager manages SSE connections and event broadcasting.
type EventStreamManager struct {
	svc     *marketplace.Service
	bus     *events.Bus
	log     logrus.FieldLogger
	clients map[chan *events.Event]struct{}
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewEventStreamManager creates a new event stream manager.
func NewEventStreamManager(svc *marketplace.Service, bus *events.Bus, log logrus.FieldLogger) *EventStreamManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &EventStreamManager{
		svc:     svc,
		bus:     bus,
		log:     log.WithField("component", "event-stream"),
		clients: make(map[chan *events.Event]struct{}, 8),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins forwarding bus events to connected clients.
func (m *EventStreamManager) Start() {
	sub := m.bus.Subscribe()

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer sub.Unsubscribe()

		for {
			select {
			case <-m.ctx.Done():
				return
			case event := <-sub.Channel():
				m.broadcast(event)
			}
		}
	}()
}

// Stop stops the event stream manager.
func (m *EventStreamManager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// AddClient adds a new SSE client.
func (m *EventStreamManager) AddClient(ch chan *events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clients[ch] = struct{}{}
}

// RemoveClient removes an SSE client.
func (m *EventStreamManager) RemoveClient(ch chan *events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.clients, ch)
	close(ch)
}

// ClientCount returns the number of connected SSE clients.
func (m *EventStreamManager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.clients)
}

// broadcast sends an event to all connected clients. A client whose buffer
// is full misses the event rather than stalling the stream.
func (m *EventStreamManager) broadcast(event *events.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for ch := range m.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

// sendInitialState pushes the current window and stats to a new client so
// it does not have to wait for the next tick.
func (m *EventStreamManager) sendInitialState(ch chan *events.Event) {
	current := m.svc.CurrentSlot()
	stats := m.svc.GetStats()

	initial := []*events.Event{
		{
			Type:      events.TypeSlotsUpdated,
			Timestamp: time.Now().UnixMilli(),
			Data: events.SlotsUpdated{
				CurrentSlot: current,
				Slots:       m.svc.Slots(),
			},
		},
		{
			Type:      events.TypeMarketplaceStats,
			Timestamp: time.Now().UnixMilli(),
			Data: events.MarketplaceStats{
				CurrentSlot:       current,
				ActiveJitAuctions: stats.ActiveJitAuctions,
				ActiveAotAuctions: stats.ActiveAotAuctions,
				TotalTransactions: stats.TotalTransactions,
			},
		},
	}

	for _, event := range initial {
		select {
		case ch <- event:
		default:
		}
	}
}

// EventStream handles the SSE endpoint for real-time events.
func (h *APIHandler) EventStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeFailure(w, http.StatusInternalServerError, "streaming not supported")

		return
	}

	clientCh := make(chan *events.Event, 32)

	h.eventStreamMgr.AddClient(clientCh)
	defer h.eventStreamMgr.RemoveClient(clientCh)

	h.eventStreamMgr.sendInitialState(clientCh)

	for {
		select {
		case <-r.Context().Done():
			return

		case event, ok := <-clientCh:
			if !ok {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				continue
			}

			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
