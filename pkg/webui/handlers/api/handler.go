package api

import (
	"github.com/sirupsen/logrus"

	"github.com/iamprecieee/raiku-simulator/pkg/config"
	"github.com/iamprecieee/raiku-simulator/pkg/events"
	"github.com/iamprecieee/raiku-simulator/pkg/game"
	"github.com/iamprecieee/raiku-simulator/pkg/marketplace"
	"github.com/iamprecieee/raiku-simulator/pkg/session"
)

// APIHandler handles API requests for the marketplace.
type APIHandler struct {
	cfg      *config.Config
	svc      *marketplace.Service
	game     *game.Manager
	sessions *session.Manager
	log      logrus.FieldLogger

	eventStreamMgr *EventStreamManager
	broadcaster    *WebsocketBroadcaster
}

// NewAPIHandler creates a new API handler and starts the event stream
// manager and websocket broadcaster.
func NewAPIHandler(
	cfg *config.Config,
	svc *marketplace.Service,
	gameMgr *game.Manager,
	sessions *session.Manager,
	bus *events.Bus,
	log logrus.FieldLogger,
) *APIHandler {
	h := &APIHandler{
		cfg:      cfg,
		svc:      svc,
		game:     gameMgr,
		sessions: sessions,
		log:      log.WithField("component", "api"),
	}

	h.eventStreamMgr = NewEventStreamManager(svc, bus, h.log)
	h.eventStreamMgr.Start()

	h.broadcaster = NewWebsocketBroadcaster(bus, h.log)
	h.broadcaster.Start()

	return h
}

// Stop stops the API handler and its components.
func (h *APIHandler) Stop() {
	h.eventStreamMgr.Stop()
	h.broadcaster.Stop()
}
