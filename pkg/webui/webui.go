// Package webui exposes the marketplace over HTTP: a JSON API, an SSE event
// stream, a websocket feed, and Prometheus metrics.
package webui

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/iamprecieee/raiku-simulator/pkg/config"
	"github.com/iamprecieee/raiku-simulator/pkg/events"
	"github.com/iamprecieee/raiku-simulator/pkg/game"
	"github.com/iamprecieee/raiku-simulator/pkg/marketplace"
	"github.com/iamprecieee/raiku-simulator/pkg/session"
	"github.com/iamprecieee/raiku-simulator/pkg/webui/handlers/api"

	_ "net/http/pprof"
)

// StartHTTPServer wires the API routes and starts listening in the
// background. The returned handler must be stopped on shutdown.
func StartHTTPServer(
	cfg *config.Config,
	svc *marketplace.Service,
	gameMgr *game.Manager,
	sessions *session.Manager,
	bus *events.Bus,
	log logrus.FieldLogger,
) *api.APIHandler {
	router := mux.NewRouter()

	apiHandler := api.NewAPIHandler(cfg, svc, gameMgr, sessions, bus, log)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.RateLimit(cfg.Server.RateLimitPerMinute))

	apiRouter.HandleFunc("/sessions", apiHandler.CreateSession).Methods(http.MethodPost)
	apiRouter.HandleFunc("/events", apiHandler.EventStream).Methods(http.MethodGet)
	apiRouter.HandleFunc("/ws", apiHandler.Websocket).Methods(http.MethodGet)

	apiRouter.HandleFunc("/marketplace/status", apiHandler.GetMarketplaceStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/marketplace/slots", apiHandler.ListSlots).Methods(http.MethodGet)
	apiRouter.HandleFunc("/marketplace/slots/{slot_number}", apiHandler.GetSlot).Methods(http.MethodGet)

	apiRouter.HandleFunc("/auctions/jit", apiHandler.ListJitAuctions).Methods(http.MethodGet)
	apiRouter.HandleFunc("/auctions/aot", apiHandler.ListAotAuctions).Methods(http.MethodGet)

	apiRouter.HandleFunc("/transactions/jit", apiHandler.SubmitJitTransaction).Methods(http.MethodPost)
	apiRouter.HandleFunc("/transactions/aot", apiHandler.SubmitAotTransaction).Methods(http.MethodPost)
	apiRouter.HandleFunc("/transactions", apiHandler.ListTransactions).Methods(http.MethodGet)
	apiRouter.HandleFunc("/transactions/{transaction_id}", apiHandler.GetTransaction).Methods(http.MethodGet)

	apiRouter.HandleFunc("/game/player_stats", apiHandler.GetPlayerStats).Methods(http.MethodGet)
	apiRouter.HandleFunc("/game/leaderboard", apiHandler.GetLeaderboard).Methods(http.MethodGet)

	apiRouter.HandleFunc("/health", apiHandler.GetHealth).Methods(http.MethodGet)

	// metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/healthz", apiHandler.GetHealth).Methods(http.MethodGet)

	if cfg.Pprof {
		// add pprof handler
		router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	}

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseHandler(router)

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		IdleTimeout: 120 * time.Second,
		Handler:     n,
	}

	log.WithField("addr", srv.Addr).Info("HTTP server listening")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Error serving API")
		}
	}()

	return apiHandler
}
