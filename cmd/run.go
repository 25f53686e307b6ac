package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iamprecieee/raiku-simulator/pkg/events"
	"github.com/iamprecieee/raiku-simulator/pkg/game"
	"github.com/iamprecieee/raiku-simulator/pkg/marketplace"
	"github.com/iamprecieee/raiku-simulator/pkg/session"
	"github.com/iamprecieee/raiku-simulator/pkg/webui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the simulator",
	Long: `Starts the marketplace tick loop, the session manager, and the
HTTP API.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		logger.Info("Starting Raiku Simulator")

		bus := events.NewBus()
		gameMgr := game.NewManager(cfg.Game.InitialBalance, logger)
		sessions := session.NewManager(cfg.Session.TTL(), logger)

		svc := marketplace.NewService(cfg, bus, gameMgr, sessions, logger)
		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer svc.Stop()

		sessions.Start(ctx, cfg.Session.CleanupInterval())
		defer sessions.Stop()

		apiHandler := webui.StartHTTPServer(cfg, svc, gameMgr, sessions, bus, logger)
		defer apiHandler.Stop()

		logger.WithFields(logrus.Fields{
			"host":          cfg.Server.Host,
			"port":          cfg.Server.Port,
			"slot_duration": cfg.Marketplace.SlotDuration(),
			"base_fee":      cfg.Marketplace.BaseFee,
		}).Info("Raiku Simulator running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Info("Received shutdown signal")
		case <-ctx.Done():
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
