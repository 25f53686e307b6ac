// Package marketplace coordinates the slot window, the auction engine, the
// player economy, and the transaction ledger behind one service. The tick
// loop is the only writer that advances the window and resolves auctions;
// bid submissions run concurrently and serialize on the engine lock.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iamprecieee/raiku-simulator/pkg/auction"
	"github.com/iamprecieee/raiku-simulator/pkg/config"
	"github.com/iamprecieee/raiku-simulator/pkg/events"
	"github.com/iamprecieee/raiku-simulator/pkg/game"
	"github.com/iamprecieee/raiku-simulator/pkg/session"
	"github.com/iamprecieee/raiku-simulator/pkg/slots"
)

// jitFillComputeUnits is charged against a slot when a JIT winner's
// transaction executes.
const jitFillComputeUnits = 200_000

var (
	// ErrUnknownSession rejects submissions without a live session.
	ErrUnknownSession = errors.New("unknown or expired session")

	// ErrSlotInPast rejects AOT bids targeting the current slot or earlier.
	ErrSlotInPast = errors.New("target slot is not in the future")

	// ErrSlotOutOfWindow rejects AOT bids beyond the rolling window.
	ErrSlotOutOfWindow = errors.New("target slot is beyond the window")

	// ErrComputeUnitsExceeded rejects transactions requesting more compute
	// units than one slot holds.
	ErrComputeUnitsExceeded = errors.New("compute units exceed slot capacity")
)

// Service is the marketplace coordinator.
type Service struct {
	cfg      *config.Config
	window   *slots.Window
	engine   *auction.Engine
	bus      *events.Bus
	game     *game.Manager
	sessions *session.Manager
	ledger   *Ledger
	log      logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a marketplace service with a fresh window, engine, and
// ledger. Expired sessions drop their player stats and transactions.
func NewService(
	cfg *config.Config,
	bus *events.Bus,
	gameMgr *game.Manager,
	sessions *session.Manager,
	log logrus.FieldLogger,
) *Service {
	s := &Service{
		cfg: cfg,
		window: slots.NewWindow(slots.WindowOptions{
			SlotDuration: cfg.Marketplace.SlotDuration(),
			Size:         cfg.Marketplace.WindowSize,
			BaseFee:      cfg.Marketplace.BaseFee,
			ComputeUnits: cfg.Marketplace.ComputeUnitsPerSlot,
		}),
		engine:   auction.NewEngine(),
		bus:      bus,
		game:     gameMgr,
		sessions: sessions,
		ledger:   NewLedger(),
		log:      log.WithField("component", "marketplace"),
	}

	sessions.OnExpired(func(ids []string) {
		gameMgr.RemovePlayers(ids)
		s.ledger.RemoveSenders(ids)
	})

	return s
}

// Start launches the tick loop.
func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)

	go s.run()

	s.log.WithFields(logrus.Fields{
		"slot_duration": s.cfg.Marketplace.SlotDuration(),
		"window_size":   s.cfg.Marketplace.WindowSize,
		"base_fee":      s.cfg.Marketplace.BaseFee,
	}).Info("Marketplace service started")

	return nil
}

// Stop terminates the tick loop and waits for it to drain.
func (s *Service) Stop() {
	s.log.Info("Stopping marketplace service")

	if s.cancel != nil {
		s.cancel()
	}

	s.wg.Wait()

	s.log.Info("Marketplace service stopped")
}

// run is the main tick loop.
func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Marketplace.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances the current slot by one and resolves every auction that
// became due. Safe to call directly; the background loop is just a caller.
func (s *Service) Tick() {
	current := s.window.Advance()
	metricCurrentSlot.Set(float64(current))

	s.bus.Publish(events.TypeSlotAdvanced, &events.SlotAdvanced{CurrentSlot: current})

	if winner, bid, ok := s.engine.ResolveJit(current); ok {
		s.settleJitWin(current, winner, bid)
	}

	for _, res := range s.engine.ResolveReadyAot(current) {
		s.settleAot(res)
	}

	s.publishSnapshot(current)

	if current%10 == 0 {
		s.log.WithField("slot", current).Info("Current slot")
	}
}

// settleJitWin reserves and fills the slot for the JIT winner and settles
// the winner's ledger entries and balance.
func (s *Service) settleJitWin(slot uint64, winner string, bid float64) {
	s.log.WithFields(logrus.Fields{
		"slot":   slot,
		"winner": shortID(winner),
		"bid":    bid,
	}).Info("JIT auction resolved")

	s.window.Reserve(slot, winner, bid, auction.KindJit)
	s.window.Fill(slot, winner, fmt.Sprintf("transaction_%d", slot), jitFillComputeUnits)

	metricAuctionsResolved.WithLabelValues(string(auction.KindJit)).Inc()

	s.settleWinner(winner, auction.KindJit, slot, bid)

	// Bidders the winner displaced get their escrow back.
	reason := fmt.Sprintf("lost auction for slot %d", slot)
	updated, refunds := s.ledger.failOutbid(winner, auction.KindJit, slot, reason)

	for sender, refund := range refunds {
		s.game.ProcessLoss(sender, slot, refund)
	}

	for _, tx := range updated {
		s.bus.Publish(events.TypeTransactionUpdated, &events.TransactionUpdated{Transaction: tx})
	}

	s.bus.Publish(events.TypeJitAuctionResolved, &events.JitAuctionResolved{
		SlotNumber: slot,
		Winner:     winner,
		WinningBid: bid,
	})
}

// settleAot reserves the slot for the AOT winner, settles the winner, then
// refunds and fails every losing bidder.
func (s *Service) settleAot(res auction.Resolution) {
	metricAuctionsResolved.WithLabelValues(string(auction.KindAot)).Inc()

	if !res.HasWinner {
		s.log.WithField("slot", res.SlotNumber).Debug("AOT auction resolved with no bids")

		return
	}

	s.log.WithFields(logrus.Fields{
		"slot":   res.SlotNumber,
		"winner": shortID(res.Winner),
		"bid":    res.WinningBid,
		"losers": len(res.Refunds),
	}).Info("AOT auction resolved")

	s.window.Reserve(res.SlotNumber, res.Winner, res.WinningBid, auction.KindAot)

	s.settleWinner(res.Winner, auction.KindAot, res.SlotNumber, res.WinningBid)

	for bidder, refund := range res.Refunds {
		s.game.ProcessLoss(bidder, res.SlotNumber, refund)

		reason := fmt.Sprintf("lost auction for slot %d", res.SlotNumber)
		for _, tx := range s.ledger.failPending(bidder, auction.KindAot, res.SlotNumber, reason) {
			s.bus.Publish(events.TypeTransactionUpdated, &events.TransactionUpdated{Transaction: tx})
		}
	}

	s.bus.Publish(events.TypeAotAuctionResolved, &events.AotAuctionResolved{
		SlotNumber: res.SlotNumber,
		Winner:     res.Winner,
		WinningBid: res.WinningBid,
		Refunds:    res.Refunds,
	})
}

// settleWinner applies the win to the player economy and the ledger. A
// winner who raised their own bid gets the superseded amounts back.
func (s *Service) settleWinner(winner string, kind auction.Kind, slot uint64, bid float64) {
	updated, superseded := s.ledger.settleWinner(winner, kind, slot, bid)
	if superseded > 0 {
		s.game.RefundBid(winner, superseded)
	}

	s.game.ProcessWin(winner, slot, kind)

	for _, tx := range updated {
		s.bus.Publish(events.TypeTransactionUpdated, &events.TransactionUpdated{Transaction: tx})
	}
}

// publishSnapshot emits the display-window state and aggregate stats.
func (s *Service) publishSnapshot(current uint64) {
	s.bus.Publish(events.TypeSlotsUpdated, &events.SlotsUpdated{
		CurrentSlot: current,
		Slots:       s.window.Snapshot(current, s.cfg.Marketplace.DisplayDepth),
	})

	jit, aot := s.engine.Counts()

	s.bus.Publish(events.TypeMarketplaceStats, &events.MarketplaceStats{
		CurrentSlot:       current,
		ActiveJitAuctions: jit,
		ActiveAotAuctions: aot,
		TotalTransactions: s.ledger.Len(),
	})

	metricActiveSessions.Set(float64(s.sessions.Count()))
}

// SubmitJitTransaction places a bid on the next slot's JIT auction, opening
// the auction if needed. The bid amount is escrowed up front and returned
// when the bid is rejected.
func (s *Service) SubmitJitTransaction(sessionID string, amount float64, computeUnits uint64, data string) (Transaction, error) {
	if !s.sessions.Validate(sessionID) {
		return Transaction{}, ErrUnknownSession
	}

	if computeUnits > s.cfg.Marketplace.ComputeUnitsPerSlot {
		return Transaction{}, fmt.Errorf("%w: maximum %d, requested %d",
			ErrComputeUnitsExceeded, s.cfg.Marketplace.ComputeUnitsPerSlot, computeUnits)
	}

	target := s.window.CurrentSlot() + 1

	if !s.engine.HasJit(target) {
		if err := s.engine.StartJit(target, s.cfg.Marketplace.BaseFee, s.cfg.Auction.JitPremiumMultiplier); err == nil {
			s.bus.Publish(events.TypeJitAuctionStarted, &events.JitAuctionStarted{
				SlotNumber: target,
				MinBid:     s.cfg.Marketplace.BaseFee * s.cfg.Auction.JitPremiumMultiplier,
			})
		}
	}

	if err := s.game.EscrowBid(sessionID, target, amount); err != nil {
		return Transaction{}, err
	}

	if err := s.engine.SubmitJitBid(target, sessionID, amount); err != nil {
		s.game.RefundBid(sessionID, amount)
		metricBidsRejected.WithLabelValues(string(auction.KindJit)).Inc()

		return Transaction{}, err
	}

	metricBidsAccepted.WithLabelValues(string(auction.KindJit)).Inc()
	s.window.MirrorJitBid(target, sessionID, amount)

	tx := NewTransaction(sessionID, auction.KindJit, target, amount, computeUnits, data)
	s.ledger.Add(tx)

	s.bus.Publish(events.TypeJitBidSubmitted, &events.JitBidSubmitted{
		SlotNumber: target,
		Bidder:     sessionID,
		Amount:     amount,
	})
	s.bus.Publish(events.TypeTransactionUpdated, &events.TransactionUpdated{Transaction: *tx})

	s.log.WithFields(logrus.Fields{
		"slot":   target,
		"bidder": shortID(sessionID),
		"amount": amount,
	}).Info("JIT bid accepted")

	return *tx, nil
}

// SubmitAotTransaction places a bid on a future slot's AOT auction, opening
// the auction if needed. The bid amount is escrowed up front and returned
// when the bid is rejected.
func (s *Service) SubmitAotTransaction(sessionID string, slot uint64, amount float64, computeUnits uint64, data string) (Transaction, error) {
	if !s.sessions.Validate(sessionID) {
		return Transaction{}, ErrUnknownSession
	}

	if computeUnits > s.cfg.Marketplace.ComputeUnitsPerSlot {
		return Transaction{}, fmt.Errorf("%w: maximum %d, requested %d",
			ErrComputeUnitsExceeded, s.cfg.Marketplace.ComputeUnitsPerSlot, computeUnits)
	}

	current := s.window.CurrentSlot()
	if slot <= current {
		return Transaction{}, fmt.Errorf("%w: slot %d, current %d", ErrSlotInPast, slot, current)
	}

	if slot >= current+s.cfg.Marketplace.WindowSize {
		return Transaction{}, fmt.Errorf("%w: slot %d, window ends at %d",
			ErrSlotOutOfWindow, slot, current+s.cfg.Marketplace.WindowSize)
	}

	if !s.engine.HasAot(slot) {
		if err := s.engine.StartAot(slot, s.cfg.Marketplace.BaseFee, s.cfg.Auction.AotDuration(), s.cfg.Auction.AotMinIncrement); err == nil {
			endsAt, _ := s.engine.AotEndsAt(slot)

			s.bus.Publish(events.TypeAotAuctionStarted, &events.AotAuctionStarted{
				SlotNumber: slot,
				MinBid:     s.cfg.Marketplace.BaseFee,
				EndsAt:     endsAt,
			})
		}
	}

	if err := s.game.EscrowBid(sessionID, slot, amount); err != nil {
		return Transaction{}, err
	}

	if err := s.engine.SubmitAotBid(slot, sessionID, amount); err != nil {
		s.game.RefundBid(sessionID, amount)
		metricBidsRejected.WithLabelValues(string(auction.KindAot)).Inc()

		return Transaction{}, err
	}

	metricBidsAccepted.WithLabelValues(string(auction.KindAot)).Inc()

	endsAt, _ := s.engine.AotEndsAt(slot)
	s.window.MirrorAotBid(slot, sessionID, amount, endsAt)

	tx := NewTransaction(sessionID, auction.KindAot, slot, amount, computeUnits, data)
	s.ledger.Add(tx)

	s.bus.Publish(events.TypeAotBidSubmitted, &events.AotBidSubmitted{
		SlotNumber: slot,
		Bidder:     sessionID,
		Amount:     amount,
	})
	s.bus.Publish(events.TypeTransactionUpdated, &events.TransactionUpdated{Transaction: *tx})

	s.log.WithFields(logrus.Fields{
		"slot":   slot,
		"bidder": shortID(sessionID),
		"amount": amount,
	}).Info("AOT bid accepted")

	return *tx, nil
}

// CurrentSlot returns the marketplace's current slot number.
func (s *Service) CurrentSlot() uint64 {
	return s.window.CurrentSlot()
}

// Slots returns the display-window snapshot starting at the current slot.
func (s *Service) Slots() []slots.Slot {
	return s.window.Snapshot(s.window.CurrentSlot(), s.cfg.Marketplace.DisplayDepth)
}

// Slot returns a single slot by number.
func (s *Service) Slot(slotNumber uint64) (slots.Slot, bool) {
	return s.window.Get(slotNumber)
}

// ActiveJitAuctions returns copies of all open JIT auctions.
func (s *Service) ActiveJitAuctions() []auction.JitAuction {
	return s.engine.ActiveJit()
}

// ActiveAotAuctions returns copies of all open AOT auctions.
func (s *Service) ActiveAotAuctions() []auction.AotAuction {
	return s.engine.ActiveAot()
}

// Transaction returns a transaction by id.
func (s *Service) Transaction(id string) (Transaction, bool) {
	return s.ledger.Get(id)
}

// Transactions returns a session's transactions newest first.
func (s *Service) Transactions(sessionID string, offset, limit int) ([]Transaction, int) {
	return s.ledger.BySender(sessionID, offset, limit)
}

// Stats is an aggregate snapshot of the marketplace.
type Stats struct {
	CurrentSlot       uint64 `json:"current_slot"`
	ActiveJitAuctions int    `json:"active_jit_auctions"`
	ActiveAotAuctions int    `json:"active_aot_auctions"`
	TotalTransactions int    `json:"total_transactions"`
	ActiveSessions    int    `json:"active_sessions"`
	ActivePlayers     int    `json:"active_players"`
}

// GetStats returns the current marketplace statistics.
func (s *Service) GetStats() Stats {
	jit, aot := s.engine.Counts()

	return Stats{
		CurrentSlot:       s.window.CurrentSlot(),
		ActiveJitAuctions: jit,
		ActiveAotAuctions: aot,
		TotalTransactions: s.ledger.Len(),
		ActiveSessions:    s.sessions.Count(),
		ActivePlayers:     s.game.PlayerCount(),
	}
}

// shortID truncates a session id for log readability.
func shortID(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID
	}

	return sessionID[:8]
}
