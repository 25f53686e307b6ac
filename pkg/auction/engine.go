package auction

import (
	"fmt"
	"sync"
	"time"
)

// Resolution is the outcome of one resolved AOT auction. Refunds aggregates
// losing bid amounts per bidder; a bidder with several losing entries
// appears once with the sum.
type Resolution struct {
	SlotNumber uint64
	Winner     string
	WinningBid float64
	HasWinner  bool
	Refunds    map[string]float64
}

// Engine owns all open auctions, keyed by slot number. The JIT and AOT maps
// are guarded together by one writer lock; bid acceptance is the
// serialization point for concurrent bidders, so the second of two racing
// bids always observes the first's applied state.
type Engine struct {
	mu  sync.RWMutex
	jit map[uint64]*JitAuction
	aot map[uint64]*AotAuction
}

// NewEngine creates an engine with no open auctions.
func NewEngine() *Engine {
	return &Engine{
		jit: make(map[uint64]*JitAuction),
		aot: make(map[uint64]*AotAuction),
	}
}

// StartJit opens a JIT auction for the slot.
func (e *Engine) StartJit(slotNumber uint64, baseFee, premiumMultiplier float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.jit[slotNumber]; ok {
		return fmt.Errorf("%w: jit slot %d", ErrAuctionExists, slotNumber)
	}

	e.jit[slotNumber] = NewJitAuction(slotNumber, baseFee, premiumMultiplier)

	return nil
}

// StartAot opens an AOT auction for the slot.
func (e *Engine) StartAot(slotNumber uint64, baseFee float64, duration time.Duration, minIncrement float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.aot[slotNumber]; ok {
		return fmt.Errorf("%w: aot slot %d", ErrAuctionExists, slotNumber)
	}

	e.aot[slotNumber] = NewAotAuction(slotNumber, baseFee, duration, minIncrement)

	return nil
}

// HasJit reports whether a JIT auction is open for the slot.
func (e *Engine) HasJit(slotNumber uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.jit[slotNumber]

	return ok
}

// HasAot reports whether an AOT auction is open for the slot.
func (e *Engine) HasAot(slotNumber uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.aot[slotNumber]

	return ok
}

// SubmitJitBid records a JIT bid against the open auction for the slot.
func (e *Engine) SubmitJitBid(slotNumber uint64, bidderID string, amount float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, ok := e.jit[slotNumber]
	if !ok {
		return fmt.Errorf("%w: jit slot %d", ErrNoAuction, slotNumber)
	}

	return auction.SubmitBid(bidderID, amount)
}

// SubmitAotBid appends an AOT bid to the open auction for the slot.
func (e *Engine) SubmitAotBid(slotNumber uint64, bidderID string, amount float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, ok := e.aot[slotNumber]
	if !ok {
		return fmt.Errorf("%w: aot slot %d", ErrNoAuction, slotNumber)
	}

	return auction.SubmitBid(bidderID, amount)
}

// AotEndsAt returns the deadline of the open AOT auction for the slot.
func (e *Engine) AotEndsAt(slotNumber uint64) (time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	auction, ok := e.aot[slotNumber]
	if !ok {
		return time.Time{}, false
	}

	return auction.EndsAt, true
}

// ResolveJit removes the JIT auction for the slot unconditionally and
// returns its winner, if any. Called exactly once per slot, at the tick
// when the slot becomes current.
func (e *Engine) ResolveJit(slotNumber uint64) (winner string, amount float64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, exists := e.jit[slotNumber]
	if !exists {
		return "", 0, false
	}

	delete(e.jit, slotNumber)

	return auction.Winner()
}

// ResolveReadyAot removes and resolves every AOT auction whose deadline has
// passed or whose slot has arrived. Auctions with zero bids resolve with
// HasWinner false and no refunds.
func (e *Engine) ResolveReadyAot(currentSlot uint64) []Resolution {
	e.mu.Lock()
	defer e.mu.Unlock()

	var resolved []Resolution

	for slotNumber, auction := range e.aot {
		if !auction.ShouldResolve(currentSlot) {
			continue
		}

		delete(e.aot, slotNumber)

		res := Resolution{SlotNumber: slotNumber}

		if highest, ok := auction.HighestBid(); ok {
			res.Winner = highest.BidderID
			res.WinningBid = highest.Amount
			res.HasWinner = true
			res.Refunds = make(map[string]float64)

			for _, bid := range auction.LosingBids() {
				res.Refunds[bid.BidderID] += bid.Amount
			}
		}

		resolved = append(resolved, res)
	}

	return resolved
}

// ActiveJit returns copies of all open JIT auctions.
func (e *Engine) ActiveJit() []JitAuction {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]JitAuction, 0, len(e.jit))
	for _, a := range e.jit {
		out = append(out, *a)
	}

	return out
}

// ActiveAot returns copies of all open AOT auctions.
func (e *Engine) ActiveAot() []AotAuction {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]AotAuction, 0, len(e.aot))
	for _, a := range e.aot {
		copied := *a
		copied.Bids = append([]Bid(nil), a.Bids...)
		out = append(out, copied)
	}

	return out
}

// Counts returns the number of open JIT and AOT auctions.
func (e *Engine) Counts() (jit, aot int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.jit), len(e.aot)
}
