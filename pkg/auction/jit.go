// Package auction implements the JIT and AOT auction state machines and the
// engine that owns all open auctions keyed by slot number.
package auction

import (
	"fmt"
	"time"
)

// Kind distinguishes the two auction policies.
type Kind string

const (
	// KindJit is a single-round auction for the next slot, resolved the
	// moment that slot becomes current.
	KindJit Kind = "jit"

	// KindAot is a time-boxed multi-bid auction for a future slot,
	// resolved at its deadline or at slot arrival, whichever comes first.
	KindAot Kind = "aot"
)

// JitAuction is a single-round, highest-bid-wins auction. Each accepted bid
// must strictly exceed the previous one, so the recorded winner is always
// the maximum bid seen so far.
type JitAuction struct {
	SlotNumber    uint64    `json:"slot_number"`
	MinBid        float64   `json:"min_bid"`
	WinningBidder string    `json:"winning_bidder,omitempty"`
	WinningAmount float64   `json:"winning_amount,omitempty"`
	HasWinner     bool      `json:"has_winner"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewJitAuction creates a JIT auction with min bid = base fee × premium.
func NewJitAuction(slotNumber uint64, baseFee, premiumMultiplier float64) *JitAuction {
	return &JitAuction{
		SlotNumber: slotNumber,
		MinBid:     baseFee * premiumMultiplier,
		CreatedAt:  time.Now(),
	}
}

// SubmitBid records the bidder as the new leader if the amount clears the
// floor (first bid) or strictly exceeds the current leader (later bids).
func (a *JitAuction) SubmitBid(bidderID string, amount float64) error {
	if amount < a.MinBid {
		return fmt.Errorf("%w: minimum %.4f, provided %.4f", ErrBidTooLow, a.MinBid, amount)
	}

	if a.HasWinner && amount <= a.WinningAmount {
		return fmt.Errorf("%w: must exceed current highest bid of %.4f", ErrBidTooLow, a.WinningAmount)
	}

	a.WinningBidder = bidderID
	a.WinningAmount = amount
	a.HasWinner = true

	return nil
}

// Winner returns the current leader, if any.
func (a *JitAuction) Winner() (string, float64, bool) {
	return a.WinningBidder, a.WinningAmount, a.HasWinner
}
