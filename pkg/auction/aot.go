package auction

import (
	"fmt"
	"time"
)

// Bid is one recorded entry in an AOT auction's append-only bid log.
// A bidder may appear multiple times.
type Bid struct {
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// AotAuction is a time-boxed auction for a future slot. Bids are appended,
// never overwritten; the full history is retained for refund accounting.
type AotAuction struct {
	SlotNumber uint64    `json:"slot_number"`
	MinBid     float64   `json:"min_bid"`
	Bids       []Bid     `json:"bids"`
	EndsAt     time.Time `json:"ends_at"`
	CreatedAt  time.Time `json:"created_at"`

	// MinIncrement is the amount a new bid must exceed the current
	// highest bid by.
	MinIncrement float64 `json:"min_increment"`
}

// NewAotAuction creates an AOT auction closing after the given duration.
func NewAotAuction(slotNumber uint64, baseFee float64, duration time.Duration, minIncrement float64) *AotAuction {
	now := time.Now()

	return &AotAuction{
		SlotNumber:   slotNumber,
		MinBid:       baseFee,
		EndsAt:       now.Add(duration),
		CreatedAt:    now,
		MinIncrement: minIncrement,
	}
}

// SubmitBid appends a bid if the auction is still open and the amount
// clears the minimum next bid.
func (a *AotAuction) SubmitBid(bidderID string, amount float64) error {
	if a.HasEnded() {
		return fmt.Errorf("%w: slot %d closed at %s",
			ErrAuctionEnded, a.SlotNumber, a.EndsAt.UTC().Format("15:04:05 UTC"))
	}

	if minRequired := a.MinNextBid(); amount < minRequired {
		return fmt.Errorf("%w: minimum %.4f, provided %.4f", ErrBidTooLow, minRequired, amount)
	}

	a.Bids = append(a.Bids, Bid{
		BidderID:  bidderID,
		Amount:    amount,
		Timestamp: time.Now(),
	})

	return nil
}

// MinNextBid returns the smallest amount the next bid must reach.
func (a *AotAuction) MinNextBid() float64 {
	if highest, ok := a.HighestBid(); ok {
		return highest.Amount + a.MinIncrement
	}

	return a.MinBid
}

// HighestBid returns the current winning entry. Ties are broken by
// recording order: the scan uses a strict comparison, so the earliest
// entry at the maximum amount wins.
func (a *AotAuction) HighestBid() (Bid, bool) {
	if len(a.Bids) == 0 {
		return Bid{}, false
	}

	highest := a.Bids[0]
	for _, bid := range a.Bids[1:] {
		if bid.Amount > highest.Amount {
			highest = bid
		}
	}

	return highest, true
}

// HasEnded reports whether the bidding deadline has passed.
func (a *AotAuction) HasEnded() bool {
	return time.Now().After(a.EndsAt)
}

// ShouldResolve reports whether the auction is due: its deadline passed or
// its slot has arrived.
func (a *AotAuction) ShouldResolve(currentSlot uint64) bool {
	return a.HasEnded() || a.SlotNumber <= currentSlot
}

// LosingBids returns every bid entry that does not belong to the winning
// bidder. With no bids the result is empty. A winner's own superseded
// entries are excluded here; the transaction ledger settles those.
func (a *AotAuction) LosingBids() []Bid {
	winner, ok := a.HighestBid()
	if !ok {
		return nil
	}

	losers := make([]Bid, 0, len(a.Bids))

	for _, bid := range a.Bids {
		if bid.BidderID != winner.BidderID {
			losers = append(losers, bid)
		}
	}

	return losers
}
