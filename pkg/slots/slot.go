// Package slots implements the rolling slot window of the marketplace.
package slots

import (
	"time"

	"github.com/iamprecieee/raiku-simulator/pkg/auction"
)

// Phase is the lifecycle phase of a slot. The phases are mutually
// exclusive: exactly one of the optional detail structs on State is set
// for the auction/reserved/filled phases.
type Phase string

const (
	PhaseAvailable  Phase = "available"
	PhaseJitAuction Phase = "jit_auction"
	PhaseAotAuction Phase = "aot_auction"
	PhaseReserved   Phase = "reserved"
	PhaseFilled     Phase = "filled"
	PhaseExpired    Phase = "expired"
)

// JitAuctionState mirrors the current standing of an open JIT auction.
type JitAuctionState struct {
	CurrentBid float64 `json:"current_bid"`
	Bidder     string  `json:"bidder"`
}

// AotAuctionState mirrors the current standing of an open AOT auction.
type AotAuctionState struct {
	HighestBid    float64    `json:"highest_bid"`
	HighestBidder string     `json:"highest_bidder"`
	Bids          []AotEntry `json:"bids"`
	EndsAt        time.Time  `json:"ends_at"`
}

// AotEntry is one recorded bid in the mirrored AOT standing.
type AotEntry struct {
	Bidder string  `json:"bidder"`
	Amount float64 `json:"amount"`
}

// ReservedState records the auction outcome for a won slot.
type ReservedState struct {
	Winner      string       `json:"winner"`
	WinningBid  float64      `json:"winning_bid"`
	AuctionKind auction.Kind `json:"auction_kind"`
}

// FilledState records the executed transaction for a filled slot.
type FilledState struct {
	Winner        string    `json:"winner"`
	TransactionID string    `json:"transaction_id"`
	ExecutedAt    time.Time `json:"executed_at"`
}

// State is the closed variant describing what is happening to a slot.
type State struct {
	Phase    Phase            `json:"phase"`
	Jit      *JitAuctionState `json:"jit_auction,omitempty"`
	Aot      *AotAuctionState `json:"aot_auction,omitempty"`
	Reserved *ReservedState   `json:"reserved,omitempty"`
	Filled   *FilledState     `json:"filled,omitempty"`
}

// Available returns the initial slot state.
func Available() State {
	return State{Phase: PhaseAvailable}
}

// Slot is one discrete unit of future capacity.
type Slot struct {
	SlotNumber            uint64    `json:"slot_number"`
	State                 State     `json:"state"`
	EstimatedTime         time.Time `json:"estimated_time"`
	BaseFee               float64   `json:"base_fee"`
	ComputeUnitsAvailable uint64    `json:"compute_units_available"`
	ComputeUnitsUsed      uint64    `json:"compute_units_used"`
	CreatedAt             time.Time `json:"created_at"`
}

// IsAvailable reports whether the slot has no auction, reservation or fill.
func (s *Slot) IsAvailable() bool {
	return s.State.Phase == PhaseAvailable
}

// IsDue reports whether the slot's estimated time has passed.
func (s *Slot) IsDue(now time.Time) bool {
	return s.EstimatedTime.Before(now)
}

func (s *Slot) reserve(winner string, winningBid float64, kind auction.Kind) {
	s.State = State{
		Phase: PhaseReserved,
		Reserved: &ReservedState{
			Winner:      winner,
			WinningBid:  winningBid,
			AuctionKind: kind,
		},
	}
}

func (s *Slot) fill(winner, transactionID string, computeUnits uint64, now time.Time) {
	s.ComputeUnitsUsed += computeUnits
	s.State = State{
		Phase: PhaseFilled,
		Filled: &FilledState{
			Winner:        winner,
			TransactionID: transactionID,
			ExecutedAt:    now,
		},
	}
}
