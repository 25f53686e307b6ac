package auction

import "errors"

// Sentinel errors for bid and auction lifecycle failures. All are local,
// recoverable conditions surfaced to the caller; none are fatal to the
// engine. Callers match with errors.Is.
var (
	// ErrNoAuction is returned when no auction is open for the slot.
	ErrNoAuction = errors.New("no auction for slot")

	// ErrAuctionExists is returned when an auction is already open for
	// the slot.
	ErrAuctionExists = errors.New("auction already exists for slot")

	// ErrBidTooLow is returned when a bid is below the required minimum,
	// either the auction floor or the current leader.
	ErrBidTooLow = errors.New("bid too low")

	// ErrAuctionEnded is returned for AOT bids arriving after the
	// auction deadline.
	ErrAuctionEnded = errors.New("auction has ended")
)
