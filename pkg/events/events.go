// Package events defines the typed marketplace event stream.
//
// Every observable state transition in the marketplace publishes exactly one
// event here, after the mutation is applied. Subscribers therefore see a
// consistent ordered log of the simulation without touching shared state.
package events

import (
	"time"

	"github.com/iamprecieee/raiku-simulator/pkg/utils"
)

// Type identifies the kind of event being streamed.
type Type string

const (
	TypeSlotAdvanced       Type = "slot_advanced"
	TypeSlotsUpdated       Type = "slots_updated"
	TypeJitAuctionStarted  Type = "jit_auction_started"
	TypeAotAuctionStarted  Type = "aot_auction_started"
	TypeJitBidSubmitted    Type = "jit_bid_submitted"
	TypeAotBidSubmitted    Type = "aot_bid_submitted"
	TypeJitAuctionResolved Type = "jit_auction_resolved"
	TypeAotAuctionResolved Type = "aot_auction_resolved"
	TypeTransactionUpdated Type = "transaction_updated"
	TypeMarketplaceStats   Type = "marketplace_stats"
)

// Event is the envelope for all marketplace events.
type Event struct {
	Type      Type  `json:"type"`
	Timestamp int64 `json:"timestamp"`
	Data      any   `json:"data"`
}

// SlotAdvanced is published on every tick after the current slot moves.
type SlotAdvanced struct {
	CurrentSlot uint64 `json:"current_slot"`
}

// SlotsUpdated carries a display-window snapshot after an advance.
type SlotsUpdated struct {
	CurrentSlot uint64 `json:"current_slot"`
	Slots       any    `json:"slots"`
}

// JitAuctionStarted is published when a JIT auction opens.
type JitAuctionStarted struct {
	SlotNumber uint64  `json:"slot_number"`
	MinBid     float64 `json:"min_bid"`
}

// AotAuctionStarted is published when an AOT auction opens.
type AotAuctionStarted struct {
	SlotNumber uint64    `json:"slot_number"`
	MinBid     float64   `json:"min_bid"`
	EndsAt     time.Time `json:"ends_at"`
}

// JitBidSubmitted is published after a JIT bid is accepted.
type JitBidSubmitted struct {
	SlotNumber uint64  `json:"slot_number"`
	Bidder     string  `json:"bidder"`
	Amount     float64 `json:"amount"`
}

// AotBidSubmitted is published after an AOT bid is accepted.
type AotBidSubmitted struct {
	SlotNumber uint64  `json:"slot_number"`
	Bidder     string  `json:"bidder"`
	Amount     float64 `json:"amount"`
}

// JitAuctionResolved is published when a JIT auction resolves with a winner.
type JitAuctionResolved struct {
	SlotNumber uint64  `json:"slot_number"`
	Winner     string  `json:"winner"`
	WinningBid float64 `json:"winning_bid"`
}

// AotAuctionResolved is published when an AOT auction resolves with a winner.
type AotAuctionResolved struct {
	SlotNumber uint64             `json:"slot_number"`
	Winner     string             `json:"winner"`
	WinningBid float64            `json:"winning_bid"`
	Refunds    map[string]float64 `json:"refunds,omitempty"`
}

// TransactionUpdated is published whenever a transaction is created or its
// status changes.
type TransactionUpdated struct {
	Transaction any `json:"transaction"`
}

// MarketplaceStats is a periodic aggregate snapshot.
type MarketplaceStats struct {
	CurrentSlot       uint64 `json:"current_slot"`
	ActiveJitAuctions int    `json:"active_jit_auctions"`
	ActiveAotAuctions int    `json:"active_aot_auctions"`
	TotalTransactions int    `json:"total_transactions"`
}

// DefaultBacklog is the per-subscriber pending-event capacity.
const DefaultBacklog = 10_000

// Bus is the marketplace's broadcast channel. Publishing never blocks and
// never fails: a slow subscriber loses its oldest backlog instead.
type Bus struct {
	dispatcher utils.Dispatcher[*Event]
}

// NewBus creates an event bus with no subscribers.
func NewBus() *Bus {
	return &Bus{}
}

// Publish wraps data in an envelope and fans it out to all subscribers.
func (b *Bus) Publish(eventType Type, data any) {
	b.dispatcher.Fire(&Event{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	})
}

// Subscribe registers a subscriber with the default backlog capacity.
func (b *Bus) Subscribe() *utils.Subscription[*Event] {
	return b.dispatcher.Subscribe(DefaultBacklog)
}

// SubscribeWithCapacity registers a subscriber with a custom backlog.
func (b *Bus) SubscribeWithCapacity(capacity int) *utils.Subscription[*Event] {
	return b.dispatcher.Subscribe(capacity)
}

// SubscriberCount returns the number of attached subscribers.
func (b *Bus) SubscriberCount() int {
	return b.dispatcher.SubscriberCount()
}
