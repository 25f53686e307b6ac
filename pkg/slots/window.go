package slots

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/iamprecieee/raiku-simulator/pkg/auction"
)

// WindowOptions configures a rolling slot window.
type WindowOptions struct {
	// SlotDuration is the wall-clock spacing between consecutive slots'
	// estimated times.
	SlotDuration time.Duration

	// Size is the number of forward slots kept materialized ahead of the
	// current slot.
	Size uint64

	// BaseFee is the reference price; each slot gets BaseFee scaled by a
	// random factor in [1, 10).
	BaseFee float64

	// ComputeUnits is the capacity assigned to every new slot.
	ComputeUnits uint64
}

// Window owns the rolling set of slots. All methods take the window lock
// only for their own duration; callers never observe a half-updated window.
// Slots behind the current slot stay resident but are no longer reported.
type Window struct {
	mu      sync.RWMutex
	slots   map[uint64]*Slot
	current uint64
	opts    WindowOptions

	nowFn func() time.Time
}

// NewWindow creates a window with slots [0, opts.Size) in the available
// state, spaced opts.SlotDuration apart from now.
func NewWindow(opts WindowOptions) *Window {
	w := &Window{
		slots: make(map[uint64]*Slot, opts.Size),
		opts:  opts,
		nowFn: time.Now,
	}

	now := w.nowFn()
	for i := uint64(0); i < opts.Size; i++ {
		w.slots[i] = w.newSlot(i, now.Add(time.Duration(i)*opts.SlotDuration))
	}

	return w
}

func (w *Window) newSlot(slotNumber uint64, estimatedTime time.Time) *Slot {
	return &Slot{
		SlotNumber:            slotNumber,
		State:                 Available(),
		EstimatedTime:         estimatedTime,
		BaseFee:               w.randomBaseFee(),
		ComputeUnitsAvailable: w.opts.ComputeUnits,
		CreatedAt:             w.nowFn(),
	}
}

func (w *Window) randomBaseFee() float64 {
	return w.opts.BaseFee * (1 + rand.Float64()*9)
}

// CurrentSlot returns the current slot number.
func (w *Window) CurrentSlot() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.current
}

// Advance moves the current slot forward by one, expires every due slot
// that is neither filled nor already expired, and materializes the slot at
// the new trailing edge. Returns the new current slot number.
func (w *Window) Advance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.current++
	now := w.nowFn()

	for _, slot := range w.slots {
		if slot.IsDue(now) && slot.State.Phase != PhaseExpired && slot.State.Phase != PhaseFilled {
			slot.State = State{Phase: PhaseExpired}
		}
	}

	// The slot entering the trailing edge keeps [current, current+Size)
	// fully resident.
	edge := w.current + w.opts.Size - 1
	if _, ok := w.slots[edge]; !ok {
		w.slots[edge] = w.newSlot(edge, now.Add(time.Duration(w.opts.Size-1)*w.opts.SlotDuration))
	}

	return w.current
}

// Snapshot returns copies of the slots in [from, from+depth), ordered by
// slot number. Missing slots are skipped; slots behind the requested range
// are never included even if still resident.
func (w *Window) Snapshot(from, depth uint64) []Slot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Slot, 0, depth)

	// Ascending iteration keeps the snapshot ordered by slot number.
	for n := from; n < from+depth; n++ {
		if slot, ok := w.slots[n]; ok {
			out = append(out, *slot)
		}
	}

	return out
}

// Get returns a copy of a single slot.
func (w *Window) Get(slotNumber uint64) (Slot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	slot, ok := w.slots[slotNumber]
	if !ok {
		return Slot{}, false
	}

	return *slot, true
}

// Len returns the number of resident slots, including ones behind the
// current slot.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.slots)
}

// BaseFee returns the base fee of a slot, lazily creating the slot with
// defaults if it is missing. The window self-heals rather than erroring.
func (w *Window) BaseFee(slotNumber uint64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.ensureSlot(slotNumber).BaseFee
}

// MirrorJitBid reflects an accepted JIT bid onto the slot state.
func (w *Window) MirrorJitBid(slotNumber uint64, bidder string, amount float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	slot := w.ensureSlot(slotNumber)
	slot.State = State{
		Phase: PhaseJitAuction,
		Jit: &JitAuctionState{
			CurrentBid: amount,
			Bidder:     bidder,
		},
	}
}

// MirrorAotBid reflects an accepted AOT bid onto the slot state, appending
// to the mirrored bid history.
func (w *Window) MirrorAotBid(slotNumber uint64, bidder string, amount float64, endsAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	slot := w.ensureSlot(slotNumber)

	var bids []AotEntry
	if slot.State.Phase == PhaseAotAuction && slot.State.Aot != nil {
		bids = slot.State.Aot.Bids
	}

	slot.State = State{
		Phase: PhaseAotAuction,
		Aot: &AotAuctionState{
			HighestBid:    amount,
			HighestBidder: bidder,
			Bids:          append(bids, AotEntry{Bidder: bidder, Amount: amount}),
			EndsAt:        endsAt,
		},
	}
}

// Reserve marks a slot as won by an auction winner.
func (w *Window) Reserve(slotNumber uint64, winner string, winningBid float64, kind auction.Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ensureSlot(slotNumber).reserve(winner, winningBid, kind)
}

// Fill marks a slot as executed and accounts the compute units it used.
func (w *Window) Fill(slotNumber uint64, winner, transactionID string, computeUnits uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ensureSlot(slotNumber).fill(winner, transactionID, computeUnits, w.nowFn())
}

// ensureSlot returns the slot, creating it with defaults when missing.
// Callers must hold the write lock.
func (w *Window) ensureSlot(slotNumber uint64) *Slot {
	slot, ok := w.slots[slotNumber]
	if !ok {
		offset := int64(slotNumber) - int64(w.current)
		slot = w.newSlot(slotNumber, w.nowFn().Add(time.Duration(offset)*w.opts.SlotDuration))
		w.slots[slotNumber] = slot
	}

	return slot
}
