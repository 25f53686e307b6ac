package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamprecieee/raiku-simulator/pkg/auction"
)

func testOptions() WindowOptions {
	return WindowOptions{
		SlotDuration: 400 * time.Millisecond,
		Size:         100,
		BaseFee:      0.001,
		ComputeUnits: 48_000_000,
	}
}

func TestNewWindow_PopulatesInitialRange(t *testing.T) {
	w := NewWindow(testOptions())

	assert.Equal(t, uint64(0), w.CurrentSlot())
	assert.Equal(t, 100, w.Len())

	for n := uint64(0); n < 100; n++ {
		slot, ok := w.Get(n)
		require.True(t, ok, "slot %d missing", n)
		assert.Equal(t, PhaseAvailable, slot.State.Phase)
		assert.Equal(t, uint64(48_000_000), slot.ComputeUnitsAvailable)
		assert.GreaterOrEqual(t, slot.BaseFee, 0.001)
		assert.Less(t, slot.BaseFee, 0.01)
	}

	_, ok := w.Get(100)
	assert.False(t, ok)
}

func TestWindow_AdvanceSlidesForward(t *testing.T) {
	w := NewWindow(testOptions())

	for i := 0; i < 100; i++ {
		w.Advance()
	}

	assert.Equal(t, uint64(100), w.CurrentSlot())

	// The forward range [100, 200) is fully materialized.
	for n := uint64(100); n < 200; n++ {
		_, ok := w.Get(n)
		require.True(t, ok, "slot %d missing", n)
	}

	// Slots behind the current slot stay resident.
	_, ok := w.Get(0)
	assert.True(t, ok)
	assert.Equal(t, 200, w.Len())
}

func TestWindow_AdvanceKeepsForwardRangeContiguous(t *testing.T) {
	w := NewWindow(testOptions())

	// The first advance must materialize slot 100, the slot that just
	// entered the trailing edge, and nothing beyond it.
	w.Advance()

	_, ok := w.Get(100)
	require.True(t, ok, "slot 100 should exist after the first advance")

	_, ok = w.Get(101)
	assert.False(t, ok)

	// After any number of advances, [current, current+Size) has no holes.
	for i := 0; i < 36; i++ {
		w.Advance()
	}

	current := w.CurrentSlot()
	require.Equal(t, uint64(37), current)

	for n := current; n < current+100; n++ {
		_, ok := w.Get(n)
		require.True(t, ok, "slot %d missing", n)
	}

	_, ok = w.Get(current + 100)
	assert.False(t, ok)
}

func TestWindow_AdvanceExpiresDueSlots(t *testing.T) {
	w := NewWindow(testOptions())

	now := time.Now()
	w.nowFn = func() time.Time { return now.Add(time.Second) }

	w.Advance()

	// Slots 0-2 had estimated times within the first second and are due.
	slot, ok := w.Get(0)
	require.True(t, ok)
	assert.Equal(t, PhaseExpired, slot.State.Phase)

	// Far-future slots stay available.
	slot, ok = w.Get(50)
	require.True(t, ok)
	assert.Equal(t, PhaseAvailable, slot.State.Phase)
}

func TestWindow_AdvanceSkipsFilledAndExpired(t *testing.T) {
	w := NewWindow(testOptions())

	w.Fill(0, "player-a", "transaction_0", 200_000)

	now := time.Now()
	w.nowFn = func() time.Time { return now.Add(time.Second) }

	w.Advance()

	slot, ok := w.Get(0)
	require.True(t, ok)
	assert.Equal(t, PhaseFilled, slot.State.Phase)
	assert.Equal(t, uint64(200_000), slot.ComputeUnitsUsed)
}

func TestWindow_StateRoundTrip(t *testing.T) {
	w := NewWindow(testOptions())

	w.MirrorJitBid(1, "player-a", 0.002)

	slot, ok := w.Get(1)
	require.True(t, ok)
	require.Equal(t, PhaseJitAuction, slot.State.Phase)
	require.NotNil(t, slot.State.Jit)
	assert.Equal(t, "player-a", slot.State.Jit.Bidder)
	assert.InDelta(t, 0.002, slot.State.Jit.CurrentBid, 1e-9)

	w.Reserve(1, "player-a", 0.002, auction.KindJit)

	slot, _ = w.Get(1)
	require.Equal(t, PhaseReserved, slot.State.Phase)
	require.NotNil(t, slot.State.Reserved)
	assert.Equal(t, auction.KindJit, slot.State.Reserved.AuctionKind)

	w.Fill(1, "player-a", "transaction_1", 200_000)

	slot, _ = w.Get(1)
	require.Equal(t, PhaseFilled, slot.State.Phase)
	require.NotNil(t, slot.State.Filled)
	assert.Equal(t, "transaction_1", slot.State.Filled.TransactionID)
	assert.Equal(t, uint64(200_000), slot.ComputeUnitsUsed)
}

func TestWindow_MirrorAotBidKeepsHistory(t *testing.T) {
	w := NewWindow(testOptions())

	endsAt := time.Now().Add(35 * time.Second)
	w.MirrorAotBid(10, "player-a", 0.01, endsAt)
	w.MirrorAotBid(10, "player-b", 0.012, endsAt)

	slot, ok := w.Get(10)
	require.True(t, ok)
	require.Equal(t, PhaseAotAuction, slot.State.Phase)
	require.NotNil(t, slot.State.Aot)
	assert.Equal(t, "player-b", slot.State.Aot.HighestBidder)
	require.Len(t, slot.State.Aot.Bids, 2)
	assert.Equal(t, "player-a", slot.State.Aot.Bids[0].Bidder)
}

func TestWindow_SnapshotOrderedAndBounded(t *testing.T) {
	w := NewWindow(testOptions())

	snap := w.Snapshot(0, 50)
	require.Len(t, snap, 50)

	for i, slot := range snap {
		assert.Equal(t, uint64(i), slot.SlotNumber)
	}

	// Requesting past the materialized edge returns only what exists.
	snap = w.Snapshot(90, 50)
	assert.Len(t, snap, 10)
}

func TestWindow_BaseFeeLazilyCreatesSlot(t *testing.T) {
	w := NewWindow(testOptions())

	fee := w.BaseFee(150)
	assert.GreaterOrEqual(t, fee, 0.001)

	_, ok := w.Get(150)
	assert.True(t, ok)
}
