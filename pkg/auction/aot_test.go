package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAotAuction_MinIncrementEnforced(t *testing.T) {
	a := NewAotAuction(50, 0.01, 30*time.Second, 0.001)

	// First bid only needs to reach the minimum.
	require.NoError(t, a.SubmitBid("player-a", 0.01))

	// 0.0105 is above the highest bid but below highest + increment.
	err := a.SubmitBid("player-b", 0.0105)
	require.ErrorIs(t, err, ErrBidTooLow)

	require.NoError(t, a.SubmitBid("player-b", 0.012))

	highest, ok := a.HighestBid()
	require.True(t, ok)
	assert.Equal(t, "player-b", highest.BidderID)
	assert.InDelta(t, 0.012, highest.Amount, 1e-9)

	losers := a.LosingBids()
	require.Len(t, losers, 1)
	assert.Equal(t, "player-a", losers[0].BidderID)
	assert.InDelta(t, 0.01, losers[0].Amount, 1e-9)
}

func TestAotAuction_RejectsAfterDeadline(t *testing.T) {
	a := NewAotAuction(50, 0.01, -time.Second, 0.001)

	err := a.SubmitBid("player-a", 0.05)
	require.ErrorIs(t, err, ErrAuctionEnded)
	assert.True(t, a.HasEnded())
}

func TestAotAuction_FirstRecordedHighestWins(t *testing.T) {
	a := NewAotAuction(50, 0.01, 30*time.Second, 0.001)

	// Equal amounts cannot occur through SubmitBid because of the
	// increment, so seed the history directly.
	a.Bids = []Bid{
		{BidderID: "player-a", Amount: 0.02},
		{BidderID: "player-b", Amount: 0.02},
	}

	highest, ok := a.HighestBid()
	require.True(t, ok)
	assert.Equal(t, "player-a", highest.BidderID)
}

func TestAotAuction_WinnerSupersededEntriesNotInLosers(t *testing.T) {
	a := NewAotAuction(50, 0.01, 30*time.Second, 0.001)

	require.NoError(t, a.SubmitBid("player-a", 0.01))
	require.NoError(t, a.SubmitBid("player-b", 0.012))
	require.NoError(t, a.SubmitBid("player-a", 0.02))

	highest, ok := a.HighestBid()
	require.True(t, ok)
	assert.Equal(t, "player-a", highest.BidderID)

	// player-a's superseded 0.01 entry belongs to the winner and is not
	// part of the loser refunds.
	losers := a.LosingBids()
	require.Len(t, losers, 1)
	assert.Equal(t, "player-b", losers[0].BidderID)
}

func TestAotAuction_ShouldResolve(t *testing.T) {
	a := NewAotAuction(50, 0.01, 30*time.Second, 0.001)

	assert.False(t, a.ShouldResolve(49))
	assert.True(t, a.ShouldResolve(50))
	assert.True(t, a.ShouldResolve(51))

	expired := NewAotAuction(90, 0.01, -time.Second, 0.001)
	assert.True(t, expired.ShouldResolve(0))
}

func TestAotAuction_NoBidsNoWinner(t *testing.T) {
	a := NewAotAuction(50, 0.01, 30*time.Second, 0.001)

	_, ok := a.HighestBid()
	assert.False(t, ok)
	assert.Empty(t, a.LosingBids())
	assert.InDelta(t, 0.01, a.MinNextBid(), 1e-9)
}
