// Package game implements the player economy: balances, experience,
// streaks, achievements and leaderboards keyed by session id.
package game

import (
	"errors"
	"fmt"
)

// ErrInsufficientBalance rejects a debit larger than the current balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// PlayerStats tracks one player's economy and progression.
type PlayerStats struct {
	SessionID                  string              `json:"session_id"`
	Balance                    float64             `json:"balance"`
	TotalSpent                 float64             `json:"total_spent"`
	TotalAuctionsParticipated  uint32              `json:"total_auctions_participated"`
	TotalAuctionsWon           uint32              `json:"total_auctions_won"`
	Level                      uint32              `json:"level"`
	CurrentStreak              uint32              `json:"current_streak"`
	BestStreak                 uint32              `json:"best_streak"`
	XP                         uint32              `json:"xp"`
	Achievements               []Achievement       `json:"achievements"`
	ParticipatedSlots          map[uint64]struct{} `json:"-"`
	ResolvedSlots              map[uint64]struct{} `json:"-"`
	JitWins                    uint32              `json:"jit_wins"`
	AotWins                    uint32              `json:"aot_wins"`
	TotalBidsPlaced            uint32              `json:"total_bids_placed"`
}

// NewPlayerStats creates stats with the given starting balance.
func NewPlayerStats(sessionID string, initialBalance float64) *PlayerStats {
	return &PlayerStats{
		SessionID:         sessionID,
		Balance:           initialBalance,
		Level:             1,
		ParticipatedSlots: make(map[uint64]struct{}),
		ResolvedSlots:     make(map[uint64]struct{}),
	}
}

// Credit adds funds to the player's balance.
func (p *PlayerStats) Credit(amount float64) {
	p.Balance += amount
}

// Debit removes funds, failing when the balance is insufficient. Spent
// totals only accumulate on success.
func (p *PlayerStats) Debit(amount float64) error {
	if p.Balance < amount {
		return fmt.Errorf("%w: have %.4f, need %.4f", ErrInsufficientBalance, p.Balance, amount)
	}

	p.Balance -= amount
	p.TotalSpent += amount

	return nil
}

// WinRate returns the player's win percentage.
func (p *PlayerStats) WinRate() float64 {
	if p.TotalAuctionsParticipated == 0 {
		return 0
	}

	return float64(p.TotalAuctionsWon) / float64(p.TotalAuctionsParticipated) * 100
}

// AddXP grants experience and applies level-ups. Each level requires
// level × 100 XP.
func (p *PlayerStats) AddXP(amount uint32) {
	p.XP += amount

	for {
		required := p.Level * 100
		if p.XP < required {
			return
		}

		p.XP -= required
		p.Level++
	}
}

// TrackBid records auction participation for a slot.
func (p *PlayerStats) TrackBid(slotNumber uint64) {
	p.ParticipatedSlots[slotNumber] = struct{}{}
	p.TotalBidsPlaced++
}

// MarkAuctionResolved counts the auction as participated-in exactly once
// per slot, when a slot the player bid on resolves.
func (p *PlayerStats) MarkAuctionResolved(slotNumber uint64) {
	if _, bid := p.ParticipatedSlots[slotNumber]; !bid {
		return
	}

	if _, seen := p.ResolvedSlots[slotNumber]; seen {
		return
	}

	p.ResolvedSlots[slotNumber] = struct{}{}
	p.TotalAuctionsParticipated++
}

func (p *PlayerStats) hasAchievement(kind AchievementType) bool {
	for _, a := range p.Achievements {
		if a.Type == kind {
			return true
		}
	}

	return false
}
