package game

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iamprecieee/raiku-simulator/pkg/auction"
)

// Manager owns all player stats. It is the settlement collaborator of the
// marketplace: bids are escrowed here at submission time and refunds are
// credited back when auctions resolve.
type Manager struct {
	mu             sync.Mutex
	players        map[string]*PlayerStats
	initialBalance float64
	log            logrus.FieldLogger
}

// NewManager creates an empty player registry.
func NewManager(initialBalance float64, log logrus.FieldLogger) *Manager {
	return &Manager{
		players:        make(map[string]*PlayerStats),
		initialBalance: initialBalance,
		log:            log.WithField("component", "game"),
	}
}

// GetOrCreate returns a copy of the player's stats, creating the player
// with the initial balance on first use.
func (m *Manager) GetOrCreate(sessionID string) PlayerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return *m.getOrCreate(sessionID)
}

func (m *Manager) getOrCreate(sessionID string) *PlayerStats {
	player, ok := m.players[sessionID]
	if !ok {
		player = NewPlayerStats(sessionID, m.initialBalance)
		m.players[sessionID] = player
	}

	return player
}

// EscrowBid deducts the bid amount from the player's balance and records
// participation. The marketplace calls this before accepting a bid, so an
// accepted bid is always already funded.
func (m *Manager) EscrowBid(sessionID string, slotNumber uint64, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	player := m.getOrCreate(sessionID)
	if err := player.Debit(amount); err != nil {
		return fmt.Errorf("escrow failed: %w", err)
	}

	player.TrackBid(slotNumber)

	return nil
}

// RefundBid returns an escrowed amount after a rejected bid.
func (m *Manager) RefundBid(sessionID string, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getOrCreate(sessionID).Credit(amount)
}

// ProcessWin settles an auction win: streaks, XP, the per-kind win counter
// and any newly unlocked achievements.
func (m *Manager) ProcessWin(sessionID string, slotNumber uint64, kind auction.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, ok := m.players[sessionID]
	if !ok {
		return
	}

	player.MarkAuctionResolved(slotNumber)
	player.TotalAuctionsWon++
	player.CurrentStreak++

	if player.CurrentStreak > player.BestStreak {
		player.BestStreak = player.CurrentStreak
	}

	switch kind {
	case auction.KindJit:
		player.JitWins++
	case auction.KindAot:
		player.AotWins++
	}

	player.AddXP(5 + uint32(rand.IntN(15)))
	m.checkAchievements(player)

	m.log.WithFields(logrus.Fields{
		"player":  shortID(sessionID),
		"slot":    slotNumber,
		"level":   player.Level,
		"wins":    player.TotalAuctionsWon,
		"balance": fmt.Sprintf("%.3f", player.Balance),
	}).Info("Player won auction")
}

// ProcessLoss settles an auction loss: the refund is credited back and the
// player's streak resets.
func (m *Manager) ProcessLoss(sessionID string, slotNumber uint64, refund float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, ok := m.players[sessionID]
	if !ok {
		return
	}

	player.MarkAuctionResolved(slotNumber)
	player.Credit(refund)
	player.CurrentStreak = 0

	if refund > 0 {
		m.log.WithFields(logrus.Fields{
			"player": shortID(sessionID),
			"slot":   slotNumber,
			"refund": fmt.Sprintf("%.4f", refund),
		}).Info("Refunded losing bids")
	}
}

func (m *Manager) checkAchievements(player *PlayerStats) {
	var unlocked []Achievement

	if player.TotalAuctionsWon == 1 && !player.hasAchievement(AchievementFirstWin) {
		unlocked = append(unlocked, firstWin())
	}

	if player.TotalSpent >= 10 && !player.hasAchievement(AchievementBigSpender) {
		unlocked = append(unlocked, bigSpender())
	}

	if player.CurrentStreak >= 20 && !player.hasAchievement(AchievementWinningStreak) {
		unlocked = append(unlocked, winningStreak())
	}

	for _, achievement := range unlocked {
		player.AddXP(achievement.RewardXP)
		player.Achievements = append(player.Achievements, achievement)
	}
}

// RemovePlayers drops stats for expired sessions.
func (m *Manager) RemovePlayers(sessionIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range sessionIDs {
		delete(m.players, id)
	}
}

// PlayerCount returns the number of tracked players.
func (m *Manager) PlayerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.players)
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
	Rank        uint32 `json:"rank"`
	Level       uint32 `json:"level"`
}

// Leaderboard holds the top-10 rankings by wins, balance and win rate.
type Leaderboard struct {
	TopByWins    []LeaderboardEntry `json:"top_by_wins"`
	TopByBalance []LeaderboardEntry `json:"top_by_balance"`
	TopByWinRate []LeaderboardEntry `json:"top_by_winrate"`
	LastUpdated  time.Time          `json:"last_updated"`
}

// GenerateLeaderboard builds the current rankings. The win-rate board only
// considers players with at least 5 resolved auctions.
func (m *Manager) GenerateLeaderboard() Leaderboard {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]*PlayerStats, 0, len(m.players))
	for _, p := range m.players {
		all = append(all, p)
	}

	byWins := append([]*PlayerStats(nil), all...)
	sort.SliceStable(byWins, func(i, j int) bool {
		return byWins[i].TotalAuctionsWon > byWins[j].TotalAuctionsWon
	})

	byBalance := append([]*PlayerStats(nil), all...)
	sort.SliceStable(byBalance, func(i, j int) bool {
		return byBalance[i].Balance > byBalance[j].Balance
	})

	var byWinRate []*PlayerStats

	for _, p := range all {
		if p.TotalAuctionsParticipated >= 5 {
			byWinRate = append(byWinRate, p)
		}
	}

	sort.SliceStable(byWinRate, func(i, j int) bool {
		return byWinRate[i].WinRate() > byWinRate[j].WinRate()
	})

	return Leaderboard{
		TopByWins:    topEntries(byWins),
		TopByBalance: topEntries(byBalance),
		TopByWinRate: topEntries(byWinRate),
		LastUpdated:  time.Now(),
	}
}

func topEntries(ranked []*PlayerStats) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, 10)

	for i, p := range ranked {
		if i >= 10 {
			break
		}

		entries = append(entries, LeaderboardEntry{
			SessionID:   p.SessionID,
			DisplayName: "Player " + displayName(p.SessionID),
			Rank:        uint32(i + 1),
			Level:       p.Level,
		})
	}

	return entries
}

// displayName truncates a session id to 6 characters for leaderboard
// display; logs truncate to 8 via shortID.
func displayName(sessionID string) string {
	if len(sessionID) > 6 {
		return sessionID[:6]
	}

	return sessionID
}

// shortID truncates a session id for log readability.
func shortID(sessionID string) string {
	if len(sessionID) > 8 {
		return sessionID[:8]
	}

	return sessionID
}
