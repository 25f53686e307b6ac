package game

import "math/rand/v2"

// AchievementType identifies an unlockable achievement.
type AchievementType string

const (
	AchievementFirstWin      AchievementType = "first_win"
	AchievementBigSpender    AchievementType = "big_spender"
	AchievementWinningStreak AchievementType = "winning_streak"
)

// Achievement is an unlocked reward with a randomized XP grant.
type Achievement struct {
	Type        AchievementType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	RewardXP    uint32          `json:"reward_xp"`
}

func firstWin() Achievement {
	return Achievement{
		Type:        AchievementFirstWin,
		Name:        "First Win!",
		Description: "Win your first auction",
		RewardXP:    uint32(rand.IntN(51)),
	}
}

func bigSpender() Achievement {
	return Achievement{
		Type:        AchievementBigSpender,
		Name:        "Big Spender!",
		Description: "Spend 10 SOL in total",
		RewardXP:    51 + uint32(rand.IntN(50)),
	}
}

func winningStreak() Achievement {
	return Achievement{
		Type:        AchievementWinningStreak,
		Name:        "On Fire!",
		Description: "Win 20 auctions in a row",
		RewardXP:    101 + uint32(rand.IntN(50)),
	}
}
