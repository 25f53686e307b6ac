// Package config handles configuration loading and validation for the
// raiku simulator.
package config

import "time"

// Config represents the complete configuration for the simulator.
type Config struct {
	Server      ServerConfig      `yaml:"server" json:"server"`
	Marketplace MarketplaceConfig `yaml:"marketplace" json:"marketplace"`
	Auction     AuctionConfig     `yaml:"auction" json:"auction"`
	Session     SessionConfig     `yaml:"session" json:"session"`
	Game        GameConfig        `yaml:"game" json:"game"`
	Debug       bool              `yaml:"debug" json:"debug"`
	Pprof       bool              `yaml:"pprof" json:"pprof"`
}

// ServerConfig defines the HTTP listen address and request limits.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// RateLimitPerMinute is the per-client request budget. 0 disables
	// rate limiting.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
}

// MarketplaceConfig defines slot timing and pricing parameters.
type MarketplaceConfig struct {
	// SlotDurationMs is the wall-clock spacing between consecutive slot
	// estimated times.
	SlotDurationMs int64 `yaml:"slot_duration_ms" json:"slot_duration_ms"`

	// TickIntervalMs is how often the background loop advances the
	// current slot and resolves due auctions.
	TickIntervalMs int64 `yaml:"tick_interval_ms" json:"tick_interval_ms"`

	// BaseFee is the reference price. Each slot's base fee is this value
	// scaled by a random factor in [1, 10).
	BaseFee float64 `yaml:"base_fee" json:"base_fee"`

	// WindowSize is the number of forward slots kept in the rolling window.
	WindowSize uint64 `yaml:"window_size" json:"window_size"`

	// DisplayDepth is how many forward slots the listing endpoints report.
	DisplayDepth uint64 `yaml:"display_depth" json:"display_depth"`

	// ComputeUnitsPerSlot is the capacity of every slot.
	ComputeUnitsPerSlot uint64 `yaml:"compute_units_per_slot" json:"compute_units_per_slot"`
}

// AuctionConfig defines auction pricing rules.
type AuctionConfig struct {
	// JitPremiumMultiplier scales the base fee into the JIT minimum bid.
	JitPremiumMultiplier float64 `yaml:"jit_premium_multiplier" json:"jit_premium_multiplier"`

	// AotDurationSec is how long an AOT auction accepts bids.
	AotDurationSec int64 `yaml:"aot_duration_sec" json:"aot_duration_sec"`

	// AotMinIncrement is the minimum amount a new AOT bid must exceed the
	// current highest bid by.
	AotMinIncrement float64 `yaml:"aot_min_increment" json:"aot_min_increment"`
}

// SessionConfig defines session lifetimes.
type SessionConfig struct {
	TTLHours           int64 `yaml:"ttl_hours" json:"ttl_hours"`
	CleanupIntervalSec int64 `yaml:"cleanup_interval_sec" json:"cleanup_interval_sec"`
}

// GameConfig defines the player-economy parameters.
type GameConfig struct {
	InitialBalance float64 `yaml:"initial_balance" json:"initial_balance"`
}

// SlotDuration returns the slot spacing as a time.Duration.
func (c *MarketplaceConfig) SlotDuration() time.Duration {
	return time.Duration(c.SlotDurationMs) * time.Millisecond
}

// TickInterval returns the tick loop interval as a time.Duration.
func (c *MarketplaceConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// AotDuration returns the AOT auction lifetime as a time.Duration.
func (c *AuctionConfig) AotDuration() time.Duration {
	return time.Duration(c.AotDurationSec) * time.Second
}

// TTL returns the session lifetime as a time.Duration.
func (c *SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// CleanupInterval returns the session sweep interval as a time.Duration.
func (c *SessionConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSec) * time.Second
}
