package config

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			RateLimitPerMinute: 100,
		},
		Marketplace: MarketplaceConfig{
			SlotDurationMs:      400,
			TickIntervalMs:      400,
			BaseFee:             0.001,
			WindowSize:          100,
			DisplayDepth:        50,
			ComputeUnitsPerSlot: 48_000_000,
		},
		Auction: AuctionConfig{
			JitPremiumMultiplier: 1.05,
			AotDurationSec:       35,
			AotMinIncrement:      0.001,
		},
		Session: SessionConfig{
			TTLHours:           24,
			CleanupIntervalSec: 300,
		},
		Game: GameConfig{
			InitialBalance: 100_000,
		},
	}
}
