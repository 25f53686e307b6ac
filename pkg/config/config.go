package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading from files and flags.
type Loader struct {
	log logrus.FieldLogger
}

// NewLoader creates a new configuration loader.
func NewLoader(log logrus.FieldLogger) *Loader {
	return &Loader{
		log: log.WithField("component", "config"),
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
func (l *Loader) LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromFlags loads configuration from viper flags.
func (l *Loader) LoadConfigFromFlags(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if val := v.GetString("host"); val != "" {
		cfg.Server.Host = val
	}

	if val := v.GetInt("port"); val != 0 {
		cfg.Server.Port = val
	}

	if v.IsSet("rate-limit") {
		cfg.Server.RateLimitPerMinute = v.GetInt("rate-limit")
	}

	if val := v.GetInt64("slot-duration-ms"); val != 0 {
		cfg.Marketplace.SlotDurationMs = val
	}

	if val := v.GetInt64("tick-interval-ms"); val != 0 {
		cfg.Marketplace.TickIntervalMs = val
	}

	if val := v.GetFloat64("base-fee"); val != 0 {
		cfg.Marketplace.BaseFee = val
	}

	if val := v.GetUint64("window-size"); val != 0 {
		cfg.Marketplace.WindowSize = val
	}

	if val := v.GetUint64("display-depth"); val != 0 {
		cfg.Marketplace.DisplayDepth = val
	}

	if val := v.GetFloat64("jit-premium"); val != 0 {
		cfg.Auction.JitPremiumMultiplier = val
	}

	if val := v.GetInt64("aot-duration-sec"); val != 0 {
		cfg.Auction.AotDurationSec = val
	}

	if val := v.GetFloat64("aot-min-increment"); val != 0 {
		cfg.Auction.AotMinIncrement = val
	}

	if val := v.GetFloat64("initial-balance"); val != 0 {
		cfg.Game.InitialBalance = val
	}

	cfg.Debug = v.GetBool("debug")
	cfg.Pprof = v.GetBool("pprof")

	return cfg, nil
}

// ValidateConfig validates the configuration for consistency and completeness.
func ValidateConfig(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port: invalid port %d", cfg.Server.Port)
	}

	if cfg.Marketplace.SlotDurationMs <= 0 {
		return fmt.Errorf("marketplace.slot_duration_ms must be > 0")
	}

	if cfg.Marketplace.TickIntervalMs <= 0 {
		return fmt.Errorf("marketplace.tick_interval_ms must be > 0")
	}

	if cfg.Marketplace.BaseFee <= 0 {
		return fmt.Errorf("marketplace.base_fee must be > 0")
	}

	if cfg.Marketplace.WindowSize == 0 {
		return fmt.Errorf("marketplace.window_size must be > 0")
	}

	if cfg.Marketplace.DisplayDepth > cfg.Marketplace.WindowSize {
		return fmt.Errorf("marketplace.display_depth (%d) cannot exceed window_size (%d)",
			cfg.Marketplace.DisplayDepth, cfg.Marketplace.WindowSize)
	}

	if cfg.Auction.JitPremiumMultiplier < 1 {
		return fmt.Errorf("auction.jit_premium_multiplier must be >= 1")
	}

	if cfg.Auction.AotDurationSec <= 0 {
		return fmt.Errorf("auction.aot_duration_sec must be > 0")
	}

	if cfg.Auction.AotMinIncrement <= 0 {
		return fmt.Errorf("auction.aot_min_increment must be > 0")
	}

	if cfg.Session.TTLHours <= 0 {
		return fmt.Errorf("session.ttl_hours must be > 0")
	}

	return nil
}

// MergeConfigs merges override config values into the base config.
// Non-zero values in override replace values in base.
func MergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Server.Host != "" {
		result.Server.Host = override.Server.Host
	}

	if override.Server.Port != 0 {
		result.Server.Port = override.Server.Port
	}

	if override.Server.RateLimitPerMinute != 0 {
		result.Server.RateLimitPerMinute = override.Server.RateLimitPerMinute
	}

	if override.Marketplace.SlotDurationMs != 0 {
		result.Marketplace.SlotDurationMs = override.Marketplace.SlotDurationMs
	}

	if override.Marketplace.TickIntervalMs != 0 {
		result.Marketplace.TickIntervalMs = override.Marketplace.TickIntervalMs
	}

	if override.Marketplace.BaseFee != 0 {
		result.Marketplace.BaseFee = override.Marketplace.BaseFee
	}

	if override.Marketplace.WindowSize != 0 {
		result.Marketplace.WindowSize = override.Marketplace.WindowSize
	}

	if override.Marketplace.DisplayDepth != 0 {
		result.Marketplace.DisplayDepth = override.Marketplace.DisplayDepth
	}

	if override.Marketplace.ComputeUnitsPerSlot != 0 {
		result.Marketplace.ComputeUnitsPerSlot = override.Marketplace.ComputeUnitsPerSlot
	}

	if override.Auction.JitPremiumMultiplier != 0 {
		result.Auction.JitPremiumMultiplier = override.Auction.JitPremiumMultiplier
	}

	if override.Auction.AotDurationSec != 0 {
		result.Auction.AotDurationSec = override.Auction.AotDurationSec
	}

	if override.Auction.AotMinIncrement != 0 {
		result.Auction.AotMinIncrement = override.Auction.AotMinIncrement
	}

	if override.Session.TTLHours != 0 {
		result.Session.TTLHours = override.Session.TTLHours
	}

	if override.Session.CleanupIntervalSec != 0 {
		result.Session.CleanupIntervalSec = override.Session.CleanupIntervalSec
	}

	if override.Game.InitialBalance != 0 {
		result.Game.InitialBalance = override.Game.InitialBalance
	}

	if override.Debug {
		result.Debug = true
	}

	if override.Pprof {
		result.Pprof = true
	}

	return &result
}
