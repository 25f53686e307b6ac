// Package cmd implements the CLI commands for the raiku simulator.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iamprecieee/raiku-simulator/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *logrus.Logger
	v       *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "raiku-simulator",
	Short: "Time-sliced blockspace marketplace simulator",
	Long: `Raiku Simulator runs a slot marketplace where players bid on
blockspace through JIT and AOT auctions, with a live event stream
and a leaderboard.`,
}

func init() {
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		initLogger()

		return initConfig()
	}

	v = viper.New()
	cobra.OnInitialize(loadConfigFile)

	// Get defaults from config package
	defaults := config.DefaultConfig()

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().String("host", defaults.Server.Host, "HTTP listen host")
	rootCmd.PersistentFlags().Int("port", defaults.Server.Port, "HTTP listen port")
	rootCmd.PersistentFlags().Int("rate-limit", defaults.Server.RateLimitPerMinute, "API requests per client per minute (0 = unlimited)")
	rootCmd.PersistentFlags().Int64("slot-duration-ms", defaults.Marketplace.SlotDurationMs, "Slot duration in milliseconds")
	rootCmd.PersistentFlags().Int64("tick-interval-ms", defaults.Marketplace.TickIntervalMs, "Slot advance interval in milliseconds")
	rootCmd.PersistentFlags().Float64("base-fee", defaults.Marketplace.BaseFee, "Base fee reference value in SOL")
	rootCmd.PersistentFlags().Uint64("window-size", defaults.Marketplace.WindowSize, "Rolling window size in slots")
	rootCmd.PersistentFlags().Uint64("display-depth", defaults.Marketplace.DisplayDepth, "Forward slots reported by listing endpoints")
	rootCmd.PersistentFlags().Float64("jit-premium", defaults.Auction.JitPremiumMultiplier, "JIT minimum bid premium over the base fee")
	rootCmd.PersistentFlags().Int64("aot-duration-sec", defaults.Auction.AotDurationSec, "AOT auction duration in seconds")
	rootCmd.PersistentFlags().Float64("aot-min-increment", defaults.Auction.AotMinIncrement, "Minimum AOT bid increment in SOL")
	rootCmd.PersistentFlags().Float64("initial-balance", defaults.Game.InitialBalance, "Starting player balance in SOL")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("pprof", false, "Enable pprof endpoints")

	// Bind all flags to viper
	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		logrus.WithError(err).Fatal("Failed to bind flags")
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initLogger() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	levelStr := v.GetString("log-level")

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	if v.GetBool("debug") {
		level = logrus.DebugLevel
	}

	logger.SetLevel(level)
}

func loadConfigFile() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("raiku-simulator")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.raiku-simulator")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if logger != nil {
				logger.WithError(err).Warn("Error reading config file")
			}
		}
	}
}

func initConfig() error {
	loader := config.NewLoader(logger)

	base := config.DefaultConfig()

	if cfgFile != "" {
		fileCfg, err := loader.LoadConfig(cfgFile)
		if err != nil {
			return err
		}

		base = fileCfg
	}

	// Explicitly set flags win over the config file.
	override := &config.Config{}
	flags := rootCmd.PersistentFlags()

	if flags.Changed("host") {
		override.Server.Host = v.GetString("host")
	}

	if flags.Changed("port") {
		override.Server.Port = v.GetInt("port")
	}

	if flags.Changed("rate-limit") {
		override.Server.RateLimitPerMinute = v.GetInt("rate-limit")
	}

	if flags.Changed("slot-duration-ms") {
		override.Marketplace.SlotDurationMs = v.GetInt64("slot-duration-ms")
	}

	if flags.Changed("tick-interval-ms") {
		override.Marketplace.TickIntervalMs = v.GetInt64("tick-interval-ms")
	}

	if flags.Changed("base-fee") {
		override.Marketplace.BaseFee = v.GetFloat64("base-fee")
	}

	if flags.Changed("window-size") {
		override.Marketplace.WindowSize = v.GetUint64("window-size")
	}

	if flags.Changed("display-depth") {
		override.Marketplace.DisplayDepth = v.GetUint64("display-depth")
	}

	if flags.Changed("jit-premium") {
		override.Auction.JitPremiumMultiplier = v.GetFloat64("jit-premium")
	}

	if flags.Changed("aot-duration-sec") {
		override.Auction.AotDurationSec = v.GetInt64("aot-duration-sec")
	}

	if flags.Changed("aot-min-increment") {
		override.Auction.AotMinIncrement = v.GetFloat64("aot-min-increment")
	}

	if flags.Changed("initial-balance") {
		override.Game.InitialBalance = v.GetFloat64("initial-balance")
	}

	override.Debug = v.GetBool("debug")
	override.Pprof = v.GetBool("pprof")

	merged := config.MergeConfigs(base, override)

	if err := config.ValidateConfig(merged); err != nil {
		return err
	}

	cfg = merged

	return nil
}

// GetConfig returns the current configuration.
func GetConfig() *config.Config {
	return cfg
}

// GetLogger returns the application logger.
func GetLogger() *logrus.Logger {
	return logger
}
