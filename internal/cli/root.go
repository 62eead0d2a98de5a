// Package cli defines the mcnap command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcnap-project/mcnap/internal/config"
	"github.com/mcnap-project/mcnap/internal/util"
)

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "mcnap",
	Short: "On-demand activator for a Minecraft server",
	Long: `MCNap fronts a Minecraft server's game port while the server is down.
It answers server-list pings with a configurable MOTD and icon, starts
the real server command on the first genuine login, and stops it over
RCON once it has been empty past the idle timeout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultConfigDir, "directory holding config.json and the server icon")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
}

// loadConfig loads the config file and initializes the global logger
// from it, honoring the --log-level override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}

	if err := util.InitLogger(util.LogConfig{
		Level:      level,
		Directory:  cfg.Logging.Directory,
		MaxBackups: cfg.Logging.MaxBackups,
		Console:    true,
	}); err != nil {
		return nil, err
	}

	result := config.Validate(cfg)
	for _, w := range result.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !result.IsValid() {
		for _, e := range result.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		return nil, fmt.Errorf("configuration invalid (%d errors)", len(result.Errors))
	}

	return cfg, nil
}
