package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tapedeck/internal/config"
	"tapedeck/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logs   *logging.Registry
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tapedeck",
	Short: "tapedeck - a tape transport that navigates pages",
	Long: `tapedeck models a virtual tape deck whose tape is a row of content pages.

Navigating to a page winds the tape there through a timed transition:
the deck plays on arrival and settles into pause. A watchdog stops the
deck if a transition stalls.

Run "tapedeck play" for the interactive deck.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logs, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logs.Base()
		logs.Get(logging.CategoryBoot).Debug("config loaded",
			zap.String("path", configPath),
			zap.String("level", cfg.Logging.EffectiveLevel()),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logs != nil {
			_ = logs.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tapedeck.yaml", "Config file (missing file = defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Add commands to root
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(pagesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
