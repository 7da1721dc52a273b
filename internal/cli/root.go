// Package cli implements the keysync command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leandrodaf/keysync/internal/config"
	"github.com/leandrodaf/keysync/internal/logger"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "keysync",
	Short: "Share one animated piano key between everyone in a session.",
	Long: `keysync replicates the last note played on a MIDI keyboard to every participant.
The first participant with a MIDI input becomes the leader; everyone else follows the
key state it broadcasts through the relay.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a keysync YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides the config file)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")
}

// loadConfig reads --config and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	return cfg, cfg.Validate()
}

// newLogger builds the command logger. Sessions drawing to the terminal log to a file or nowhere.
func newLogger(cmd *cobra.Command, cfg *config.Config, ownsTerminal bool) (contracts.Logger, error) {
	level, err := contracts.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var log contracts.Logger
	path, _ := cmd.Flags().GetString("log-file")
	switch {
	case path != "":
		log = logger.NewFileLogger(path)
	case ownsTerminal:
		log = logger.NewNopLogger()
	default:
		log = logger.NewDevelopmentLogger()
	}
	log.SetLevel(level)
	return log, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
