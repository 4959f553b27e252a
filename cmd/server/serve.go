package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/pollchat/internal/app"
	"github.com/vovakirdan/pollchat/internal/config"
	"github.com/vovakirdan/pollchat/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long: `Start the chat server.

Configuration is read from defaults, then the config file, then POLLCHAT_*
environment variables, then the flags below. A missing config file is
created with the defaults.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file")
	serveCmd.Flags().String("addr", "", "HTTP listen address")
	serveCmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
	serveCmd.Flags().Duration("poll-interval", 0, "how long a long-poll is held open")
}

func runServe(cmd *cobra.Command, args []string) error {
	bootLogger := log.New("info", "console")

	configPath, _ := cmd.Flags().GetString("config")
	cfg, resolved, err := config.Load(bootLogger, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var overrides config.Config
	overrides.Addr, _ = cmd.Flags().GetString("addr")
	overrides.LogLevel, _ = cmd.Flags().GetString("log-level")
	overrides.PollInterval, _ = cmd.Flags().GetDuration("poll-interval")
	cfg.UpdateFrom(overrides)

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().
		Str("config", resolved).
		Str("version", version).
		Dur("poll_interval", cfg.PollInterval).
		Int("cache_size", cfg.CacheSize).
		Msg("starting pollchat")

	application, err := app.New(&cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
