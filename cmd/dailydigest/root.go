package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"DailyDigest/internal/app"
	"DailyDigest/internal/config"
	"DailyDigest/internal/logging"
)

var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "dailydigest",
	Short:         "Personalized daily news briefings",
	Long:          "dailydigest ingests articles, matches them against registered interests, and emails daily briefings.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (overrides DAILY_DIGEST_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(ingestFeedCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(briefingCmd)
	rootCmd.AddCommand(notifyCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	if flagConfig != "" {
		_ = os.Setenv("DAILY_DIGEST_CONFIG", flagConfig)
	}
	cfg := config.Load()
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	return cfg
}

// withApp builds the application for one command and closes it afterwards.
func withApp(ctx context.Context, fn func(*app.Application) error) error {
	cfg := loadConfig()
	logger := logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	return fn(application)
}
