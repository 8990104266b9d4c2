package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wildmind/studio-api/internal/config"
)

var (
	jsonLogs bool
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "studio-api",
	Short: "Generation backend for product studio shots, videos and music",
	// Load config and logging before any command runs.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		setupLogging(cfg.Server.LogLevel, jsonLogs || cfg.Server.Env == "production")
		return nil
	},
}

// Execute runs the root command. With no subcommand it serves the API.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs as JSON")
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(true)
	}
}

func setupLogging(level string, asJSON bool) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stdout)
	if asJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
