package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ondaradio/onda/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "onda",
	Short: "Research and transmedia content pipeline for newsrooms",
	Long: `onda turns a topic into a grounded research report and a multi-channel
content pack (web article, social posts, flyer, carousel). It serves an HTTP
API and exposes the same pipeline on the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		setupLogging(cfg.Logging.Level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.AddCommand(
		serveCmd,
		researchCmd,
		packCmd,
		parseCmd,
		vaultCmd,
		headlinesCmd,
		apikeyCmd,
		versionCmd,
	)
}

func setupLogging(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
