package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "face-detection",
	Short: "Face registration and recognition service",
	Long: `Face Detection registers people from a single photo and recognizes them
in new photos. It runs as an HTTP API (serve) or directly from the command line.

The encoding strategy is chosen once at startup: dlib embeddings when an
extractor is available, otherwise a grayscale histogram of the face patch.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
