package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"go-voicemaster/internal/bootstrap"
	"go-voicemaster/internal/config"
	"go-voicemaster/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:          "voicemaster",
	Short:        "Voicemaster gives every member their own temporary voice room.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.json", "path to the config file")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	b := bootstrap.New(cfg)
	if err := b.Initialize(); err != nil {
		return err
	}
	if err := b.Start(); err != nil {
		b.Shutdown()
		return err
	}

	logging.Info("Voicemaster running, press Ctrl+C to stop")
	waitForShutdown()

	return b.Shutdown()
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logging.Info("Shutdown signal received (%s)", sig)
}
