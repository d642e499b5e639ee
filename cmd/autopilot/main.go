// Command autopilot receives Meta webhooks, drafts replies and routes them
// through the approval workflow.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/conf"
)

// Version is set at build time via -ldflags "-X main.Version=v1.0.0"
var Version = "dev"

var envFile string

var rootCmd = &cobra.Command{
	Use:           "autopilot",
	Short:         "Inbox autopilot for Instagram and Facebook messages and comments",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		}
		// .env is optional
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default: .env if present)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(accountCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("autopilot %s\n", Version)
		},
	}
}

// loadConfig loads configuration and builds the logger
func loadConfig() (*conf.Config, *zap.Logger, error) {
	cfg, err := conf.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
