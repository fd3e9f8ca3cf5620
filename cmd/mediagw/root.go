package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/x402-media-gateway/internal/config"
	"github.com/tbourn/x402-media-gateway/internal/observability"
	"github.com/tbourn/x402-media-gateway/internal/sysutil"
)

// appVersion is the reported build version.
func appVersion() string {
	return sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")
}

func newRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "mediagw",
		Short:         "x402 payment-gated media generation gateway",
		Version:       appVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; real environment variables win.
			_ = godotenv.Load(envFile)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before reading configuration")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newCleanupCommand())
	rootCmd.AddCommand(newRoutesCommand())
	rootCmd.AddCommand(newProbeCommand())

	return rootCmd
}

// loadConfig reads the environment and installs the global logger.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	sysutil.SetupLogging(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogPretty, observability.ServiceName(cfg.OTEL))
	return cfg, nil
}
