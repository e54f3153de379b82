package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/de-tools/autofixer/pkg/server"
	"github.com/de-tools/autofixer/pkg/services/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgPath      string
	profilesPath string
	profile      string
	logLevel     string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:          "web",
		Short:        "Start the auto-fixer gateway",
		SilenceUsage: true,
		RunE:         runServer,
	}

	home, _ := os.UserHomeDir()
	defaultProfiles := filepath.Join(home, ".autofixer.ini")

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to the autofixer config file")
	rootCmd.Flags().StringVar(&profilesPath, "profiles-file", defaultProfiles,
		"Path to the backend profiles file (default is $HOME/.autofixer.ini)")
	rootCmd.Flags().StringVarP(&profile, "profile", "p", "", "Backend profile to use")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Resolve(ctx, cfgPath, profilesPath, profile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if profile != "" {
		logger.Info().Msgf("Backend profile `%s` loaded from `%s`.", profile, profilesPath)
	}

	api, err := server.Initialize(logger, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}

	return api.Start()
}
