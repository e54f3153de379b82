package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/de-tools/autofixer/pkg/runtime/terminal/commands"
	"github.com/de-tools/autofixer/pkg/runtime/terminal/export"
	"github.com/de-tools/autofixer/pkg/services/config"
	"github.com/de-tools/autofixer/pkg/services/lifecycle"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	reporter *export.Reporter
	logger   zerolog.Logger
	rootCmd  *cobra.Command

	configPath   string
	profilesPath string
	profile      string
	baseURL      string
	timeout      time.Duration

	once sync.Once
	ctrl lifecycle.Controller
	err  error
}

// Options contain configuration for the CLI
type Options struct {
	// Controller, when set, is used instead of one built from flags.
	Controller lifecycle.Controller
	Output     io.Writer
	Logger     *zerolog.Logger
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		reporter: export.NewReporter(opts.Output),
		logger:   zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
		ctrl:     opts.Controller,
	}
	if opts.Logger != nil {
		cli.logger = *opts.Logger
	}
	if opts.Controller != nil {
		cli.once.Do(func() {})
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cli.ExecuteContext(ctx)
}

func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(cli.logger.WithContext(ctx))
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "autofixer",
		Short:         "Diagnose and fix issues reported by the analysis backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	home, _ := os.UserHomeDir()
	flags := cmd.PersistentFlags()
	flags.StringVarP(&cli.configPath, "config", "c", "", "Path to the autofixer config file")
	flags.StringVar(&cli.profilesPath, "profiles-file", filepath.Join(home, ".autofixer.ini"),
		"Path to the backend profiles file")
	flags.StringVarP(&cli.profile, "profile", "p", "", "Backend profile to use")
	flags.StringVar(&cli.baseURL, "base-url", "", "Backend base URL, overrides config and profile")
	flags.DurationVar(&cli.timeout, "timeout", 0, "Per-call backend timeout, overrides config and profile")

	cmd.AddCommand(commands.NewDiagnoseCmd(cli.controller, cli.reporter))
	cmd.AddCommand(commands.NewFixCmd(cli.controller, cli.reporter))

	return cmd
}

func (cli *CLI) controller(ctx context.Context) (lifecycle.Controller, error) {
	cli.once.Do(func() {
		cfg, err := config.Resolve(ctx, cli.configPath, cli.profilesPath, cli.profile)
		if err != nil {
			cli.err = fmt.Errorf("failed to load configuration: %w", err)
			return
		}
		if cli.baseURL != "" {
			cfg.Backend.BaseURL = cli.baseURL
		}
		if cli.timeout > 0 {
			cfg.Backend.TimeoutMs = int(cli.timeout.Milliseconds())
		}
		if err := cfg.Validate(); err != nil {
			cli.err = fmt.Errorf("invalid configuration: %w", err)
			return
		}

		zerolog.Ctx(ctx).Debug().Str("backend", cfg.Backend.BaseURL).Msg("using backend")
		ctrl, err := lifecycle.NewFromConfig(cfg.Backend)
		if err != nil {
			cli.err = err
			return
		}
		cli.ctrl = ctrl
	})
	return cli.ctrl, cli.err
}
