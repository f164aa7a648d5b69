package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3wizard/internal/config"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3wizard/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir   string
	cfg      *config.Config
	logger   hclog.Logger
	verbose  bool
	fromFlag string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3wizard",
	Short: "ABI-driven contract wizards",
	Long: `w3wizard walks you through deploying, calling and registering smart
contracts. Every form is derived from the contract ABI: parameter fields are
typed and validated as you type, and gas is re-estimated on every change.

Settings live in ~/.w3wizard (override with --config or W3WIZARD_CONFIG_DIR).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger = newLogger(cfg.LogLevel, verbose)
		logger.Debug("config loaded", "dir", cfg.Dir(), "rpc", cfg.RPCURL)
		return nil
	},
}

func newLogger(level string, verbose bool) hclog.Logger {
	if verbose {
		level = "debug"
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "w3wizard",
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: ~/.w3wizard)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		accountCmd,
		contractCmd,
		configCmd,
	)
}
