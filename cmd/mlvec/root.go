package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/viant/mlvec/internal/config"
	"github.com/viant/mlvec/internal/logging"
)

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Settings come from the environment
// first, then from flags.
func newRootCmd() *cobra.Command {
	cfg, cfgErr := config.Load()
	if cfg == nil {
		cfg = &config.Config{}
	}

	rootCmd := &cobra.Command{
		Use:           "mlvec",
		Short:         "Vector blob codec and vector scan tool",
		Long:          `mlvec encodes, decodes and inspects vector blobs, compares server versions and runs vector scans against a record store.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfgErr
		},
	}

	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", cfg.Debug, "enable debug logging")

	rootCmd.AddCommand(
		newEncodeCmd(),
		newDecodeCmd(),
		newInspectCmd(),
		newVersionCmd(),
		newScanCmd(cfg),
	)
	return rootCmd
}

func setupLogger(ctx context.Context, cmd *cobra.Command, debug bool) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.NewContextWithWriter(ctx, cmd.ErrOrStderr(), debug)
}
