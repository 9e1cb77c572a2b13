// Package cli implements the viktorctl maintenance commands.
package cli

import (
	"context"
	"fmt"
	"slices"

	"viktor/internal/bootstrap"
	"viktor/internal/config"
	"viktor/internal/observability"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	loadConfig func() (*config.Config, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for viktorctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(config.LoadConfig)
}

func newRootCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	opts := &RootOptions{loadConfig: loadConfig}

	cmd := &cobra.Command{
		Use:   "viktorctl",
		Short: "viktorctl - maintenance for the Viktor data store",
		Long:  "Schema setup, seeding and consistency checks for the Viktor social data store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cmd.SetContext(observability.EnsureCorrelationID(cmd.Context()))
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedAdminCommand(opts))
	cmd.AddCommand(NewSeedDemoCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// runtime loads config and brings up the full runtime. The caller closes it.
func (o *RootOptions) runtime(ctx context.Context) (*bootstrap.Runtime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize runtime", err)
	}
	return rt, nil
}
