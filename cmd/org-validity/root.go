package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/orgvalidity/pkg/configuration"
)

type rootOptions struct {
	fixture string
	metrics bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "org-validity",
		Short:         "Validity checks and edits for org units, employees and their relations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.fixture, "fixture", "", "Run against a JSON/YAML fixture instead of the database")
	cmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "Print collected metrics to stderr when done (default PROMETHEUS_METRICS_ENABLED)")
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if !opts.metrics && !configuration.Use().Prometheus.Enabled {
			return nil
		}
		return writeMetrics(cmd.ErrOrStderr())
	}

	cmd.AddCommand(newCoversCmd(opts))
	cmd.AddCommand(newProjectCmd(opts))
	cmd.AddCommand(newSpliceCmd(opts))
	cmd.AddCommand(newTerminateCmd(opts))
	cmd.AddCommand(newCheckParentCmd(opts))
	cmd.AddCommand(newCheckInactivationCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
