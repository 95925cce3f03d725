package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"osmautolink/internal/config"
	"osmautolink/internal/records"
	"osmautolink/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	var skipDiscovery bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover POIs, look up links and upload them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := confirmer(cmd, yes)
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				report, err := mgr.Run(cmd.Context(), workflow.RunOptions{SkipDiscovery: skipDiscovery})
				if !skipDiscovery {
					printDiscoverReport(cmd.OutOrStdout(), report.Discover)
				}
				return err
			}, workflow.WithConfirmer(policy))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Upload without asking for confirmation")
	cmd.Flags().BoolVar(&skipDiscovery, "skip-discovery", false, "Only upload records that are already pending")
	return cmd
}

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Discover POIs and look up links without uploading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				report, err := mgr.Discover(cmd.Context())
				printDiscoverReport(cmd.OutOrStdout(), report)
				return err
			})
		},
	}
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Review pending links and upload them as one changeset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := confirmer(cmd, yes)
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				_, err := mgr.Upload(cmd.Context())
				return err
			}, workflow.WithConfirmer(policy))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Upload without asking for confirmation")
	return cmd
}

func (c *commandContext) withManager(cmd *cobra.Command, fn func(*workflow.Manager) error, opts ...workflow.ManagerOption) error {
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	return c.withStore(func(cfg *config.Config, store *records.Store) error {
		opts = append(opts, workflow.WithOutput(cmd.OutOrStdout()))
		return fn(workflow.NewManager(cfg, store, logger, opts...))
	})
}

func printDiscoverReport(out io.Writer, report workflow.DiscoverReport) {
	if report.Discovered == 0 && report.New == 0 {
		return
	}
	fmt.Fprintf(out, "Discovered %d POIs, %d new\n", report.Discovered, report.New)
	if report.Enrichment.Processed > 0 {
		fmt.Fprintf(out, "Enrichment: %s\n", report.Enrichment)
	}
}
