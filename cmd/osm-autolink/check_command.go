package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"osmautolink/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check directories, credentials and remote services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "✓"
				if !r.Passed {
					status = "✗"
				}
				rows = append(rows, []string{status, r.Name, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"", "Check", "Detail"}, rows, nil, 0))
			if failed := preflight.Failed(results); failed > 0 {
				return fmt.Errorf("%d preflight checks failed", failed)
			}
			return nil
		},
	}
}
