package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"osmautolink/internal/services"
	"osmautolink/internal/workflow"
)

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the OpenStreetMap account behind osm.token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireOSMToken(); err != nil {
				return services.Wrap(services.ErrConfiguration, "whoami", "check token", "", err)
			}
			user, err := workflow.NewOSMClient(cfg).UserDetails(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "👤 Welcome, %s!\n", user.DisplayName)
			fmt.Fprintf(out, "User ID: %d\n", user.ID)
			fmt.Fprintf(out, "API: %s\n", cfg.OSM.APIURL)
			fmt.Fprintf(out, "Dry run: %s\n", yesNo(cfg.OSM.DryRun))
			return nil
		},
	}
}
