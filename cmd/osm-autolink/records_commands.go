package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"osmautolink/internal/config"
	"osmautolink/internal/osm"
	"osmautolink/internal/records"
)

const recordsColumnWidth = 60

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and maintain the link record store",
	}

	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsStatsCommand(ctx))
	recordsCmd.AddCommand(newRecordsIgnoreCommand(ctx))

	return recordsCmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var pendingOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded lookups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return errors.New("--limit must not be negative")
			}
			return ctx.withStore(func(_ *config.Config, store *records.Store) error {
				recs, err := store.List(cmd.Context(), records.Filter{PendingOnly: pendingOnly, Limit: limit})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(out, "No records")
					return nil
				}
				rows := make([][]string, 0, len(recs))
				for _, rec := range recs {
					rows = append(rows, []string{
						rec.ID.String(),
						rec.Timestamp.Local().Format("2006-01-02 15:04"),
						recordStatus(rec),
						rec.Link,
						rec.Query,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Created", "Status", "Link", "Query"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
					recordsColumnWidth,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only show records awaiting upload")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of records to show (0 for all)")
	return cmd
}

func newRecordsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the record store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *records.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Looked up", humanize.Comma(int64(stats.Total))},
					{"With link", humanize.Comma(int64(stats.WithLink))},
					{"Pending upload", humanize.Comma(int64(stats.Pending))},
					{"Applied", humanize.Comma(int64(stats.Applied))},
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Record store: %s\n", store.Path())
				fmt.Fprintln(out, renderTable([]string{"Records", "Count"}, rows, []columnAlignment{alignLeft, alignRight}, 0))
				return nil
			})
		},
	}
}

func newRecordsIgnoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ignore <kind/id>...",
		Short: "Mark records as applied without uploading them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]osm.ObjectID, 0, len(args))
			for _, arg := range args {
				id, err := osm.ParseObjectID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(_ *config.Config, store *records.Store) error {
				out := cmd.OutOrStdout()
				known := make([]osm.ObjectID, 0, len(ids))
				for _, id := range ids {
					rec, err := store.Get(cmd.Context(), id)
					if err != nil {
						return err
					}
					if rec == nil {
						fmt.Fprintf(out, "No record for %s\n", id)
						continue
					}
					known = append(known, id)
				}
				if err := store.MarkApplied(cmd.Context(), known); err != nil {
					return err
				}
				for _, id := range known {
					fmt.Fprintf(out, "Ignoring item %s\n", id)
				}
				return nil
			})
		},
	}
}

func recordStatus(rec records.Record) string {
	switch {
	case !rec.HasLink():
		return "no link"
	case rec.Applied:
		return "applied"
	default:
		return "pending"
	}
}
