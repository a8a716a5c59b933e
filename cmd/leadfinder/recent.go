package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvora49/Lead-finder-sub001/internal/tui"
)

func newRecentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recent searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := tui.LoadRecent()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recent searches")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tKEYWORD\tCATEGORY\tLOCATION\tRESULTS")
			for _, e := range entries {
				results := fmt.Sprintf("%d", e.Results)
				if e.Cached {
					results += " (cached)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.SearchedAt.Format(time.DateTime), e.Request.Keyword, e.Request.Category,
					e.Request.PlanLocation(), results)
			}
			return tw.Flush()
		},
	}
}
