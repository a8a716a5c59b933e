package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvora49/Lead-finder-sub001/internal/engine/cache"
)

func newCacheCmd(a *app) *cobra.Command {
	var keyword, location string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached searches",
	}
	cmd.PersistentFlags().StringVarP(&keyword, "keyword", "k", "", "keyword of the cached search (required)")
	cmd.PersistentFlags().StringVarP(&location, "location", "L", "", "location of the cached search (required)")
	_ = cmd.MarkPersistentFlagRequired("keyword")
	_ = cmd.MarkPersistentFlagRequired("location")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the cache entry for a keyword and location",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.logger(false)
			if err != nil {
				return err
			}
			cm, closeFn, err := newCacheManager(cmd.Context(), a.cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			e, err := cm.Lookup(cmd.Context(), cache.Key(keyword, location))
			if errors.Is(err, cache.ErrNotFound) {
				return fmt.Errorf("no cache entry for %q in %q", keyword, location)
			}
			if err != nil {
				return err
			}
			return printEntry(cmd.OutOrStdout(), e, cm.TTL(), time.Now())
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Expire the cache entry for a keyword and location",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.logger(false)
			if err != nil {
				return err
			}
			cm, closeFn, err := newCacheManager(cmd.Context(), a.cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			err = cm.Clear(cmd.Context(), cache.Key(keyword, location))
			if errors.Is(err, cache.ErrNotFound) {
				return fmt.Errorf("no cache entry for %q in %q", keyword, location)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %q in %q\n", keyword, location)
			return nil
		},
	}

	cmd.AddCommand(showCmd, clearCmd)
	return cmd
}

func printEntry(w io.Writer, e *cache.Entry, ttl time.Duration, now time.Time) error {
	state := "fresh"
	switch {
	case e.Cleared():
		state = "cleared"
	case !e.Fresh(now, ttl):
		state = "stale"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Key:\t%s\n", e.Key)
	fmt.Fprintf(tw, "Keyword:\t%s\n", e.Keyword)
	fmt.Fprintf(tw, "Location:\t%s\n", e.Location)
	fmt.Fprintf(tw, "Results:\t%d\n", e.ResultsCount)
	fmt.Fprintf(tw, "Hits:\t%d\n", e.HitCount)
	fmt.Fprintf(tw, "Created:\t%s (%s ago)\n", e.CreatedAt.Format(time.RFC3339), now.Sub(e.CreatedAt).Truncate(time.Minute))
	if !e.LastAccessAt.IsZero() {
		fmt.Fprintf(tw, "Last hit:\t%s\n", e.LastAccessAt.Format(time.RFC3339))
	}
	fmt.Fprintf(tw, "State:\t%s\n", state)
	return tw.Flush()
}
