package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kvora49/Lead-finder-sub001/internal/engine/geo"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/search"
	"github.com/kvora49/Lead-finder-sub001/internal/model"
	"github.com/kvora49/Lead-finder-sub001/internal/progress"
	"github.com/kvora49/Lead-finder-sub001/internal/tui"
)

// Output formats.
const (
	formatJSON    = "json"
	formatTable   = "table"
	formatGeoJSON = "geojson"
)

type searchFlags struct {
	keyword      string
	location     string
	category     string
	scope        string
	subArea      string
	forceRefresh bool
	format       string
	interactive  bool
}

func newSearchCmd(a *app) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search and print the leads",
		Example: `  leadfinder search --keyword bakery --location Pune
  leadfinder search -k dentist -L "Andheri, Mumbai" --category All --format json
  leadfinder search -k cafe -L Pune --scope neighbourhood --sub-area Baner --tui`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, a, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.keyword, "keyword", "k", "", "what to look for (required)")
	fl.StringVarP(&f.location, "location", "L", "", "where to look (required)")
	fl.StringVarP(&f.category, "category", "c", model.CategoryCustom, "business category, All or Custom")
	fl.StringVar(&f.scope, "scope", string(model.ScopeCity), "city, neighbourhood or specific")
	fl.StringVar(&f.subArea, "sub-area", "", "neighbourhood or landmark within the location")
	fl.BoolVar(&f.forceRefresh, "force-refresh", false, "ignore a fresh cache entry")
	fl.StringVarP(&f.format, "format", "f", formatTable, "output format: table, json or geojson")
	fl.BoolVar(&f.interactive, "tui", false, "show live progress and browse results in the terminal")
	_ = cmd.MarkFlagRequired("keyword")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func runSearch(cmd *cobra.Command, a *app, f searchFlags) error {
	switch f.format {
	case formatJSON, formatTable, formatGeoJSON:
	default:
		return fmt.Errorf("unknown format %q", f.format)
	}

	scope, err := model.ParseScope(f.scope)
	if err != nil {
		return err
	}
	req, err := model.NewSearchRequest(f.keyword, f.category, f.location, scope, f.subArea)
	if err != nil {
		return err
	}

	log, err := a.logger(f.interactive)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closeFn, err := newService(ctx, a.cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	opts := search.Options{ForceRefresh: f.forceRefresh}
	var resp *search.Response
	if f.interactive {
		resp, err = tui.Run(ctx, svc, req, opts)
		if err != nil {
			return err
		}
	} else {
		opts.Reporter = progress.NewLogReporter(log.Named("progress"))
		resp, err = svc.Search(ctx, req, opts)
		if err != nil {
			return err
		}
		log.Info("search finished",
			zap.Int("results", len(resp.Results)),
			zap.Int("api_calls", resp.APICalls),
			zap.Bool("cached", resp.Cached),
			zap.Duration("duration", resp.Duration))
	}

	if err := tui.SaveRecent(req, len(resp.Results), resp.Cached); err != nil {
		log.Warn("saving search history", zap.Error(err))
	}

	if f.interactive && f.format == formatTable {
		return nil
	}
	return writeResults(cmd.OutOrStdout(), f.format, resp)
}

func writeResults(w io.Writer, format string, resp *search.Response) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case formatGeoJSON:
		data, err := geo.FeatureCollection(resp.Results).MarshalJSON()
		if err != nil {
			return fmt.Errorf("encoding geojson: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tPHONE\tRATING\tSTATUS\tWEBSITE")
	for _, l := range resp.Results {
		rating := "-"
		if l.Rating != nil {
			rating = fmt.Sprintf("%.1f", *l.Rating)
			if l.RatingCount != nil {
				rating += fmt.Sprintf(" (%d)", *l.RatingCount)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.Name, l.Address, orDash(l.Phone), rating, l.Status, orDash(l.Website))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	source := fmt.Sprintf("%d API calls", resp.APICalls)
	if resp.Cached {
		source = "cached"
	}
	_, err := fmt.Fprintf(w, "\n%d leads (%s)\n", len(resp.Results), source)
	return err
}

func orDash(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "-"
	}
	return *s
}
