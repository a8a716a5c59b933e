package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kvora49/Lead-finder-sub001/internal/config"
	"github.com/kvora49/Lead-finder-sub001/internal/logger"
)

type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "leadfinder",
		Short: "Find business leads for a keyword and location",
		Long: `leadfinder expands a keyword and location into a handful of search
phrasings, pages through a places provider for each, and returns one
deduplicated list of leads. Results are cached for a week.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "recent" {
				return nil
			}
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = a.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = a.logFormat
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.leadfinder.yaml)")
	root.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "console", "log format: console or json")

	root.AddCommand(
		newSearchCmd(a),
		newServeCmd(a),
		newCacheCmd(a),
		newRecentCmd(),
		newVersionCmd(),
	)
	return root
}

// logger builds the process logger. The interactive view owns the terminal,
// so it logs to a file instead.
func (a *app) logger(toFile bool) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if toFile {
		path := logPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
		log, err = logger.NewFile(a.cfg.Log.Level, path)
	} else {
		log, err = logger.New(a.cfg.Log.Level, a.cfg.Log.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	a.log = log
	return log, nil
}

func logPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "leadfinder", "leadfinder.log")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "leadfinder "+version)
		},
	}
}
