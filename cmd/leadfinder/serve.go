package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kvora49/Lead-finder-sub001/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP scrape service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if a.cfg.Server.Secret == "" {
				return errors.New("server.secret must be set (LEADFINDER_SERVER_SECRET)")
			}

			log, err := a.logger(false)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, closeStore, err := newService(ctx, a.cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			acct, closeLedger, err := newAccountant(a.cfg)
			if err != nil {
				return err
			}
			defer closeLedger()

			return server.New(svc, acct, a.cfg.Server.Secret, log).
				Run(ctx, a.cfg.Server.Addr, a.cfg.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
