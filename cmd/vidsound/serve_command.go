package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vidsound/internal/bootstrap"
	"vidsound/internal/infra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(sigCtx)

			return ctx.withServices(cmd, true, func(svc *bootstrap.Services) error {
				router, err := svc.Router()
				if err != nil {
					return err
				}
				server := infra.NewHTTPServer(svc.Config, router)

				g, gctx := errgroup.WithContext(sigCtx)
				g.Go(func() error {
					svc.Logger.Info().Str("addr", server.Addr()).Msg("API listening")
					return server.Start()
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), svc.Config.GenerationTimeout+svc.Config.HTTPIdleTimeout)
					defer cancel()
					return server.Shutdown(shutdownCtx)
				})
				if err := g.Wait(); err != nil {
					return err
				}
				svc.Logger.Info().Msg("server stopped")
				return nil
			})
		},
	}
}
