package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	pptxhtml "github.com/VantageDataChat/GoPPTHTML"
	"github.com/VantageDataChat/GoPPTHTML/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = a.cfg.Server.Port
			}
			return a.serve(a.context(cmd), port)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (default from config)")
	return cmd
}

func (a *app) serve(ctx context.Context, port string) error {
	store, err := a.openImages(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := server.Options{
		Images:         store,
		URLPrefix:      a.cfg.Images.URLPrefix,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
		Workers:        a.cfg.Workers,
		SlideWidthPx:   float64(a.cfg.Render.SlideWidthPx),
		SlideHeightPx:  float64(a.cfg.Render.SlideHeightPx),
	}
	if r := a.oracle(); r != nil {
		defer r.Close()
		opts.Oracle = pptxhtml.StyleOracle(r)
	}
	httpServer := server.New(opts).NewHTTPServer(":" + port)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", port).Str("images", a.cfg.Images.Backend).Msg("Starting server")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	return g.Wait()
}
