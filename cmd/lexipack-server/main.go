package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/lexipack/internal/app"
	"github.com/at-ishikawa/lexipack/internal/bootstrap"
	"github.com/at-ishikawa/lexipack/internal/config"
	"github.com/at-ishikawa/lexipack/internal/server"
)

var (
	configFile string
	debugMode  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "lexipack-server",
		Short:         "lexipack lookup and language pack HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug mode")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("config.Load() > %w", err)
	}
	logger := app.NewLogger(cfg.Log, debugMode, os.Stderr)

	components, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("app.New() > %w", err)
	}

	lifecycle := bootstrap.New(cfg.Server.ShutdownTimeout)
	lifecycle.AddShutdownHook(func(context.Context) error {
		return components.Close()
	})

	mux := server.NewMux(
		server.NewLookupHandler(components.Resolver),
		server.NewPackHandler(components.Packs),
		server.NewProfileHandler(components.Profiles),
	)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.NewHandler(mux, cfg.Server.CORS.AllowedOrigins),
	}
	lifecycle.AddShutdownHook(srv.Shutdown)

	return lifecycle.Run(ctx, func(ctx context.Context) error {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}
