package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vit0-9/netecho/config"
	"github.com/vit0-9/netecho/pkg/logger"
)

// NewRootCmd creates and returns the root cobra command.
func NewRootCmd() *cobra.Command {
	var (
		envFile string
		dryRun  bool
	)
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "netecho",
		Short: "HTTP echo service",
		Long: `netecho answers every request with what the server saw of it: client and
server addresses, reverse DNS, registry ownership and the HTTP request itself.

Configuration is read from NETECHO_* environment variables, optionally
loaded from a .env file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger.Init(cfg.LogLevel, cfg.LogPretty, cfg.AppVersion)

			app, err := NewApp(cfg)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "configuration OK, would listen on %s\n", cfg.Addr)
				return app.Shutdown(cmd.Context())
			}

			return run(cmd.Context(), app)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	cmd.Flags().String("log-level", "", "Log level: debug|info|warn|error (default info)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load environment variables from this file instead of .env")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate configuration without serving")

	_ = v.BindPFlag(config.KeyAddr, cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag(config.KeyLogLevel, cmd.Flags().Lookup("log-level"))

	return cmd
}

// run serves until SIGINT or SIGTERM, then shuts down gracefully.
func run(ctx context.Context, app *App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go app.warmRegistry(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case err := <-errCh:
		app.geo.Close()
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.Config.ShutdownTimeout)
	defer shutdownCancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
