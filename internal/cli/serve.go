package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/churchbooks-backend/internal/api"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/config"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/logging"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port int
}

func newServeCommand(global *GlobalFlags) *cobra.Command {
	flags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = flags.Port
			}
			return RunServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&flags.Port, "port", 8085, "port to listen on (overrides server.port)")
	return cmd
}

// RunServe runs the API server until ctx is cancelled or the process is
// signalled, then shuts down gracefully.
func RunServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coord, store, err := openCoordinator(ctx, cfg, logging.NewLoggerWithSystem(cfg.Observability.Logging, "reconcile"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	apiCfg := api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if len(apiCfg.AllowedOrigins) == 0 {
		apiCfg.AllowedOrigins = api.DefaultConfig().AllowedOrigins
	}

	server := api.NewServer(apiCfg, coord.Repository(), coord, logger)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start blocks until shutdown
	if err := server.Start(); err != nil {
		stop()
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
