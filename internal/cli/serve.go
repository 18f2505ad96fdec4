package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaminalder/ocean-tic-tac-toe/internal/app"
	"github.com/jaminalder/ocean-tic-tac-toe/internal/config"
	"github.com/jaminalder/ocean-tic-tac-toe/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the game as a single web page",
		Long:  "Serve the game as a single web page.\n\n" + config.Usage(),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
			}
			return serve(ctx, ln, cfg, cfg.Logger())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file; environment variables override it")
	return cmd
}

// serve runs the HTTP server on ln until ctx is done, then shuts down within
// cfg.ShutdownTimeout.
func serve(ctx context.Context, ln net.Listener, cfg *config.Config, logger *slog.Logger) error {
	log := logger.With("component", "server")

	svc := app.NewService(logger)
	go svc.RunJanitor(ctx, cfg.SessionTTL, cfg.SweepInterval)
	srv := &http.Server{
		Handler:           web.NewServer(svc, web.Options{Logger: logger, Heartbeat: cfg.Heartbeat}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}
