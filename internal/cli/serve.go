package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/openstars/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// NewAPIHandler builds the HTTP API of app, with /metrics served from the
// app's own registry.
func NewAPIHandler(app *App, version string, logger *slog.Logger) http.Handler {
	return httpadapter.NewHandler(app.Orchestrator,
		httpadapter.WithLogger(logger),
		httpadapter.WithVersion(version),
		httpadapter.WithMetricsHandler(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})),
	)
}

// Serve runs the HTTP API on ln until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	// Streaming requests end with ctx instead of holding up Shutdown.
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}
