package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// StartServer exposes the Prometheus scrape endpoint on its own port, for
// services whose main listener should stay private to the API surface. The
// returned function shuts the listener down.
//
// The port is bound before StartServer returns, so an occupied port is
// reported at startup rather than from inside the serve goroutine. Binding
// failure is logged and yields a no-op shutdown; the service runs unscraped.
func StartServer(port int) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		slog.Error("metrics listener failed to bind", "addr", server.Addr, "error", err)
		return func(context.Context) error { return nil }
	}

	go func() {
		slog.Info("metrics listener started", "addr", server.Addr)
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics listener failed", "error", err)
		}
	}()

	return server.Shutdown
}
