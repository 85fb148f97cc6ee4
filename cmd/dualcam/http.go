package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"dualcam/internal/compositor"
	"dualcam/internal/logging"
	"dualcam/internal/stream"
	"dualcam/internal/ws"

	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"
	httpmdlwr "goa.design/goa/v3/http/middleware"
	"goa.design/goa/v3/middleware"
)

// requestIDHeader carries an incoming request id into the request logs
const requestIDHeader = "X-Request-Id"

// newMux mounts the preview, snapshot, status and health endpoints
func newMux(comp *compositor.Compositor, preview *stream.Preview, hub *ws.Hub, logger *zap.Logger) http.Handler {
	// Setup goa log adapter.
	var adapter middleware.Logger = logging.NewGoaLogger(logger)

	mux := goahttp.NewMuxer()
	mux.Handle(http.MethodGet, "/preview", preview.ServeHTTP)
	mux.Handle(http.MethodGet, "/snapshot", stream.NewSnapshotHandler(preview).ServeHTTP)
	mux.Handle(http.MethodGet, "/ws/status", ws.NewHandler(hub).ServeHTTP)
	mux.Handle(http.MethodGet, "/healthz", healthHandler(comp))

	var handler http.Handler = mux
	{
		handler = httpmdlwr.Log(adapter)(handler)
		handler = httpmdlwr.RequestID(httpmdlwr.RequestIDHeaderOption(requestIDHeader))(handler)
	}
	return handler
}

func healthHandler(comp *compositor.Compositor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := comp.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"state":    s.State.String(),
			"session":  s.Session.String(),
			"composed": s.Composed,
		})
	}
}

// handleHTTPServer starts an HTTP server on addr. It shuts the server down
// gracefully once ctx is done.
func handleHTTPServer(ctx context.Context, addr string, comp *compositor.Compositor, preview *stream.Preview, hub *ws.Hub, wg *sync.WaitGroup, errc chan error, logger *zap.Logger) {
	srv := &http.Server{Addr: addr, Handler: newMux(comp, preview, hub, logger), ReadHeaderTimeout: time.Second * 60}
	for _, p := range []string{"/preview", "/snapshot", "/ws/status", "/healthz"} {
		logger.Info("HTTP mounted", zap.String("pattern", p))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			logger.Info("HTTP server listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()

		<-ctx.Done()
		logger.Info("shutting down HTTP server", zap.String("addr", addr))

		// Shutdown gracefully with a 30s timeout.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("failed to shutdown", zap.Error(err))
		}
	}()
}
