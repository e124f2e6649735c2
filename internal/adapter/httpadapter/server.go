package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ArtifactSource provides the outputs of the last successful run.
type ArtifactSource interface {
	sharedobs.ReadinessChecker
	// Artifacts returns the rendered HTML and GeoJSON. ok is false until a
	// run has completed.
	Artifacts() (html, geojson []byte, ok bool)
}

// Server serves the rendered map alongside health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /, /regions.geojson, /healthz,
// /readyz, and /metrics routes.
func NewServer(addr string, src ArtifactSource, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", handleArtifact(src, "text/html; charset=utf-8", func(html, _ []byte) []byte { return html }))
	mux.HandleFunc("GET /regions.geojson", handleArtifact(src, "application/geo+json", func(_, gj []byte) []byte { return gj }))
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(src))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleArtifact(src ArtifactSource, contentType string, pick func(html, geojson []byte) []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		html, gj, ok := src.Artifacts()
		if !ok {
			sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  "no completed run",
			})
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(pick(html, gj)) //nolint:errcheck // client went away
	}
}
