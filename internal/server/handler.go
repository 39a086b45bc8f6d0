package server

import (
	"log/slog"
	"net/http"

	"github.com/dreschagin/asset-server/internal/assets"
	"github.com/dreschagin/asset-server/internal/httpx"
	"github.com/dreschagin/asset-server/internal/metrics"
)

// NewAssetHandler wraps the static file handler for root with the asset
// headers, metrics, request IDs and both request logs.
func NewAssetHandler(root string, accessLog *httpx.AccessLog, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	var handler http.Handler = assets.NewFileHandler(root)
	handler = httpx.WithHeaders(httpx.AssetHeaders, handler)
	handler = m.Middleware(handler)
	handler = httpx.WithRequestID(handler)
	handler = httpx.WithLogging(logger, handler)
	handler = accessLog.Middleware(handler)
	return handler
}

// NewOpsHandler serves /metrics, /healthz and /readyz for the side listener.
// Readiness follows the asset server's state.
func NewOpsHandler(m *metrics.Metrics, assetServer *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if assetServer.State() != StateServing {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", m.Handler())
	return mux
}
