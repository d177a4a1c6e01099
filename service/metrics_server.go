package service

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the Prometheus scrape endpoint with the pipeline's
// suite and coverage series.
type MetricsServer struct {
	addr   string
	log    log.Logger
	ctx    context.Context
	server *http.Server
}

// NewMetricsServer creates a metrics server listening on addr.
func NewMetricsServer(addr string, logger log.Logger) *MetricsServer {
	return &MetricsServer{addr: addr, log: logger}
}

// Start serves /metrics until the server is shut down.
func (m *MetricsServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m.server = &http.Server{
		Handler: mux,
		Addr:    m.addr,
	}
	m.ctx = ctx
	return m.server.ListenAndServe()
}

// Shutdown stops the server.
func (m *MetricsServer) Shutdown() error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(m.ctx)
}
