package service

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// HealthzServer reports process liveness. It says nothing about pipeline
// outcomes; a run with failing suites is still a live service.
type HealthzServer struct {
	addr   string
	log    log.Logger
	ctx    context.Context
	server *http.Server
}

// NewHealthzServer creates a healthz server listening on addr.
func NewHealthzServer(addr string, logger log.Logger) *HealthzServer {
	return &HealthzServer{addr: addr, log: logger}
}

// Start serves /healthz until the server is shut down.
func (h *HealthzServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	h.server = &http.Server{
		Handler: c.Handler(mux),
		Addr:    h.addr,
	}
	h.ctx = ctx
	return h.server.ListenAndServe()
}

// Shutdown stops the server.
func (h *HealthzServer) Shutdown() error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

// Handle answers liveness probes.
func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("Health check", "remote", r.RemoteAddr)
	w.Write([]byte("OK")) //nolint:errcheck
}
