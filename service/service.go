// Package service exposes the pipeline's operational HTTP surface: a
// liveness endpoint for the CI host and the Prometheus metrics endpoint.
// Neither participates in pipeline control flow.
package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/helioslab/sim-ci/metrics"
)

const (
	// DefaultHealthzAddr answers liveness probes from the CI host.
	DefaultHealthzAddr = "0.0.0.0:8080"
	// DefaultMetricsAddr serves the Prometheus scrape endpoint.
	DefaultMetricsAddr = "0.0.0.0:7300"
)

// Config holds the listen addresses for the operational servers.
type Config struct {
	HealthzAddr string
	MetricsAddr string
	Log         log.Logger
}

// Service runs the healthz and metrics servers for one process lifetime.
type Service struct {
	healthz *HealthzServer
	metrics *MetricsServer
	log     log.Logger
}

// New creates the operational service. Empty addresses fall back to the
// defaults.
func New(cfg Config) *Service {
	if cfg.HealthzAddr == "" {
		cfg.HealthzAddr = DefaultHealthzAddr
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = DefaultMetricsAddr
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}

	return &Service{
		healthz: NewHealthzServer(cfg.HealthzAddr, cfg.Log),
		metrics: NewMetricsServer(cfg.MetricsAddr, cfg.Log),
		log:     cfg.Log,
	}
}

// Start brings up both servers in the background. Listen failures are
// logged and counted; the pipeline runs regardless.
func (s *Service) Start(ctx context.Context) {
	s.log.Info("Starting operational servers",
		"healthz", s.healthz.addr, "metrics", s.metrics.addr)

	go func() {
		if err := s.healthz.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Healthz server failed", "error", err)
			metrics.RecordErrorDetails("healthz server failed", err)
		}
	}()

	go func() {
		if err := s.metrics.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Metrics server failed", "error", err)
			metrics.RecordErrorDetails("metrics server failed", err)
		}
	}()
}

// Shutdown stops both servers.
func (s *Service) Shutdown() {
	if err := s.healthz.Shutdown(); err != nil {
		s.log.Warn("Healthz server shutdown failed", "error", err)
	}
	if err := s.metrics.Shutdown(); err != nil {
		s.log.Warn("Metrics server shutdown failed", "error", err)
	}
	s.log.Info("Operational servers stopped")
}
