package service

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	s := New(Config{Log: log.NewLogger(log.DiscardHandler())})
	assert.Equal(t, DefaultHealthzAddr, s.healthz.addr)
	assert.Equal(t, DefaultMetricsAddr, s.metrics.addr)
}

func TestNewUsesConfiguredAddrs(t *testing.T) {
	s := New(Config{
		HealthzAddr: "127.0.0.1:18080",
		MetricsAddr: "127.0.0.1:17300",
		Log:         log.NewLogger(log.DiscardHandler()),
	})
	assert.Equal(t, "127.0.0.1:18080", s.healthz.addr)
	assert.Equal(t, "127.0.0.1:17300", s.metrics.addr)
}

func TestHealthzHandle(t *testing.T) {
	h := NewHealthzServer(DefaultHealthzAddr, log.NewLogger(log.DiscardHandler()))

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestShutdownBeforeStart(t *testing.T) {
	s := New(Config{Log: log.NewLogger(log.DiscardHandler())})
	require.NoError(t, s.healthz.Shutdown())
	require.NoError(t, s.metrics.Shutdown())
}
