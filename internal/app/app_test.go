package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/shopflow/internal/health"
)

func TestMetricsMux(t *testing.T) {
	h := healthcheck.NewHandler("order-service", "test")
	h.RegisterChecker("always-down", healthcheck.PingChecker("always-down", func(context.Context) error {
		return context.DeadlineExceeded
	}))
	srv := httptest.NewServer(newMetricsMux(h))
	defer srv.Close()

	cases := map[string]int{
		"/metrics": http.StatusOK,
		"/livez":   http.StatusOK,
		"/readyz":  http.StatusServiceUnavailable,
		"/healthz": http.StatusServiceUnavailable,
	}
	for path, want := range cases {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		_ = resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func localConfig() Config {
	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	return cfg
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := localConfig()
	cfg.Delivery = DeliveryOutbox
	cfg.OutboxPollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := localConfig()
	cfg.StorageDriver = "sqlite"

	err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRunInventory_StopsOnContextCancel(t *testing.T) {
	cfg := DefaultInventoryConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.Seed = map[string]int64{"iphone_13": 10}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, RunInventory(ctx, cfg))
}

func TestRunNotification_InvalidConfig(t *testing.T) {
	cfg := DefaultNotificationConfig()
	cfg.GroupID = ""

	err := RunNotification(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
