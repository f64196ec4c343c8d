package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
)

func findFreePort(t *testing.T) int {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func waitListening(t *testing.T, addr string) {
	t.Helper()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStartMetricsServer_Endpoints(t *testing.T) {
	port := findFreePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler("test", "abc")
	healthHandler.RegisterChecker("storage", healthcheck.NewFuncChecker("storage", func(context.Context) error { return nil }))
	srv := startMetricsServer(ctx, addr, log.WithField("test", "http"), healthHandler)
	require.NotNil(t, srv)
	waitListening(t, addr)

	status, body := getBody(t, "http://"+addr+"/metrics")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body)

	status, body = getBody(t, "http://"+addr+"/healthz")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"status":"healthy"`)

	status, body = getBody(t, "http://"+addr+"/livez")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body)

	status, body = getBody(t, "http://"+addr+"/readyz")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ready", body)
}

func TestStartMetricsServer_ShutdownOnCancel(t *testing.T) {
	port := findFreePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	startMetricsServer(ctx, addr, log.WithField("test", "http-shutdown"), healthcheck.NewHandler("test", ""))
	waitListening(t, addr)

	cancel()
	require.Eventually(t, func() bool {
		_, err := http.Get("http://" + addr + "/livez")
		return err != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestShutdownHelpers(t *testing.T) {
	logger := log.WithField("test", "shutdown")

	called := false
	done := make(chan struct{})
	close(done)
	shutdownOutboxWorker(func() { called = true }, done, logger)
	require.True(t, called)

	require.NotPanics(t, func() {
		shutdownOutboxWorker(nil, nil, logger)
		shutdownHTTP(nil, logger)
	})
}
