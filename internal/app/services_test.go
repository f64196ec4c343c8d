package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/events"
)

func TestNewAPI_RecordsEventsWhenEnabled(t *testing.T) {
	logger := log.WithField("test", "services")
	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), logger)
	require.NoError(t, err)

	m := metrics.NewShopMetricsWithRegisterer(prometheus.NewRegistry())
	api := newAPI(deps, events.NewRecorder(deps.outbox, m, logger), m, DefaultConfig(), logger)

	req := httptest.NewRequest(http.MethodPost, "/api/stores", strings.NewReader(`{"name":"Fresh Mart","location":"5th Ave"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := api.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	stores, err := deps.stores.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 1)

	req = httptest.NewRequest(http.MethodDelete, "/api/stores/"+stores[0].ID, nil)
	resp, err = api.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	pending, err := deps.outbox.PullPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, domain.EventTypeStoreDeleted, pending[0].EventType)
}

func TestNewAPI_DisabledRecorderWritesNoEvents(t *testing.T) {
	logger := log.WithField("test", "services-no-events")
	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), logger)
	require.NoError(t, err)

	api := newAPI(deps, events.NewRecorder(nil, nil, logger), nil, DefaultConfig(), logger)

	req := httptest.NewRequest(http.MethodPost, "/api/stores", strings.NewReader(`{"name":"Fresh Mart","location":"5th Ave"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := api.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	stats, err := deps.outbox.Stats(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
}
