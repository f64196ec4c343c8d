package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeShop имитирует storefront API ровно настолько, насколько его использует нагрузочный тест.
type fakeShop struct {
	mu           sync.Mutex
	orders       map[string]orderRequest
	seq          atomic.Int64
	storeDeleted atomic.Bool
	failOrders   atomic.Bool
}

func newFakeShop(t *testing.T) (*fakeShop, *httptest.Server) {
	t.Helper()

	shop := &fakeShop{orders: make(map[string]orderRequest)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/stores", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"_id": "store-1"})
	})
	mux.HandleFunc("POST /api/stores/{storeId}/products", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Price float64 `json:"price"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		id := fmt.Sprintf("product-%d", shop.seq.Add(1))
		writeJSON(w, http.StatusCreated, map[string]any{"_id": id, "price": body.Price, "store": r.PathValue("storeId")})
	})
	mux.HandleFunc("DELETE /api/stores/{storeId}", func(w http.ResponseWriter, _ *http.Request) {
		shop.storeDeleted.Store(true)
		writeJSON(w, http.StatusOK, map[string]any{"msg": "deleted"})
	})
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		if shop.failOrders.Load() {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"msg": "Server Error"})
			return
		}
		var req orderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "Invalid JSON body"})
			return
		}
		id := fmt.Sprintf("order-%d", shop.seq.Add(1))
		shop.mu.Lock()
		shop.orders[id] = req
		shop.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"_id": id})
	})
	mux.HandleFunc("GET /api/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		shop.mu.Lock()
		_, ok := shop.orders[r.PathValue("orderId")]
		shop.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"msg": "Order not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"_id": r.PathValue("orderId")})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return shop, srv
}

func (s *fakeShop) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func baseConfig(url string) config {
	return config{
		baseURL:     url,
		total:       6,
		concurrency: 3,
		timeout:     2 * time.Second,
		mode:        modeCreate,
		items:       2,
		quantity:    3,
		price:       1.5,
		userTag:     "load",
		cleanup:     true,
	}
}

func TestParseMode(t *testing.T) {
	mode, err := parseMode(" create-get ")
	require.NoError(t, err)
	require.Equal(t, modeCreateGet, mode)

	mode, err = parseMode("create")
	require.NoError(t, err)
	require.Equal(t, modeCreate, mode)

	_, err = parseMode("create-pay")
	require.ErrorContains(t, err, "unsupported mode")
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]string{
		"-url=http://shop:3000/",
		"-mode=create-get",
		"-total=10",
		"-concurrency=4",
		"-timeout=1s",
		"-items=3",
		"-quantity=2",
		"-price=0",
		"-cleanup=false",
	})
	require.NoError(t, err)
	require.Equal(t, "http://shop:3000", cfg.baseURL)
	require.Equal(t, modeCreateGet, cfg.mode)
	require.Equal(t, 10, cfg.total)
	require.True(t, cfg.totalSet)
	require.Equal(t, 4, cfg.concurrency)
	require.Equal(t, time.Second, cfg.timeout)
	require.Equal(t, 3, cfg.items)
	require.Equal(t, 2, cfg.quantity)
	require.Zero(t, cfg.price)
	require.False(t, cfg.cleanup)

	cfg, err = parseConfig([]string{"-duration=2m"})
	require.NoError(t, err)
	require.False(t, cfg.totalSet)
	require.Equal(t, 2*time.Minute, cfg.duration)
	require.Equal(t, "duration:2m0s", runTarget(cfg))
}

func TestParseConfig_Errors(t *testing.T) {
	cases := map[string][]string{
		"url is required":          {"-url= "},
		"duration must be >= 0":    {"-duration=-1s"},
		"total must be > 0 when d": {"-total=0"},
		"explicitly set":           {"-duration=1s", "-total=0"},
		"concurrency must be > 0":  {"-concurrency=0"},
		"timeout must be > 0":      {"-timeout=0s"},
		"items must be > 0":        {"-items=0"},
		"quantity must be > 0":     {"-quantity=0"},
		"price must be":            {"-price=-1"},
		"user-tag is required":     {"-user-tag= "},
		"unsupported mode":         {"-mode=pay"},
		"invalid value":            {"-timeout=soon"},
	}

	for want, args := range cases {
		t.Run(want, func(t *testing.T) {
			_, err := parseConfig(args)
			require.ErrorContains(t, err, want)
		})
	}
}

func TestDispatchJobs(t *testing.T) {
	collect := func(ctx context.Context, cfg config) []int {
		jobs := make(chan int, 16)
		var got []int
		done := make(chan struct{})
		go func() {
			defer close(done)
			for id := range jobs {
				got = append(got, id)
			}
		}()
		dispatchJobs(ctx, jobs, cfg)
		<-done
		return got
	}

	require.Equal(t, []int{0, 1, 2}, collect(context.Background(), config{total: 3}))
	require.Len(t, collect(context.Background(), config{total: 4, totalSet: true, duration: time.Minute}), 4)

	got := collect(context.Background(), config{duration: 20 * time.Millisecond})
	require.NotEmpty(t, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Empty(t, collect(ctx, config{total: 1000}))
}

func TestCollectorAndReport(t *testing.T) {
	c := newCollector()
	c.record(scenarioName, 10*time.Millisecond, "ok", true)
	c.record(scenarioName, 30*time.Millisecond, "failed", false)
	c.record("CreateOrder", 5*time.Millisecond, "201", true)
	c.record("CreateOrder", 7*time.Millisecond, "500", false)

	r := c.buildReport(time.Now(), 2*time.Second)
	require.EqualValues(t, 2, r.TotalScenarios)
	require.EqualValues(t, 1, r.SuccessScenarios)
	require.EqualValues(t, 1, r.FailedScenarios)
	require.InDelta(t, 0.5, r.ErrorRate, 1e-9)
	require.InDelta(t, 1.0, r.RPS, 1e-9)
	require.InDelta(t, 20.0, r.ScenarioLatencyMs.Avg, 1e-9)
	require.Equal(t, map[string]int64{"201": 1, "500": 1}, r.Calls["CreateOrder"].Codes)
}

func TestLatencyHelpers(t *testing.T) {
	require.Equal(t, latencySummary{}, buildLatencySummary(nil))
	require.Zero(t, percentile(nil, 50))
	require.Equal(t, 4.0, percentile([]float64{4}, 99))
	require.InDelta(t, 2.5, percentile([]float64{1, 2, 3, 4}, 50), 1e-9)

	s := buildLatencySummary([]float64{5, 1, 3})
	require.Equal(t, 1.0, s.Min)
	require.Equal(t, 5.0, s.Max)
	require.Equal(t, 3.0, s.P50)

	require.Zero(t, ratio(1, 0))
	require.InDelta(t, 0.25, ratio(1, 4), 1e-9)
	require.Equal(t, "count:5", runTarget(config{total: 5}))
	require.Equal(t, "duration:1s,max-total:5", runTarget(config{total: 5, totalSet: true, duration: time.Second}))
}

func TestWriteJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, writeJSONReport(path, report{TotalScenarios: 3}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got report
	require.NoError(t, json.Unmarshal(raw, &got))
	require.EqualValues(t, 3, got.TotalScenarios)

	require.ErrorContains(t, writeJSONReport(".", report{}), "must point to a file")
	require.ErrorContains(t, writeJSONReport("../escape.json", report{}), "inside current directory")
}

func TestRunScenario_CreateGet(t *testing.T) {
	shop, srv := newFakeShop(t)
	cfg := baseConfig(srv.URL)
	cfg.mode = modeCreateGet
	col := newCollector()
	client := newShopClient(srv.URL, time.Second, 1, col)

	fx, err := setupFixture(context.Background(), client, cfg, "run")
	require.NoError(t, err)
	require.Equal(t, "store-1", fx.storeID)
	require.Len(t, fx.products, 2)

	require.NoError(t, runScenario(context.Background(), client, cfg, fx, 7, "run"))
	require.Equal(t, 1, shop.orderCount())

	shop.mu.Lock()
	for _, order := range shop.orders {
		require.Equal(t, "load-run-7", order.UserName)
		require.Len(t, order.Items, 2)
		require.Equal(t, 3, order.Items[0].Quantity)
		require.InDelta(t, 9.0, order.TotalAmount, 1e-9)
	}
	shop.mu.Unlock()

	r := col.buildReport(time.Now(), time.Second)
	require.EqualValues(t, 1, r.Calls["GetOrder"].Success)
	require.EqualValues(t, 1, r.SuccessScenarios)
}

func TestRunScenario_Failures(t *testing.T) {
	shop, srv := newFakeShop(t)
	cfg := baseConfig(srv.URL)
	col := newCollector()
	client := newShopClient(srv.URL, time.Second, 1, col)
	fx := fixture{storeID: "store-1", products: []productRef{{ID: "p1", Price: 1}}}

	shop.failOrders.Store(true)
	err := runScenario(context.Background(), client, cfg, fx, 0, "run")
	require.ErrorContains(t, err, "unexpected status 500")

	r := col.buildReport(time.Now(), time.Second)
	require.EqualValues(t, 1, r.FailedScenarios)
	require.EqualValues(t, 1, r.Calls["CreateOrder"].Codes["500"])

	require.Error(t, client.getOrder(context.Background(), "missing"))
	require.EqualValues(t, 1, col.buildReport(time.Now(), time.Second).Calls["GetOrder"].Codes["404"])

	dead := newShopClient("http://127.0.0.1:1", 200*time.Millisecond, 1, col)
	require.Error(t, dead.getOrder(context.Background(), "x"))
	require.EqualValues(t, 1, col.buildReport(time.Now(), time.Second).Calls["GetOrder"].Codes[codeTransportError])
}

func TestRun(t *testing.T) {
	shop, srv := newFakeShop(t)
	cfg := baseConfig(srv.URL)
	cfg.mode = modeCreateGet
	cfg.outputPath = filepath.Join(t.TempDir(), "run-report.json")

	var out bytes.Buffer
	result, err := run(context.Background(), cfg, &out)
	require.NoError(t, err)
	require.EqualValues(t, 6, result.TotalScenarios)
	require.Zero(t, result.FailedScenarios)
	require.Equal(t, 6, shop.orderCount())
	require.True(t, shop.storeDeleted.Load())

	require.True(t, strings.HasPrefix(out.String(), "Load test summary"))
	require.Contains(t, out.String(), "CreateOrder: calls=6")
	require.Contains(t, out.String(), "mode=create-get run=count:6")

	_, err = os.Stat(cfg.outputPath)
	require.NoError(t, err)
}

func TestRun_SetupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "Please provide both name and location"})
	}))
	t.Cleanup(srv.Close)

	_, err := run(context.Background(), baseConfig(srv.URL), &bytes.Buffer{})
	require.ErrorContains(t, err, "setup fixture")
	require.ErrorContains(t, err, "unexpected status 400")
}
