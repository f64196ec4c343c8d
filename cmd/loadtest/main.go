package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	codeTransportError = "transport_error"
	codeDecodeError    = "decode_error"
	scenarioName       = "scenario"
)

type loadMode string

const (
	modeCreate    loadMode = "create"
	modeCreateGet loadMode = "create-get"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	items       int
	quantity    int
	price       float64
	userTag     string
	cleanup     bool
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type callReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time             `json:"started_at"`
	DurationSeconds   float64               `json:"duration_seconds"`
	TotalScenarios    int64                 `json:"total_scenarios"`
	SuccessScenarios  int64                 `json:"success_scenarios"`
	FailedScenarios   int64                 `json:"failed_scenarios"`
	ErrorRate         float64               `json:"error_rate"`
	RPS               float64               `json:"rps"`
	ScenarioLatencyMs latencySummary        `json:"scenario_latency_ms"`
	Calls             map[string]callReport `json:"calls"`
}

type callStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu    sync.Mutex
	calls map[string]*callStats
}

func newCollector() *collector {
	return &collector{calls: make(map[string]*callStats)}
}

func (c *collector) record(name string, latency time.Duration, code string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, found := c.calls[name]
	if !found {
		stats = &callStats{codes: make(map[string]int64)}
		c.calls[name] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (s *callStats) report() callReport {
	codes := make(map[string]int64, len(s.codes))
	for code, count := range s.codes {
		codes[code] = count
	}
	return callReport{
		Calls:     s.calls,
		Success:   s.success,
		Failed:    s.failed,
		ErrorRate: ratio(s.failed, s.calls),
		Codes:     codes,
		LatencyMs: buildLatencySummary(s.latencies),
	}
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Calls:           make(map[string]callReport, len(c.calls)),
	}

	if scenario := c.calls[scenarioName]; scenario != nil {
		result.TotalScenarios = scenario.calls
		result.SuccessScenarios = scenario.success
		result.FailedScenarios = scenario.failed
		result.ErrorRate = ratio(scenario.failed, scenario.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenario.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.calls {
		result.Calls[name] = stats.report()
	}
	return result
}

func parseConfig(args []string) (config, error) {
	var (
		cfg       config
		modeValue string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.baseURL, "url", "http://localhost:3000", "storefront base URL")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m, 15m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | create-get")
	fs.IntVar(&cfg.items, "items", 2, "number of distinct products per order")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity of every order item")
	fs.Float64Var(&cfg.price, "price", 9.99, "price of every fixture product")
	fs.StringVar(&cfg.userTag, "user-tag", "load", "order userName prefix")
	fs.BoolVar(&cfg.cleanup, "cleanup", true, "delete the fixture store (and its products) after the run")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")

	switch {
	case cfg.baseURL == "":
		return cfg, errors.New("url is required")
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.items <= 0:
		return cfg, errors.New("items must be > 0")
	case cfg.quantity <= 0:
		return cfg, errors.New("quantity must be > 0")
	case cfg.price < 0 || math.IsNaN(cfg.price) || math.IsInf(cfg.price, 0):
		return cfg, errors.New("price must be a finite number >= 0")
	case strings.TrimSpace(cfg.userTag) == "":
		return cfg, errors.New("user-tag is required")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeCreate:
		return modeCreate, nil
	case modeCreateGet:
		return modeCreateGet, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	result, err := run(context.Background(), cfg, os.Stdout)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// run создаёт тестовый магазин с товарами, гоняет сценарии и печатает отчёт.
func run(ctx context.Context, cfg config, out io.Writer) (report, error) {
	col := newCollector()
	client := newShopClient(cfg.baseURL, cfg.timeout, cfg.concurrency, col)

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())

	fx, err := setupFixture(ctx, client, cfg, runID)
	if err != nil {
		return report{}, fmt.Errorf("setup fixture: %w", err)
	}
	if cfg.cleanup {
		defer func() {
			if err := client.deleteStore(context.Background(), fx.storeID); err != nil {
				log.WithError(err).WithField("store_id", fx.storeID).Warn("cleanup fixture store")
			}
		}()
	}

	jobs := make(chan int, cfg.concurrency*2)
	var (
		failures int64
		wg       sync.WaitGroup
	)
	for range cfg.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := runScenario(ctx, client, cfg, fx, id, runID); err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	dispatchJobs(ctx, jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	printReport(out, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			return result, fmt.Errorf("write report: %w", err)
		}
	}
	return result, nil
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	var deadline <-chan time.Time
	if cfg.duration > 0 {
		timer := time.NewTimer(cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; ; i++ {
		if (cfg.duration <= 0 || cfg.totalSet) && i >= cfg.total {
			return
		}
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}

// fixture — магазин и товары, на которые оформляются заказы.
type fixture struct {
	storeID  string
	products []productRef
}

type productRef struct {
	ID    string  `json:"_id"`
	Price float64 `json:"price"`
}

func setupFixture(ctx context.Context, client *shopClient, cfg config, runID string) (fixture, error) {
	storeID, err := client.createStore(ctx, "loadtest-"+runID, "loadtest")
	if err != nil {
		return fixture{}, err
	}

	fx := fixture{storeID: storeID}
	for i := range cfg.items {
		product, err := client.createProduct(ctx, storeID, fmt.Sprintf("loadtest-product-%d", i), cfg.price)
		if err != nil {
			return fixture{}, err
		}
		fx.products = append(fx.products, product)
	}
	return fx, nil
}

type orderItemRequest struct {
	Product  productRef `json:"product"`
	Quantity int        `json:"quantity"`
}

type orderRequest struct {
	UserName    string             `json:"userName"`
	StoreID     string             `json:"storeId"`
	Items       []orderItemRequest `json:"items"`
	TotalAmount float64            `json:"totalAmount"`
}

func runScenario(ctx context.Context, client *shopClient, cfg config, fx fixture, index int, runID string) (err error) {
	scenarioStart := time.Now()
	defer func() {
		code := "ok"
		if err != nil {
			code = "failed"
		}
		client.col.record(scenarioName, time.Since(scenarioStart), code, err == nil)
	}()

	req := orderRequest{
		UserName: fmt.Sprintf("%s-%s-%d", cfg.userTag, runID, index),
		StoreID:  fx.storeID,
	}
	for _, product := range fx.products {
		req.Items = append(req.Items, orderItemRequest{Product: product, Quantity: cfg.quantity})
		req.TotalAmount += product.Price * float64(cfg.quantity)
	}

	orderID, err := client.createOrder(ctx, req)
	if err != nil {
		return err
	}
	if orderID == "" {
		return errors.New("create response returned empty order id")
	}

	if cfg.mode == modeCreateGet {
		return client.getOrder(ctx, orderID)
	}
	return nil
}

// shopClient: минимальный HTTP-клиент storefront API, каждый вызов пишется в collector.
type shopClient struct {
	baseURL string
	http    *http.Client
	col     *collector
}

func newShopClient(baseURL string, timeout time.Duration, conns int, col *collector) *shopClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = conns
	return &shopClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout, Transport: transport},
		col:     col,
	}
}

type idResponse struct {
	ID string `json:"_id"`
}

func (c *shopClient) createStore(ctx context.Context, name, location string) (string, error) {
	var resp idResponse
	body := map[string]string{"name": name, "location": location}
	if err := c.do(ctx, "CreateStore", http.MethodPost, "/api/stores", body, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *shopClient) createProduct(ctx context.Context, storeID, name string, price float64) (productRef, error) {
	var resp productRef
	body := map[string]any{"name": name, "price": price}
	if err := c.do(ctx, "CreateProduct", http.MethodPost, "/api/stores/"+storeID+"/products", body, http.StatusCreated, &resp); err != nil {
		return productRef{}, err
	}
	return resp, nil
}

func (c *shopClient) createOrder(ctx context.Context, req orderRequest) (string, error) {
	var resp idResponse
	if err := c.do(ctx, "CreateOrder", http.MethodPost, "/api/orders", req, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *shopClient) getOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, "GetOrder", http.MethodGet, "/api/orders/"+orderID, nil, http.StatusOK, nil)
}

func (c *shopClient) deleteStore(ctx context.Context, storeID string) error {
	return c.do(ctx, "DeleteStore", http.MethodDelete, "/api/stores/"+storeID, nil, http.StatusOK, nil)
}

// do выполняет запрос и ожидает статус want; при out != nil тело ответа декодируется в out.
func (c *shopClient) do(ctx context.Context, name, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", name, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.col.record(name, time.Since(start), codeTransportError, false)
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	if err != nil {
		c.col.record(name, latency, codeTransportError, false)
		return fmt.Errorf("%s: read response: %w", name, err)
	}

	code := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode != want {
		c.col.record(name, latency, code, false)
		return fmt.Errorf("%s: unexpected status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			c.col.record(name, latency, codeDecodeError, false)
			return fmt.Errorf("%s: decode response: %w", name, err)
		}
	}
	c.col.record(name, latency, code, true)
	return nil
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(out io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(out, "Load test summary")
	_, _ = fmt.Fprintf(out, "mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	_, _ = fmt.Fprintf(out, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	_, _ = fmt.Fprintf(out, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	names := make([]string, 0, len(result.Calls))
	for name := range result.Calls {
		if name == scenarioName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Calls[name]
		_, _ = fmt.Fprintf(out,
			"%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile считает перцентиль с линейной интерполяцией между соседними значениями.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
