// Команда loadtest нагружает HTTP API order-service и печатает сводку по задержкам.
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
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

type loadMode string

const (
	modePlace    loadMode = "place"
	modePlaceGet loadMode = "place-get"

	methodPlace    = "PlaceOrder"
	methodGet      = "GetOrder"
	methodScenario = "scenario"
)

type config struct {
	baseURL       string
	total         int
	duration      time.Duration
	concurrency   int
	timeout       time.Duration
	mode          loadMode
	skus          []string
	quantity      int
	price         decimal.Decimal
	allowRejected bool
	outputPath    string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Statuses  map[string]int64 `json:"statuses"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt       time.Time               `json:"started_at"`
	DurationSeconds float64                 `json:"duration_seconds"`
	Total           int64                   `json:"total_scenarios"`
	Failed          int64                   `json:"failed_scenarios"`
	ErrorRate       float64                 `json:"error_rate"`
	RPS             float64                 `json:"rps"`
	Methods         map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	failed    int64
	statuses  map[string]int64
	latencies []float64
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

func newCollector() *collector {
	return &collector{methods: make(map[string]*methodStats)}
}

func (c *collector) record(method string, latency time.Duration, status string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, found := c.methods[method]
	if !found {
		stats = &methodStats{statuses: make(map[string]int64)}
		c.methods[method] = stats
	}
	stats.calls++
	if !ok {
		stats.failed++
	}
	stats.statuses[status]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}
	for name, stats := range c.methods {
		statuses := make(map[string]int64, len(stats.statuses))
		for k, v := range stats.statuses {
			statuses[k] = v
		}
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.calls - stats.failed,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Statuses:  statuses,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}
	if scenario, ok := result.Methods[methodScenario]; ok {
		result.Total = scenario.Calls
		result.Failed = scenario.Failed
		result.ErrorRate = scenario.ErrorRate
	}
	if duration > 0 {
		result.RPS = float64(result.Total) / duration.Seconds()
	}
	return result
}

func parseConfig(args []string) (config, error) {
	var (
		cfg      config
		mode     string
		skus     string
		priceRaw string
	)
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "order-service base URL")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios when duration is not set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration")
	fs.IntVar(&cfg.concurrency, "concurrency", 20, "number of concurrent workers")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&mode, "mode", string(modePlace), "load mode: place | place-get")
	fs.StringVar(&skus, "skus", "iphone_13", "comma-separated sku codes for each order")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity per line item")
	fs.StringVar(&priceRaw, "price", "1200.00", "price per line item")
	fs.BoolVar(&cfg.allowRejected, "allow-rejected", true, "count 409 out-of-stock as success")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	switch loadMode(strings.TrimSpace(mode)) {
	case modePlace, modePlaceGet:
		cfg.mode = loadMode(strings.TrimSpace(mode))
	default:
		return config{}, fmt.Errorf("unsupported mode: %s", mode)
	}
	for _, sku := range strings.Split(skus, ",") {
		if sku = strings.TrimSpace(sku); sku != "" {
			cfg.skus = append(cfg.skus, sku)
		}
	}
	price, err := decimal.NewFromString(strings.TrimSpace(priceRaw))
	if err != nil {
		return config{}, fmt.Errorf("parse price: %w", err)
	}
	cfg.price = price
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")

	switch {
	case cfg.baseURL == "":
		return config{}, errors.New("url is required")
	case cfg.duration < 0:
		return config{}, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return config{}, errors.New("total must be > 0 when duration is not set")
	case cfg.concurrency <= 0:
		return config{}, errors.New("concurrency must be > 0")
	case cfg.timeout <= 0:
		return config{}, errors.New("timeout must be > 0")
	case len(cfg.skus) == 0:
		return config{}, errors.New("at least one sku is required")
	case cfg.quantity < 0 || cfg.price.IsNegative():
		return config{}, errors.New("quantity and price must be non-negative")
	}
	return cfg, nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	result := run(context.Background(), cfg, &http.Client{Timeout: cfg.timeout})
	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, client *http.Client) report {
	startedAt := time.Now()
	col := newCollector()
	body := orderBody(cfg)

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for range cfg.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				runScenario(ctx, client, cfg, body, col)
			}
		}()
	}

	dispatchJobs(ctx, jobs, cfg)
	wg.Wait()
	return col.buildReport(startedAt, time.Since(startedAt))
}

func orderBody(cfg config) []byte {
	req := domain.OrderRequest{}
	for _, sku := range cfg.skus {
		req.LineItems = append(req.LineItems, domain.LineItemRequest{SKUCode: sku, Quantity: cfg.quantity, Price: cfg.price})
	}
	body, _ := json.Marshal(req)
	return body
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	var deadline <-chan time.Time
	if cfg.duration > 0 {
		timer := time.NewTimer(cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}
	for i := 0; cfg.duration > 0 || i < cfg.total; i++ {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}

func runScenario(ctx context.Context, client *http.Client, cfg config, body []byte, col *collector) {
	start := time.Now()
	status, ok := "ok", true
	defer func() { col.record(methodScenario, time.Since(start), status, ok) }()

	code, orderNumber, err := placeOrder(ctx, client, cfg, body, col)
	if err != nil {
		status, ok = "error", false
		return
	}
	if code != http.StatusCreated {
		status = strconv.Itoa(code)
		ok = code == http.StatusConflict && cfg.allowRejected
		return
	}
	if cfg.mode != modePlaceGet {
		return
	}
	if code, err := getOrder(ctx, client, cfg, orderNumber, col); err != nil || code != http.StatusOK {
		status, ok = "get_failed", false
	}
}

func placeOrder(ctx context.Context, client *http.Client, cfg config, body []byte, col *collector) (int, string, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/api/order", bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		col.record(methodPlace, time.Since(start), "error", false)
		return 0, "", err
	}
	defer resp.Body.Close()

	var decoded struct {
		OrderNumber string `json:"orderNumber"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	ok := resp.StatusCode == http.StatusCreated || (resp.StatusCode == http.StatusConflict && cfg.allowRejected)
	col.record(methodPlace, time.Since(start), strconv.Itoa(resp.StatusCode), ok)
	return resp.StatusCode, decoded.OrderNumber, nil
}

func getOrder(ctx context.Context, client *http.Client, cfg config, orderNumber string, col *collector) (int, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.baseURL+"/api/order/"+orderNumber, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		col.record(methodGet, time.Since(start), "error", false)
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	col.record(methodGet, time.Since(start), strconv.Itoa(resp.StatusCode), resp.StatusCode == http.StatusOK)
	return resp.StatusCode, nil
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- путь задаёт оператор явно через флаг -output.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(w, "Load test summary")
	_, _ = fmt.Fprintf(w, "mode=%s total=%d failed=%d error_rate=%.4f duration=%.2fs rps=%.2f\n",
		cfg.mode, result.Total, result.Failed, result.ErrorRate, result.DurationSeconds, result.RPS)

	names := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		stats := result.Methods[name]
		_, _ = fmt.Fprintf(w, "%s: calls=%d failed=%d p50=%.2fms p95=%.2fms p99=%.2fms\n",
			name, stats.Calls, stats.Failed, stats.LatencyMs.P50, stats.LatencyMs.P95, stats.LatencyMs.P99)
	}
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

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
