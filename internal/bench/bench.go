// Package bench drives concurrent checkouts against an order-service and
// checks that stock is conserved.
package bench

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"coffee-eshop-go/internal/shopclient"
)

type Config struct {
	Clients     []int64
	ProductID   int64
	Quantity    int
	Total       int
	Concurrency int
}

func (c Config) Validate() error {
	switch {
	case len(c.Clients) == 0:
		return errors.New("at least one client is required")
	case c.Total <= 0:
		return errors.New("total must be > 0")
	case c.Concurrency <= 0:
		return errors.New("concurrency must be > 0")
	case c.Quantity <= 0:
		return errors.New("quantity must be > 0")
	}
	return nil
}

const (
	OutcomeCommitted         = "committed"
	OutcomeAddRejected       = "add_rejected"
	OutcomeEmptyBasket       = shopclient.CodeEmptyBasket
	OutcomeInsufficientStock = shopclient.CodeInsufficientStock
	OutcomeCommitFailed      = shopclient.CodeCommitFailed
	OutcomeTransport         = "transport"
)

type Result struct {
	Timestamp       string         `json:"timestamp"`
	ProductID       int64          `json:"product_id"`
	Transactions    int            `json:"transactions"`
	Concurrency     int            `json:"concurrency"`
	DurationSeconds float64        `json:"duration_seconds"`
	Committed       int            `json:"committed"`
	Outcomes        map[string]int `json:"outcomes"`
	AvgLatencyMs    float64        `json:"avg_latency_ms"`
	P50LatencyMs    float64        `json:"p50_latency_ms"`
	P90LatencyMs    float64        `json:"p90_latency_ms"`
	P95LatencyMs    float64        `json:"p95_latency_ms"`
	P99LatencyMs    float64        `json:"p99_latency_ms"`
	ThroughputRPS   float64        `json:"throughput_rps"`
	FirstError      string         `json:"first_error,omitempty"`
	StockBefore     int            `json:"stock_before"`
	StockAfter      int            `json:"stock_after"`
	UnitsSold       int            `json:"units_sold"`
	Conserved       bool           `json:"conserved"`
}

type recorder struct {
	mu         sync.Mutex
	latencies  []float64
	outcomes   map[string]int
	unitsSold  int
	firstError string
}

func (r *recorder) record(latency time.Duration, outcome string, sold int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
	r.unitsSold += sold
	if outcome == OutcomeCommitted {
		r.latencies = append(r.latencies, float64(latency.Microseconds())/1000)
	}
	if err != nil && r.firstError == "" {
		r.firstError = err.Error()
	}
}

// Run performs cfg.Total add-then-checkout transactions, spreading them over
// the configured clients. Conserved reports whether the stock that left the
// product equals the quantity carried by the committed orders.
func Run(ctx context.Context, c *shopclient.Client, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	before, err := c.Product(ctx, cfg.ProductID)
	if err != nil {
		return Result{}, fmt.Errorf("read stock: %w", err)
	}

	rec := &recorder{outcomes: map[string]int{}}
	tasks := make(chan int)
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range tasks {
				client := cfg.Clients[n%len(cfg.Clients)]
				runOne(ctx, c, client, cfg, rec)
			}
		}()
	}
	for i := 0; i < cfg.Total; i++ {
		tasks <- i
	}
	close(tasks)
	wg.Wait()
	duration := time.Since(start)

	after, err := c.Product(ctx, cfg.ProductID)
	if err != nil {
		return Result{}, fmt.Errorf("read stock: %w", err)
	}
	for _, client := range cfg.Clients {
		_ = c.ClearBasket(ctx, client)
	}

	res := Result{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		ProductID:       cfg.ProductID,
		Transactions:    cfg.Total,
		Concurrency:     cfg.Concurrency,
		DurationSeconds: duration.Seconds(),
		Committed:       rec.outcomes[OutcomeCommitted],
		Outcomes:        rec.outcomes,
		FirstError:      rec.firstError,
		StockBefore:     before.Stock,
		StockAfter:      after.Stock,
		UnitsSold:       rec.unitsSold,
		Conserved:       before.Stock-after.Stock == rec.unitsSold && after.Stock >= 0,
	}
	if len(rec.latencies) > 0 {
		res.AvgLatencyMs = mean(rec.latencies)
		res.P50LatencyMs, res.P90LatencyMs, res.P95LatencyMs, res.P99LatencyMs = calcPercentiles(rec.latencies)
	}
	if duration > 0 {
		res.ThroughputRPS = float64(res.Committed) / duration.Seconds()
	}
	return res, nil
}

func runOne(ctx context.Context, c *shopclient.Client, client int64, cfg Config, rec *recorder) {
	start := time.Now()
	if _, err := c.AddToBasket(ctx, client, cfg.ProductID, cfg.Quantity); err != nil {
		rec.record(time.Since(start), classify(err, OutcomeAddRejected), 0, err)
		return
	}
	order, err := c.Checkout(ctx, client, uuid.NewString())
	if err != nil {
		rec.record(time.Since(start), classify(err, ""), 0, err)
		return
	}
	sold := 0
	for _, l := range order.Lines {
		if l.ProductID == cfg.ProductID {
			sold += l.Quantity
		}
	}
	rec.record(time.Since(start), OutcomeCommitted, sold, nil)
}

func classify(err error, fallback string) string {
	var apiErr *shopclient.APIError
	if !errors.As(err, &apiErr) {
		return OutcomeTransport
	}
	if fallback != "" {
		return fallback
	}
	if apiErr.Code != "" {
		return apiErr.Code
	}
	return fmt.Sprintf("http_%d", apiErr.Status)
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func calcPercentiles(values []float64) (float64, float64, float64, float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sort.Float64s(values)
	return percentile(values, 0.50), percentile(values, 0.90), percentile(values, 0.95), percentile(values, 0.99)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
