package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"coffee-eshop-go/internal/bench"
	"coffee-eshop-go/internal/config"
	"coffee-eshop-go/internal/shopclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	baseURL := flag.String("base-url", cfg.OrderBaseURL, "order-service base URL")
	clients := flag.String("clients", "1,2,3", "comma-separated client ids to check out as")
	product := flag.Int64("product", 1, "product id every transaction buys")
	quantity := flag.Int("quantity", 1, "units per transaction")
	total := flag.Int("total", 1000, "total number of transactions")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	output := flag.String("output", "", "optional output path for JSON result")
	flag.Parse()

	ids, err := parseIDs(*clients)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	res, err := bench.Run(context.Background(), shopclient.New(*baseURL, *timeout), bench.Config{
		Clients:     ids,
		ProductID:   *product,
		Quantity:    *quantity,
		Total:       *total,
		Concurrency: *concurrency,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}
	if *output != "" {
		if err := writeJSON(*output, res); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
			os.Exit(1)
		}
	}
	if !res.Conserved {
		fmt.Fprintf(os.Stderr, "stock not conserved: %d -> %d but %d units sold\n", res.StockBefore, res.StockAfter, res.UnitsSold)
		os.Exit(3)
	}
}

func parseIDs(csv string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad client id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(path string, result bench.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
