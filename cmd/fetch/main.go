package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tickerpulse/internal/config"
	"tickerpulse/internal/httpx"
	"tickerpulse/internal/provider"
	"tickerpulse/internal/provider/registry"
)

func main() {
	var tickersCSV string
	var rangeStr string
	var withHistory bool
	var timeout int
	var configPath string

	flag.StringVar(&tickersCSV, "tickers", os.Getenv("TICKERS"), "comma-separated tickers, e.g. AAPL,MSFT")
	flag.StringVar(&rangeStr, "range", "1mo", "history range: 1d 5d 1mo 3mo 6mo 1y 2y 5y")
	flag.BoolVar(&withHistory, "history", false, "fetch price history in addition to quotes")
	flag.IntVar(&timeout, "timeout", 15, "request timeout seconds")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to tickerpulse.yaml (optional)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}

	tickers := splitCSV(tickersCSV)
	if len(tickers) == 0 {
		log.Error("no tickers provided; use -tickers or TICKERS")
		os.Exit(1)
	}
	rng, err := provider.ParseRange(rangeStr)
	if err != nil {
		log.Error("bad range", "error", err)
		os.Exit(1)
	}

	httpClient := httpx.New(time.Duration(timeout) * time.Second)
	reg := registry.NewFromCredentials(registry.Credentials{
		PolygonKey:      cfg.Providers.PolygonKey,
		FinnhubKey:      cfg.Providers.FinnhubKey,
		AlphaVantageKey: cfg.Providers.AlphaVantageKey,
		Primary:         cfg.Providers.Primary,
	}, httpClient, registry.WithLogger(log))

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	type row struct {
		Ticker  string                 `json:"ticker"`
		Quote   *provider.Quote        `json:"quote"`
		History *provider.PriceHistory `json:"history,omitempty"`
	}

	var mu sync.Mutex
	rows := make([]row, 0, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, t := range tickers {
		g.Go(func() error {
			q, err := reg.Quote(gctx, t)
			if err != nil {
				return fmt.Errorf("quote %s: %w", t, err)
			}
			r := row{Ticker: t, Quote: q}
			if withHistory {
				h, err := reg.Historical(gctx, t, rng)
				if err != nil {
					return fmt.Errorf("history %s: %w", t, err)
				}
				r.History = h
			}
			if q == nil {
				log.Warn("no data obtainable", "ticker", t)
			}
			mu.Lock()
			rows = append(rows, r)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("fetch", "error", err)
		os.Exit(1)
	}

	out := struct {
		Results []row `json:"results"`
	}{Results: rows}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
