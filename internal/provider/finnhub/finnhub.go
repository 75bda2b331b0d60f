// Package finnhub implements the Finnhub provider (premium, keyed).
package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tickerpulse/internal/httpx"
	"tickerpulse/internal/provider"
)

const Name = "finnhub"

type Config struct {
	Name    string
	BaseURL string
	APIKey  string
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = Name
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://finnhub.io"
	}
	if strings.ContainsAny(cfg.APIKey, " \t\r\n") {
		return nil, fmt.Errorf("finnhub: malformed api key")
	}
	return &Provider{cfg: cfg, client: hc}, nil
}

func (p *Provider) Info() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:               p.cfg.Name,
		DisplayName:        "Finnhub",
		Tier:               "freemium",
		RequiresKey:        true,
		HasRealtime:        true,
		RateLimitPerMinute: 60,
		Description:        "Real-time quote and daily candles",
	}
}

func (p *Provider) Available() bool { return p.cfg.APIKey != "" }

func (p *Provider) Quote(ctx context.Context, ticker string) (*provider.Quote, error) {
	var res quoteResponse
	if err := p.get(ctx, "/api/v1/quote", url.Values{"symbol": {ticker}}, &res); err != nil {
		return nil, err
	}
	// Finnhub answers unknown tickers with an all-zero payload.
	if res.Current == 0 && res.Time == 0 {
		return nil, nil
	}
	return &provider.Quote{
		Ticker:        ticker,
		Price:         res.Current,
		Open:          res.Open,
		High:          res.High,
		Low:           res.Low,
		Change:        res.Change,
		ChangePercent: res.ChangePercent,
		Currency:      "USD",
		Source:        p.cfg.Name,
		Timestamp:     time.Unix(res.Time, 0).UTC(),
	}, nil
}

func (p *Provider) Historical(ctx context.Context, ticker string, rng provider.Range) (*provider.PriceHistory, error) {
	to := time.Now().UTC()
	from := to.Add(-rng.Duration())
	var res candleResponse
	err := p.get(ctx, "/api/v1/stock/candle", url.Values{
		"symbol":     {ticker},
		"resolution": {"D"},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
	}, &res)
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case "no_data":
		return nil, nil
	case "ok":
	default:
		return nil, fmt.Errorf("finnhub: candle status %q", res.Status)
	}
	n := len(res.Time)
	if len(res.Open) != n || len(res.High) != n || len(res.Low) != n || len(res.Close) != n {
		return nil, fmt.Errorf("finnhub: ragged candle arrays for %s", ticker)
	}
	bars := make([]provider.PriceBar, 0, n)
	for i := 0; i < n; i++ {
		bar := provider.PriceBar{
			Timestamp: res.Time[i],
			Open:      res.Open[i],
			High:      res.High[i],
			Low:       res.Low[i],
			Close:     res.Close[i],
		}
		if i < len(res.Volume) {
			bar.Volume = int64(res.Volume[i])
		}
		bars = append(bars, bar)
	}
	if err := provider.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("finnhub history for %s: %w", ticker, err)
	}
	return &provider.PriceHistory{Ticker: ticker, Range: rng, Source: p.cfg.Name, Bars: bars}, nil
}

func (p *Provider) get(ctx context.Context, path string, query url.Values, out any) error {
	query.Set("token", p.cfg.APIKey)
	resp, err := p.client.Get(ctx, p.cfg.BaseURL+path+"?"+query.Encode())
	if err != nil {
		// url.Error carries the full URL, token included. Strip it.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("GET %s: %w", path, uerr.Err)
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return fmt.Errorf("GET %s -> %d: %s", path, resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
	Time          int64   `json:"t"`
}

type candleResponse struct {
	Status string    `json:"s"`
	Time   []int64   `json:"t"`
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []float64 `json:"v"`
}
