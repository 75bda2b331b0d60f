// Package polygon implements the Polygon.io provider (premium, keyed).
package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"tickerpulse/internal/httpx"
	"tickerpulse/internal/provider"
)

const Name = "polygon"

type Config struct {
	Name    string
	BaseURL string
	APIKey  string
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

// New validates the key format client-side; no network calls are made.
func New(cfg Config, hc *httpx.Client) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = Name
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.polygon.io"
	}
	if strings.ContainsAny(cfg.APIKey, " \t\r\n") {
		return nil, fmt.Errorf("polygon: malformed api key")
	}
	return &Provider{cfg: cfg, client: hc}, nil
}

func (p *Provider) Info() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:               p.cfg.Name,
		DisplayName:        "Polygon.io",
		Tier:               "premium",
		RequiresKey:        true,
		HasRealtime:        true,
		RateLimitPerMinute: 5,
		Description:        "Aggregates API: previous close and daily bars",
	}
}

func (p *Provider) Available() bool { return p.cfg.APIKey != "" }

// Quote returns the previous-day aggregate, the freshest datapoint the
// aggregates API serves on every plan.
func (p *Provider) Quote(ctx context.Context, ticker string) (*provider.Quote, error) {
	path := fmt.Sprintf("/v2/aggs/ticker/%s/prev", url.PathEscape(ticker))
	var res aggsResponse
	if err := p.get(ctx, path, url.Values{"adjusted": {"true"}}, &res); err != nil {
		return nil, err
	}
	if strings.EqualFold(res.Status, "ERROR") {
		return nil, fmt.Errorf("polygon: %s", res.Error)
	}
	if res.ResultsCount == 0 || len(res.Results) == 0 {
		return nil, nil
	}
	a := res.Results[0]
	return &provider.Quote{
		Ticker:    ticker,
		Price:     a.Close,
		Open:      a.Open,
		High:      a.High,
		Low:       a.Low,
		Volume:    int64(a.Volume),
		Currency:  "USD",
		Source:    p.cfg.Name,
		Timestamp: time.UnixMilli(a.Time).UTC(),
	}, nil
}

func (p *Provider) Historical(ctx context.Context, ticker string, rng provider.Range) (*provider.PriceHistory, error) {
	to := time.Now().UTC()
	from := to.Add(-rng.Duration())
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		url.PathEscape(ticker), from.Format("2006-01-02"), to.Format("2006-01-02"))
	var res aggsResponse
	if err := p.get(ctx, path, url.Values{"adjusted": {"true"}, "sort": {"asc"}, "limit": {"50000"}}, &res); err != nil {
		return nil, err
	}
	if strings.EqualFold(res.Status, "ERROR") {
		return nil, fmt.Errorf("polygon: %s", res.Error)
	}
	if res.ResultsCount == 0 || len(res.Results) == 0 {
		return nil, nil
	}
	bars := make([]provider.PriceBar, 0, len(res.Results))
	for _, a := range res.Results {
		bars = append(bars, provider.PriceBar{
			Timestamp: a.Time / 1000,
			Open:      a.Open,
			High:      a.High,
			Low:       a.Low,
			Close:     a.Close,
			Volume:    int64(a.Volume),
		})
	}
	if err := provider.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("polygon history for %s: %w", ticker, err)
	}
	return &provider.PriceHistory{Ticker: ticker, Range: rng, Source: p.cfg.Name, Bars: bars}, nil
}

// get fetches path+query with the api key attached. The key never appears in
// returned errors.
func (p *Provider) get(ctx context.Context, path string, query url.Values, out any) error {
	query.Set("apiKey", p.cfg.APIKey)
	resp, err := p.client.Get(ctx, p.cfg.BaseURL+path+"?"+query.Encode())
	if err != nil {
		// url.Error carries the full URL, key included. Strip it.
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

type aggsResponse struct {
	Ticker       string `json:"ticker"`
	Status       string `json:"status"`
	Error        string `json:"error"`
	ResultsCount int    `json:"resultsCount"`
	Results      []agg  `json:"results"`
}

type agg struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	Time   int64   `json:"t"` // ms since epoch
}
