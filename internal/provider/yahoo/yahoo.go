// Package yahoo implements the free, keyless, delayed-data provider used as
// the unconditional last resort of the fallback chain.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tickerpulse/internal/httpx"
	"tickerpulse/internal/provider"
)

const Name = "yahoo"

type Config struct {
	Name    string
	BaseURL string
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = Name
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Info() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:        p.cfg.Name,
		DisplayName: "Yahoo Finance",
		Tier:        "free",
		RequiresKey: false,
		HasRealtime: false,
		Description: "Free delayed quotes and daily history, no key required",
	}
}

// Available is always true: no credential is needed.
func (p *Provider) Available() bool { return true }

func (p *Provider) Quote(ctx context.Context, ticker string) (*provider.Quote, error) {
	res, err := p.chart(ctx, ticker, "1d", "1m")
	if err != nil || res == nil {
		return nil, err
	}
	m := res.Meta
	if m.RegularMarketPrice == 0 && m.RegularMarketTime == 0 {
		return nil, nil
	}
	q := &provider.Quote{
		Ticker:    ticker,
		Price:     m.RegularMarketPrice,
		High:      m.RegularMarketDayHigh,
		Low:       m.RegularMarketDayLow,
		Volume:    m.RegularMarketVolume,
		Currency:  m.Currency,
		Source:    p.cfg.Name,
		Timestamp: time.Unix(m.RegularMarketTime, 0).UTC(),
	}
	if m.ChartPreviousClose > 0 {
		q.Change = m.RegularMarketPrice - m.ChartPreviousClose
		q.ChangePercent = q.Change / m.ChartPreviousClose * 100
	}
	return q, nil
}

func (p *Provider) Historical(ctx context.Context, ticker string, rng provider.Range) (*provider.PriceHistory, error) {
	res, err := p.chart(ctx, ticker, string(rng), "1d")
	if err != nil || res == nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	ind := res.Indicators.Quote[0]
	bars := make([]provider.PriceBar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		// Nil slots in the parallel arrays are absent samples, not errors.
		if i >= len(ind.Open) || i >= len(ind.High) || i >= len(ind.Low) || i >= len(ind.Close) {
			continue
		}
		if ind.Open[i] == nil || ind.High[i] == nil || ind.Low[i] == nil || ind.Close[i] == nil {
			continue
		}
		bar := provider.PriceBar{
			Timestamp: ts,
			Open:      *ind.Open[i],
			High:      *ind.High[i],
			Low:       *ind.Low[i],
			Close:     *ind.Close[i],
		}
		if i < len(ind.Volume) && ind.Volume[i] != nil {
			bar.Volume = *ind.Volume[i]
		}
		bars = append(bars, bar)
	}
	if err := provider.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("%s history for %s: %w", p.cfg.Name, ticker, err)
	}
	return &provider.PriceHistory{Ticker: ticker, Range: rng, Source: p.cfg.Name, Bars: bars}, nil
}

// chart fetches one chart API result. A nil result with nil error means the
// upstream answered but knows nothing about the ticker.
func (p *Provider) chart(ctx context.Context, ticker, rng, interval string) (*chartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		p.cfg.BaseURL, url.PathEscape(ticker), url.QueryEscape(rng), url.QueryEscape(interval))
	resp, err := p.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("GET /v8/finance/chart/%s -> %d: %s", ticker, resp.StatusCode, string(b))
	}
	var api chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if api.Chart.Error != nil {
		return nil, nil
	}
	if len(api.Chart.Result) == 0 {
		return nil, nil
	}
	return &api.Chart.Result[0], nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Currency             string  `json:"currency"`
	Symbol               string  `json:"symbol"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	RegularMarketTime    int64   `json:"regularMarketTime"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	RegularMarketVolume  int64   `json:"regularMarketVolume"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
}

type indicators struct {
	Quote []ohlcv `json:"quote"`
}

// Pointer slices so upstream nulls survive decoding as nil entries.
type ohlcv struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
