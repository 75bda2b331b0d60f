// Package alphavantage implements the Alpha Vantage provider (premium, keyed).
package alphavantage

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

const Name = "alpha_vantage"

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
		cfg.BaseURL = "https://www.alphavantage.co"
	}
	if strings.ContainsAny(cfg.APIKey, " \t\r\n") {
		return nil, fmt.Errorf("alphavantage: malformed api key")
	}
	return &Provider{cfg: cfg, client: hc}, nil
}

func (p *Provider) Info() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:               p.cfg.Name,
		DisplayName:        "Alpha Vantage",
		Tier:               "freemium",
		RequiresKey:        true,
		HasRealtime:        false,
		RateLimitPerMinute: 5,
		Description:        "GLOBAL_QUOTE and TIME_SERIES_DAILY",
	}
}

func (p *Provider) Available() bool { return p.cfg.APIKey != "" }

func (p *Provider) Quote(ctx context.Context, ticker string) (*provider.Quote, error) {
	body, err := p.get(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {ticker}})
	if err != nil {
		return nil, err
	}
	var res struct {
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	if err := p.decode(body, &res); err != nil {
		return nil, err
	}
	g := res.GlobalQuote
	// An empty object means the symbol is unknown upstream.
	if len(g) == 0 {
		return nil, nil
	}
	price, err := strconv.ParseFloat(g["05. price"], 64)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: bad price %q", g["05. price"])
	}
	open, _ := strconv.ParseFloat(g["02. open"], 64)
	high, _ := strconv.ParseFloat(g["03. high"], 64)
	low, _ := strconv.ParseFloat(g["04. low"], 64)
	volume, _ := strconv.ParseInt(g["06. volume"], 10, 64)
	change, _ := strconv.ParseFloat(g["09. change"], 64)
	changePct, _ := strconv.ParseFloat(strings.TrimSuffix(g["10. change percent"], "%"), 64)

	ts := time.Now().UTC()
	if day, derr := time.Parse("2006-01-02", g["07. latest trading day"]); derr == nil {
		ts = day.UTC()
	}
	return &provider.Quote{
		Ticker:        ticker,
		Price:         price,
		Open:          open,
		High:          high,
		Low:           low,
		Volume:        volume,
		Change:        change,
		ChangePercent: changePct,
		Currency:      "USD",
		Source:        p.cfg.Name,
		Timestamp:     ts,
	}, nil
}

func (p *Provider) Historical(ctx context.Context, ticker string, rng provider.Range) (*provider.PriceHistory, error) {
	outputsize := "compact" // last 100 days
	if rng.Duration() > 100*24*time.Hour {
		outputsize = "full"
	}
	body, err := p.get(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {ticker},
		"outputsize": {outputsize},
	})
	if err != nil {
		return nil, err
	}
	var res struct {
		Series map[string]dailyBar `json:"Time Series (Daily)"`
	}
	if err := p.decode(body, &res); err != nil {
		return nil, err
	}
	if len(res.Series) == 0 {
		return nil, nil
	}
	cutoff := time.Now().UTC().Add(-rng.Duration())
	bars := make([]provider.PriceBar, 0, len(res.Series))
	for day, b := range res.Series {
		ts, perr := time.Parse("2006-01-02", day)
		if perr != nil {
			return nil, fmt.Errorf("alphavantage: bad series date %q", day)
		}
		if ts.Before(cutoff) {
			continue
		}
		open, e1 := strconv.ParseFloat(b.Open, 64)
		high, e2 := strconv.ParseFloat(b.High, 64)
		low, e3 := strconv.ParseFloat(b.Low, 64)
		closep, e4 := strconv.ParseFloat(b.Close, 64)
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return nil, fmt.Errorf("alphavantage: bad bar on %s", day)
		}
		volume, _ := strconv.ParseInt(b.Volume, 10, 64)
		bars = append(bars, provider.PriceBar{
			Timestamp: ts.Unix(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closep,
			Volume:    volume,
		})
	}
	if err := provider.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("alphavantage history for %s: %w", ticker, err)
	}
	return &provider.PriceHistory{Ticker: ticker, Range: rng, Source: p.cfg.Name, Bars: bars}, nil
}

func (p *Provider) get(ctx context.Context, query url.Values) ([]byte, error) {
	query.Set("apikey", p.cfg.APIKey)
	resp, err := p.client.Get(ctx, p.cfg.BaseURL+"/query?"+query.Encode())
	if err != nil {
		// url.Error carries the full URL, key included. Strip it.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, fmt.Errorf("GET /query: %w", uerr.Err)
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("GET /query -> %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}

// decode unmarshals body after checking the envelope-level error keys the API
// uses instead of HTTP status codes.
func (p *Provider) decode(body []byte, out any) error {
	var envelope struct {
		Note        string `json:"Note"`
		Information string `json:"Information"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if envelope.Note != "" || envelope.Information != "" {
		// Throttled or plan-limited; the caller should fall through.
		return fmt.Errorf("alphavantage: throttled: %s%s", envelope.Note, envelope.Information)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}
