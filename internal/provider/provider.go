package provider

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// Quote is the normalized current-price shape returned by all providers.
// Timestamp is always UTC; adapters must convert before returning.
type Quote struct {
	Ticker        string    `json:"ticker"`
	Price         float64   `json:"price"`
	Open          float64   `json:"open,omitempty"`
	High          float64   `json:"high,omitempty"`
	Low           float64   `json:"low,omitempty"`
	Volume        int64     `json:"volume,omitempty"`
	Change        float64   `json:"change,omitempty"`
	ChangePercent float64   `json:"change_percent,omitempty"`
	Currency      string    `json:"currency"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// PriceBar is a single OHLCV sample. Timestamp is Unix seconds.
type PriceBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// PriceHistory is an ascending-by-timestamp series of bars for one ticker.
// A history with zero bars is a valid "no data" answer, distinct from an error.
type PriceHistory struct {
	Ticker string     `json:"ticker"`
	Range  Range      `json:"range"`
	Source string     `json:"source"`
	Bars   []PriceBar `json:"bars"`
}

// ProviderInfo is the static descriptor for a provider.
// RateLimitPerMinute 0 means the ceiling is unknown.
type ProviderInfo struct {
	Name               string `json:"name"`
	DisplayName        string `json:"display_name"`
	Tier               string `json:"tier"` // free, freemium, premium
	RequiresKey        bool   `json:"requires_key"`
	HasRealtime        bool   `json:"has_realtime"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
	Description        string `json:"description"`
}

// Range selects a historical window. Values mirror the common chart-API
// range strings; adapters translate to their native parameters.
type Range string

const (
	Range1D  Range = "1d"
	Range5D  Range = "5d"
	Range1Mo Range = "1mo"
	Range3Mo Range = "3mo"
	Range6Mo Range = "6mo"
	Range1Y  Range = "1y"
	Range2Y  Range = "2y"
	Range5Y  Range = "5y"
)

// ParseRange validates a range string, defaulting to 1mo when empty.
func ParseRange(s string) (Range, error) {
	if s == "" {
		return Range1Mo, nil
	}
	switch r := Range(s); r {
	case Range1D, Range5D, Range1Mo, Range3Mo, Range6Mo, Range1Y, Range2Y, Range5Y:
		return r, nil
	}
	return "", fmt.Errorf("unknown range %q", s)
}

// Duration returns the approximate wall-clock span the range covers.
func (r Range) Duration() time.Duration {
	const day = 24 * time.Hour
	switch r {
	case Range1D:
		return day
	case Range5D:
		return 5 * day
	case Range1Mo:
		return 31 * day
	case Range3Mo:
		return 92 * day
	case Range6Mo:
		return 183 * day
	case Range2Y:
		return 2 * 365 * day
	case Range5Y:
		return 5 * 365 * day
	default:
		return 365 * day
	}
}

// Provider is one upstream market-data source.
//
// Quote and Historical return (nil, nil) when the upstream answered but has
// no data for the ticker; errors are reserved for transport/parse/auth
// failures. Available must be cheap and side-effect free.
//
//go:generate mockgen -package=registry_test -destination=registry/mock_provider_test.go -source=provider.go Provider
type Provider interface {
	Info() ProviderInfo
	Available() bool
	Quote(ctx context.Context, ticker string) (*Quote, error)
	Historical(ctx context.Context, ticker string, rng Range) (*PriceHistory, error)
}

// ValidateBars checks every bar for finite fields and OHLC consistency
// (low <= open <= high, low <= close <= high) and sorts the slice ascending
// by timestamp. A single bad bar fails the whole batch so that a returned
// history is always one source's consistent view.
func ValidateBars(bars []PriceBar) error {
	for i, b := range bars {
		for _, v := range [4]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("bar %d: non-finite price", i)
			}
		}
		if b.Low > b.Open || b.Open > b.High || b.Low > b.Close || b.Close > b.High {
			return fmt.Errorf("bar %d: OHLC out of order (o=%g h=%g l=%g c=%g)", i, b.Open, b.High, b.Low, b.Close)
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	return nil
}
