// Package registry implements the provider fallback chain: try providers in
// order, skip unavailable ones, stop at the first non-empty result.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tickerpulse/internal/provider"
	"tickerpulse/internal/provider/calllog"
)

var (
	// ErrUnknownProvider is returned by SetPrimary for a name that was
	// never registered. This is a configuration error, not a data condition.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrNoProviders is returned by fetches on an empty registry.
	ErrNoProviders = errors.New("no providers registered")
)

// FallbackFunc is notified when a fetch succeeds only after at least one
// provider failed. reason is "exception" or "no_data" (first failure).
type FallbackFunc func(failed, served, reason string)

// Registry holds an ordered set of providers and delegates fetches through
// the chain. Safe for concurrent use: fetches snapshot the order on entry, so
// a concurrent SetPrimary never skips or duplicates a provider mid-iteration.
type Registry struct {
	log        *slog.Logger
	onFallback FallbackFunc

	mu        sync.RWMutex
	providers map[string]provider.Provider
	order     []string
	calls     map[string]*calllog.Log
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithFallbackFunc sets the fallback notification hook.
func WithFallbackFunc(fn FallbackFunc) Option {
	return func(r *Registry) { r.onFallback = fn }
}

func New(options ...Option) *Registry {
	r := &Registry{
		providers: make(map[string]provider.Provider),
		calls:     make(map[string]*calllog.Log),
	}
	for _, option := range options {
		option(r)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// Register appends p to the fallback order under its Info().Name. Registering
// a name twice replaces the provider in place, keeping its position.
func (r *Registry) Register(p provider.Provider) {
	info := p.Info()
	r.mu.Lock()
	if _, exists := r.providers[info.Name]; !exists {
		r.order = append(r.order, info.Name)
	}
	r.providers[info.Name] = p
	r.calls[info.Name] = calllog.New(info.RateLimitPerMinute)
	r.mu.Unlock()
}

// SetPrimary moves the named provider to the front of the fallback order;
// all other providers keep their relative order.
func (r *Registry) SetPrimary(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return ErrUnknownProvider
	}
	order := make([]string, 0, len(r.order))
	order = append(order, name)
	for _, n := range r.order {
		if n != name {
			order = append(order, n)
		}
	}
	r.order = order
	return nil
}

// Primary returns the provider currently at the front of the fallback order,
// or nil for an empty registry.
func (r *Registry) Primary() provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return nil
	}
	return r.providers[r.order[0]]
}

// Provider returns the named provider, or nil.
func (r *Registry) Provider(name string) provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// chainEntry pairs a provider with its call log for a snapshot iteration.
type chainEntry struct {
	name  string
	p     provider.Provider
	calls *calllog.Log
}

// snapshot copies the current chain so an in-flight fetch observes one
// consistent order regardless of concurrent Register/SetPrimary calls.
func (r *Registry) snapshot() []chainEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := make([]chainEntry, 0, len(r.order))
	for _, name := range r.order {
		chain = append(chain, chainEntry{name: name, p: r.providers[name], calls: r.calls[name]})
	}
	return chain
}

// Quote fetches a quote for ticker, trying providers in fallback order.
// Errors, nil results and unavailable providers all advance the chain; the
// first non-nil quote is returned and no later provider is called. An
// exhausted chain returns (nil, nil).
func (r *Registry) Quote(ctx context.Context, ticker string) (*provider.Quote, error) {
	chain := r.snapshot()
	if len(chain) == 0 {
		return nil, ErrNoProviders
	}

	var firstFailed, firstReason string
	for _, e := range chain {
		if !e.p.Available() {
			requestsTotal.WithLabelValues(e.name, "quote", resultSkipped).Inc()
			continue
		}
		e.calls.Record()
		q, err := e.p.Quote(ctx, ticker)
		if err != nil {
			requestsTotal.WithLabelValues(e.name, "quote", resultError).Inc()
			r.log.Warn("provider quote failed", "provider", e.name, "ticker", ticker, "error", err)
			if firstFailed == "" {
				firstFailed, firstReason = e.name, reasonException
			}
			continue
		}
		if q == nil {
			requestsTotal.WithLabelValues(e.name, "quote", resultEmpty).Inc()
			r.log.Info("provider has no quote", "provider", e.name, "ticker", ticker)
			if firstFailed == "" {
				firstFailed, firstReason = e.name, reasonNoData
			}
			continue
		}
		requestsTotal.WithLabelValues(e.name, "quote", resultOK).Inc()
		r.notifyFallback(firstFailed, e.name, firstReason)
		return q, nil
	}
	return nil, nil
}

// Historical fetches bars for ticker over rng with the same chain policy as
// Quote, except that a zero-bar history is also treated as a failure.
func (r *Registry) Historical(ctx context.Context, ticker string, rng provider.Range) (*provider.PriceHistory, error) {
	chain := r.snapshot()
	if len(chain) == 0 {
		return nil, ErrNoProviders
	}

	var firstFailed, firstReason string
	for _, e := range chain {
		if !e.p.Available() {
			requestsTotal.WithLabelValues(e.name, "historical", resultSkipped).Inc()
			continue
		}
		e.calls.Record()
		h, err := e.p.Historical(ctx, ticker, rng)
		if err != nil {
			requestsTotal.WithLabelValues(e.name, "historical", resultError).Inc()
			r.log.Warn("provider historical failed", "provider", e.name, "ticker", ticker, "range", rng, "error", err)
			if firstFailed == "" {
				firstFailed, firstReason = e.name, reasonException
			}
			continue
		}
		if h == nil || len(h.Bars) == 0 {
			requestsTotal.WithLabelValues(e.name, "historical", resultEmpty).Inc()
			r.log.Info("provider has no history", "provider", e.name, "ticker", ticker, "range", rng)
			if firstFailed == "" {
				firstFailed, firstReason = e.name, reasonNoData
			}
			continue
		}
		requestsTotal.WithLabelValues(e.name, "historical", resultOK).Inc()
		r.notifyFallback(firstFailed, e.name, firstReason)
		return h, nil
	}
	return nil, nil
}

func (r *Registry) notifyFallback(failed, served, reason string) {
	if failed == "" || failed == served {
		return
	}
	fallbackTotal.WithLabelValues(failed, served).Inc()
	if r.onFallback != nil {
		r.onFallback(failed, served, reason)
	}
}

// ProviderStatus is the read-only observability view of one provider.
type ProviderStatus struct {
	Name          string     `json:"id"`
	DisplayName   string     `json:"display_name"`
	Tier          string     `json:"tier"`
	Available     bool       `json:"is_active"`
	Primary       bool       `json:"is_primary"`
	RateLimitUsed int        `json:"rate_limit_used"`
	RateLimitMax  int        `json:"rate_limit_max"` // -1 when unknown
	UsedPercent   float64    `json:"used_percent"`
	ResetAt       *time.Time `json:"reset_at"`
}

// Status reports every registered provider in fallback order, with its call
// usage over the rolling 60-second window.
func (r *Registry) Status() []ProviderStatus {
	chain := r.snapshot()
	out := make([]ProviderStatus, 0, len(chain))
	for i, e := range chain {
		info := e.p.Info()
		snap := e.calls.Status()
		max := snap.Limit
		if max == 0 {
			max = -1
		}
		out = append(out, ProviderStatus{
			Name:          e.name,
			DisplayName:   info.DisplayName,
			Tier:          info.Tier,
			Available:     e.p.Available(),
			Primary:       i == 0,
			RateLimitUsed: snap.Used,
			RateLimitMax:  max,
			UsedPercent:   snap.UsedPct,
			ResetAt:       snap.ResetAt,
		})
	}
	return out
}
