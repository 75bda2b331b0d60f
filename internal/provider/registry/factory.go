package registry

import (
	"tickerpulse/internal/httpx"
	"tickerpulse/internal/provider"
	"tickerpulse/internal/provider/alphavantage"
	"tickerpulse/internal/provider/finnhub"
	"tickerpulse/internal/provider/polygon"
	"tickerpulse/internal/provider/yahoo"
)

// Credentials is the optional key per premium provider. An empty key means
// "do not register this provider" and is not an error. Primary optionally
// overrides the priority-based primary selection.
type Credentials struct {
	PolygonKey      string
	FinnhubKey      string
	AlphaVantageKey string
	Primary         string
}

// NewFromCredentials builds a populated Registry. Premium providers are
// registered in fixed priority order (polygon, finnhub, alpha_vantage) when
// their key is present; Yahoo Finance is always registered as the keyless
// last resort. A failing constructor is logged and skipped without aborting
// the rest. No network calls are made. Given the same credentials the
// resulting fallback order is always the same.
func NewFromCredentials(creds Credentials, hc *httpx.Client, options ...Option) *Registry {
	r := New(options...)

	builders := []struct {
		name  string
		key   string
		build func(key string) (provider.Provider, error)
	}{
		{polygon.Name, creds.PolygonKey, func(key string) (provider.Provider, error) {
			return polygon.New(polygon.Config{APIKey: key}, hc)
		}},
		{finnhub.Name, creds.FinnhubKey, func(key string) (provider.Provider, error) {
			return finnhub.New(finnhub.Config{APIKey: key}, hc)
		}},
		{alphavantage.Name, creds.AlphaVantageKey, func(key string) (provider.Provider, error) {
			return alphavantage.New(alphavantage.Config{APIKey: key}, hc)
		}},
	}
	for _, b := range builders {
		if b.key == "" {
			continue
		}
		p, err := b.build(b.key)
		if err != nil {
			r.log.Warn("skipping data provider", "provider", b.name, "error", err)
			continue
		}
		r.Register(p)
		r.log.Info("registered data provider", "provider", b.name)
	}

	r.Register(yahoo.New(yahoo.Config{}, hc))
	r.log.Info("registered data provider", "provider", yahoo.Name, "note", "free fallback")

	if creds.Primary != "" {
		if err := r.SetPrimary(creds.Primary); err != nil {
			r.log.Warn("primary override not registered, keeping priority order", "primary", creds.Primary)
		}
	}
	if p := r.Primary(); p != nil {
		r.log.Info("primary data provider", "provider", p.Info().Name)
	}
	return r
}
