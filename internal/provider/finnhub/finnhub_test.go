package finnhub_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tickerpulse/internal/httpx"
	"tickerpulse/internal/provider"
	"tickerpulse/internal/provider/finnhub"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *finnhub.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := finnhub.New(finnhub.Config{BaseURL: srv.URL, APIKey: "k"}, httpx.New(5*time.Second))
	require.NoError(t, err)
	return p
}

func TestQuote_ParsesResponse(t *testing.T) {
	t.Parallel()
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/quote", r.URL.Path)
		require.Equal(t, "ACME", r.URL.Query().Get("symbol"))
		require.Equal(t, "k", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"c":10.5,"d":0.5,"dp":5.0,"h":10.9,"l":9.8,"o":10.0,"pc":10.0,"t":1705312800}`))
	})

	q, err := p.Quote(t.Context(), "ACME")
	require.NoError(t, err)
	require.NotNil(t, q)
	require.Equal(t, 10.5, q.Price)
	require.Equal(t, 0.5, q.Change)
	require.Equal(t, "finnhub", q.Source)
	require.Equal(t, time.UTC, q.Timestamp.Location())
	require.True(t, q.Timestamp.Equal(time.Unix(1705312800, 0)))
}

func TestQuote_UnknownTickerZeroPayload(t *testing.T) {
	t.Parallel()
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
	})

	q, err := p.Quote(t.Context(), "NOPE")
	require.NoError(t, err)
	require.Nil(t, q)
}

func TestHistorical_ParsesCandles(t *testing.T) {
	t.Parallel()
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/stock/candle", r.URL.Path)
		require.Equal(t, "D", r.URL.Query().Get("resolution"))
		require.NotEmpty(t, r.URL.Query().Get("from"))
		require.NotEmpty(t, r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`{
			"s":"ok",
			"t":[1705312800,1705399200],
			"o":[10.0,10.6],
			"h":[10.9,11.0],
			"l":[9.8,10.2],
			"c":[10.5,10.8],
			"v":[1000,1200]
		}`))
	})

	h, err := p.Historical(t.Context(), "ACME", provider.Range1Mo)
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Len(t, h.Bars, 2)
	require.Equal(t, 10.8, h.Bars[1].Close)
	require.Equal(t, int64(1200), h.Bars[1].Volume)
}

func TestHistorical_NoData(t *testing.T) {
	t.Parallel()
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"no_data"}`))
	})

	h, err := p.Historical(t.Context(), "NOPE", provider.Range1Mo)
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestHistorical_RaggedArrays(t *testing.T) {
	t.Parallel()
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"ok","t":[1,2],"o":[10.0],"h":[11.0,11.0],"l":[9.0,9.0],"c":[10.0,10.0],"v":[1,2]}`))
	})

	_, err := p.Historical(t.Context(), "ACME", provider.Range1Mo)
	require.Error(t, err)
}

func TestNew_MalformedKey(t *testing.T) {
	t.Parallel()
	_, err := finnhub.New(finnhub.Config{APIKey: "has space"}, httpx.New(time.Second))
	require.Error(t, err)
}

func TestAvailability(t *testing.T) {
	t.Parallel()
	keyed, err := finnhub.New(finnhub.Config{APIKey: "k"}, httpx.New(time.Second))
	require.NoError(t, err)
	require.True(t, keyed.Available())

	keyless, err := finnhub.New(finnhub.Config{}, httpx.New(time.Second))
	require.NoError(t, err)
	require.False(t, keyless.Available())
	require.True(t, keyless.Info().RequiresKey)
}
