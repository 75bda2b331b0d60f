package provider

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateBars_SortsAscending(t *testing.T) {
	t.Parallel()
	bars := []PriceBar{
		{Timestamp: 300, Open: 10, High: 11, Low: 9, Close: 10},
		{Timestamp: 100, Open: 10, High: 11, Low: 9, Close: 10},
		{Timestamp: 200, Open: 10, High: 11, Low: 9, Close: 10},
	}
	require.NoError(t, ValidateBars(bars))
	require.Equal(t, int64(100), bars[0].Timestamp)
	require.Equal(t, int64(200), bars[1].Timestamp)
	require.Equal(t, int64(300), bars[2].Timestamp)
}

func TestValidateBars_RejectsBadOHLC(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		bar  PriceBar
	}{
		{"open above high", PriceBar{Open: 12, High: 11, Low: 9, Close: 10}},
		{"close below low", PriceBar{Open: 10, High: 11, Low: 9, Close: 8}},
		{"low above high", PriceBar{Open: 10, High: 9, Low: 11, Close: 10}},
		{"nan close", PriceBar{Open: 10, High: 11, Low: 9, Close: math.NaN()}},
		{"inf high", PriceBar{Open: 10, High: math.Inf(1), Low: 9, Close: 10}},
	}
	good := PriceBar{Timestamp: 1, Open: 10, High: 11, Low: 9, Close: 10}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// One bad bar fails the whole batch.
			require.Error(t, ValidateBars([]PriceBar{good, tc.bar}))
		})
	}
}

func TestValidateBars_EmptyIsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateBars(nil))
}

func TestParseRange(t *testing.T) {
	t.Parallel()

	r, err := ParseRange("")
	require.NoError(t, err)
	require.Equal(t, Range1Mo, r)

	r, err = ParseRange("5y")
	require.NoError(t, err)
	require.Equal(t, Range5Y, r)

	_, err = ParseRange("7w")
	require.Error(t, err)
}

func TestRange_DurationOrdering(t *testing.T) {
	t.Parallel()
	ranges := []Range{Range1D, Range5D, Range1Mo, Range3Mo, Range6Mo, Range1Y, Range2Y, Range5Y}
	for i := 1; i < len(ranges); i++ {
		require.Greater(t, ranges[i].Duration(), ranges[i-1].Duration(), "%s vs %s", ranges[i], ranges[i-1])
	}
}
