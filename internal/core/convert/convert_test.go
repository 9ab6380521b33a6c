package convert_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testtube/campus-ledger/internal/core/convert"
	"github.com/testtube/campus-ledger/internal/core/models"
)

func rate(value string) models.ExchangeRate {
	return models.ExchangeRate{
		Rate:  decimal.RequireFromString(value),
		Quote: "USD",
		AsOf:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestToDisplayRoundsHalfToEven(t *testing.T) {
	cases := []struct {
		lamports int64
		rate     string
		want     string
	}{
		// 0.125 and 0.135 SOL at rate 1: the half rounds to the even digit.
		{125_000_000, "1", "0.12"},
		{135_000_000, "1", "0.14"},
		{145_000_000, "1", "0.14"},
		{155_000_000, "1", "0.16"},
		{1_000_000_000, "150", "150"},
		{10_000_000, "150", "1.5"},
		{0, "150", "0"},
	}

	for _, tc := range cases {
		got := convert.ToDisplay(tc.lamports, rate(tc.rate))
		assert.Equal(t, tc.want, got.String(), "%d lamports at rate %s", tc.lamports, tc.rate)
	}
}

func TestToDisplayIsStable(t *testing.T) {
	r := rate("153.37")
	first := convert.ToDisplay(1_234_567_891, r)

	for i := 0; i < 100; i++ {
		again := convert.ToDisplay(1_234_567_891, r)
		assert.Equal(t, first.String(), again.String())
	}
}

func TestFixedRateSource(t *testing.T) {
	src := convert.NewFixedRateSource(decimal.RequireFromString("150"), "USD")

	got, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Quote)
	assert.True(t, got.Rate.Equal(decimal.RequireFromString("150")))
	assert.False(t, got.AsOf.IsZero())
}
