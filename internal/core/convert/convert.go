package convert

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/testtube/campus-ledger/internal/core/models"
)

// LamportsPerSol is the native asset's minor-unit scale.
const LamportsPerSol int64 = 1_000_000_000

// displayPlaces is the display currency's minor-unit precision.
const displayPlaces int32 = 2

var lamportsPerSolDec = decimal.NewFromInt(LamportsPerSol)

// ToDisplay converts a native amount to the display currency at the given
// rate. Rounding is half-to-even to the display currency's minor unit
// (decimal's RoundBank), so repeated conversion of the same pair is
// byte-stable and aggregation stays reproducible.
func ToDisplay(lamports int64, rate models.ExchangeRate) decimal.Decimal {
	sol := decimal.NewFromInt(lamports).Div(lamportsPerSolDec)
	return sol.Mul(rate.Rate).RoundBank(displayPlaces)
}

// RateSource supplies the current display-currency quote. The live feed is an
// external collaborator; FixedRateSource stands in when no feed is wired.
type RateSource interface {
	Current(ctx context.Context) (models.ExchangeRate, error)
}

type FixedRateSource struct {
	rate models.ExchangeRate
}

func NewFixedRateSource(rate decimal.Decimal, quote string) *FixedRateSource {
	return &FixedRateSource{rate: models.ExchangeRate{
		Rate:  rate,
		Quote: quote,
		AsOf:  time.Now().UTC(),
	}}
}

func (s *FixedRateSource) Current(_ context.Context) (models.ExchangeRate, error) {
	return s.rate, nil
}
