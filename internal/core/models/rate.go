package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a display-currency quote for one unit of the native asset,
// stamped with the time it was observed. The converter never fetches rates
// itself; callers obtain one from a rate source and pass it down so that a
// snapshot is reproducible for a given rate.
type ExchangeRate struct {
	Rate  decimal.Decimal `json:"rate"`
	Quote string          `json:"quote"`
	AsOf  time.Time       `json:"as_of"`
}
