package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryTotal is a derived per-category view. It is recomputed on every
// snapshot, never stored.
type CategoryTotal struct {
	Category       Category        `json:"category"`
	NativeLamports int64           `json:"native_lamports"`
	Display        decimal.Decimal `json:"display"`
	Count          int             `json:"count"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
}

type MerchantSpend struct {
	Label          string    `json:"label"`
	Address        string    `json:"address"`
	NativeLamports int64     `json:"native_lamports"`
	Count          int       `json:"count"`
	FirstSeen      time.Time `json:"first_seen"`
}

// AnomalyFlag marks a confirmed transaction whose amount exceeds
// mean + k*stddev of the other transactions in its category window.
type AnomalyFlag struct {
	TransactionID  uuid.UUID `json:"transaction_id"`
	Category       Category  `json:"category"`
	AmountLamports int64     `json:"amount_lamports"`
	Mean           float64   `json:"mean"`
	StdDev         float64   `json:"std_dev"`
	Threshold      float64   `json:"threshold"`
}

// AnalyticsSnapshot is a point-in-time aggregate over confirmed transactions.
// It is always reproducible from the store and is never persisted.
type AnalyticsSnapshot struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Rate         ExchangeRate    `json:"rate"`
	TotalCount   int             `json:"total_count"`
	TotalNative  int64           `json:"total_native"`
	TotalDisplay decimal.Decimal `json:"total_display"`
	Categories   []CategoryTotal `json:"categories"`
	TopMerchants []MerchantSpend `json:"top_merchants"`
	HourOfDay    [24]int         `json:"hour_of_day"`
	DayOfWeek    [7]int          `json:"day_of_week"`
	Anomalies    []AnomalyFlag   `json:"anomalies"`
}
