package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/testtube/campus-ledger/internal/core/convert"
	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/models"
)

// ConfirmedLister is the aggregator's read-only view of the transaction
// store: confirmed rows in [from, to), timestamp ascending.
type ConfirmedLister interface {
	ListConfirmed(ctx context.Context, from, to time.Time) ([]models.Transaction, error)
}

type Config struct {
	// TopK bounds the merchant ranking.
	TopK int
	// AnomalyK is the stddev multiplier for anomaly flagging.
	AnomalyK float64
	// MinSamples is the smallest category population anomaly detection
	// considers.
	MinSamples int
	// Location is the time zone for the hour/weekday histograms.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		TopK:       5,
		AnomalyK:   2.0,
		MinSamples: 5,
		Location:   time.UTC,
	}
}

type Aggregator struct {
	store ConfirmedLister
	cfg   Config
	log   logger.Logger
}

func NewAggregator(store ConfirmedLister, cfg Config, log logger.Logger) *Aggregator {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.AnomalyK <= 0 {
		cfg.AnomalyK = 2.0
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 5
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Aggregator{store: store, cfg: cfg, log: log}
}

type categoryAccum struct {
	sum   int64
	sumSq float64
	txs   []models.Transaction
	from  time.Time
	to    time.Time
}

// Snapshot computes the full analytics bundle in a single pass over the
// confirmed transactions in [from, to). It never mutates the store.
func (a *Aggregator) Snapshot(ctx context.Context, from, to time.Time, rate models.ExchangeRate) (*models.AnalyticsSnapshot, error) {
	txs, err := a.store.ListConfirmed(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load confirmed transactions: %w", err)
	}

	snap := &models.AnalyticsSnapshot{
		From:        from,
		To:          to,
		GeneratedAt: time.Now().UTC(),
		Rate:        rate,
	}

	byCategory := map[models.Category]*categoryAccum{}
	byMerchant := map[string]*models.MerchantSpend{}

	for _, tx := range txs {
		snap.TotalCount++
		snap.TotalNative += tx.AmountLamports

		acc, ok := byCategory[tx.Category]
		if !ok {
			acc = &categoryAccum{from: tx.Timestamp, to: tx.Timestamp}
			byCategory[tx.Category] = acc
		}
		acc.sum += tx.AmountLamports
		acc.sumSq += float64(tx.AmountLamports) * float64(tx.AmountLamports)
		acc.txs = append(acc.txs, tx)
		if tx.Timestamp.Before(acc.from) {
			acc.from = tx.Timestamp
		}
		if tx.Timestamp.After(acc.to) {
			acc.to = tx.Timestamp
		}

		label := tx.MerchantLabel
		if label == "" {
			label = tx.Recipient
		}
		m, ok := byMerchant[label]
		if !ok {
			m = &models.MerchantSpend{Label: label, Address: tx.Recipient, FirstSeen: tx.Timestamp}
			byMerchant[label] = m
		}
		m.NativeLamports += tx.AmountLamports
		m.Count++
		if tx.Timestamp.Before(m.FirstSeen) {
			m.FirstSeen = tx.Timestamp
		}

		local := tx.Timestamp.In(a.cfg.Location)
		snap.HourOfDay[local.Hour()]++
		snap.DayOfWeek[int(local.Weekday())]++
	}

	snap.TotalDisplay = convert.ToDisplay(snap.TotalNative, rate)
	snap.Categories = a.categoryTotals(byCategory, rate)
	snap.TopMerchants = a.topMerchants(byMerchant)
	snap.Anomalies = a.detectAnomalies(byCategory)

	a.log.Info("Analytics snapshot computed",
		logger.IntField("transactions", snap.TotalCount),
		logger.IntField("categories", len(snap.Categories)),
		logger.IntField("anomalies", len(snap.Anomalies)),
	)

	return snap, nil
}

func (a *Aggregator) categoryTotals(byCategory map[models.Category]*categoryAccum, rate models.ExchangeRate) []models.CategoryTotal {
	totals := make([]models.CategoryTotal, 0, len(byCategory))
	for cat, acc := range byCategory {
		totals = append(totals, models.CategoryTotal{
			Category:       cat,
			NativeLamports: acc.sum,
			Display:        convert.ToDisplay(acc.sum, rate),
			Count:          len(acc.txs),
			From:           acc.from,
			To:             acc.to,
		})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].NativeLamports != totals[j].NativeLamports {
			return totals[i].NativeLamports > totals[j].NativeLamports
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}

// topMerchants ranks by spend descending; ties go to the merchant seen
// earliest.
func (a *Aggregator) topMerchants(byMerchant map[string]*models.MerchantSpend) []models.MerchantSpend {
	ranked := make([]models.MerchantSpend, 0, len(byMerchant))
	for _, m := range byMerchant {
		ranked = append(ranked, *m)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].NativeLamports != ranked[j].NativeLamports {
			return ranked[i].NativeLamports > ranked[j].NativeLamports
		}
		if !ranked[i].FirstSeen.Equal(ranked[j].FirstSeen) {
			return ranked[i].FirstSeen.Before(ranked[j].FirstSeen)
		}
		return ranked[i].Label < ranked[j].Label
	})
	if len(ranked) > a.cfg.TopK {
		ranked = ranked[:a.cfg.TopK]
	}
	return ranked
}

// detectAnomalies flags transactions whose amount exceeds mean + k*stddev of
// the other transactions in the same category (leave-one-out, so a single
// outlier cannot inflate its own baseline).
func (a *Aggregator) detectAnomalies(byCategory map[models.Category]*categoryAccum) []models.AnomalyFlag {
	var flags []models.AnomalyFlag

	cats := make([]models.Category, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	for _, cat := range cats {
		acc := byCategory[cat]
		n := len(acc.txs)
		if n < a.cfg.MinSamples {
			continue
		}

		for _, tx := range acc.txs {
			x := float64(tx.AmountLamports)
			rest := float64(n - 1)
			mean := (float64(acc.sum) - x) / rest
			variance := (acc.sumSq-x*x)/rest - mean*mean
			if variance < 0 {
				variance = 0
			}
			stddev := math.Sqrt(variance)
			threshold := mean + a.cfg.AnomalyK*stddev
			if x > threshold {
				flags = append(flags, models.AnomalyFlag{
					TransactionID:  tx.ID,
					Category:       cat,
					AmountLamports: tx.AmountLamports,
					Mean:           mean,
					StdDev:         stddev,
					Threshold:      threshold,
				})
			}
		}
	}

	return flags
}
