package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/testtube/campus-ledger/internal/core/analytics"
	"github.com/testtube/campus-ledger/internal/core/convert"
	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/models"
)

type AnalyticsUsecase interface {
	GetSnapshot(ctx context.Context, from, to time.Time) (*models.AnalyticsSnapshot, error)
}

type analyticsUsecase struct {
	aggregator *analytics.Aggregator
	rates      convert.RateSource
	log        logger.Logger
}

func NewAnalyticsUsecase(aggregator *analytics.Aggregator, rates convert.RateSource, log logger.Logger) AnalyticsUsecase {
	return &analyticsUsecase{aggregator: aggregator, rates: rates, log: log}
}

// GetSnapshot is a read-only request: a rate-source failure is surfaced
// immediately instead of blocking the caller behind retries.
func (uc *analyticsUsecase) GetSnapshot(ctx context.Context, from, to time.Time) (*models.AnalyticsSnapshot, error) {
	rate, err := uc.rates.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch display rate: %w", err)
	}
	return uc.aggregator.Snapshot(ctx, from, to, rate)
}
