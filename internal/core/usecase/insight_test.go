package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testtube/campus-ledger/internal/core/analytics"
	"github.com/testtube/campus-ledger/internal/core/convert"
	"github.com/testtube/campus-ledger/internal/core/insight"
	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/usecase"
)

type scriptedGenerator struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(context.Context, *insight.Request) (string, error) {
	return g.text, g.err
}

func newInsightUsecase(t *testing.T, gen insight.Generator) usecase.InsightUsecase {
	t.Helper()

	repo := newFakeRepo()
	uc := newPaymentUsecase(repo, &fakeChain{})
	_, err := uc.SubmitPayment(context.Background(), usecase.SubmitPaymentInput{
		Recipient:      recipientAddr,
		AmountLamports: 1_000_000_000,
		Purpose:        "lunch",
	})
	require.NoError(t, err)

	aggregator := analytics.NewAggregator(repo, analytics.DefaultConfig(), logger.NewNop())
	rates := convert.NewFixedRateSource(decimal.RequireFromString("100"), "USD")
	analyticsUC := usecase.NewAnalyticsUsecase(aggregator, rates, logger.NewNop())
	return usecase.NewInsightUsecase(analyticsUC, gen, logger.NewNop())
}

func window() (time.Time, time.Time) {
	now := time.Now().UTC()
	return now.Add(-time.Hour), now.Add(time.Hour)
}

func TestGetInsightReturnsNarrative(t *testing.T) {
	uc := newInsightUsecase(t, &scriptedGenerator{text: "Mostly food this week."})

	from, to := window()
	result, err := uc.GetInsight(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, "Mostly food this week.", result.Narrative)
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, 1, result.Snapshot.TotalCount)
}

func TestGetInsightDegradesOnEmptyNarrative(t *testing.T) {
	uc := newInsightUsecase(t, &scriptedGenerator{err: insight.ErrEmptyInsight})

	from, to := window()
	result, err := uc.GetInsight(context.Background(), from, to)
	require.NoError(t, err, "an empty narrative degrades to statistics, not an error")

	assert.Empty(t, result.Narrative)
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, 1, result.Snapshot.TotalCount)
}

func TestGetInsightSurfacesGeneratorFailure(t *testing.T) {
	uc := newInsightUsecase(t, &scriptedGenerator{err: insight.ErrGeneratorUnavailable})

	from, to := window()
	_, err := uc.GetInsight(context.Background(), from, to)
	assert.ErrorIs(t, err, insight.ErrGeneratorUnavailable)
}
