package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/testtube/campus-ledger/internal/core/insight"
	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/models"
)

// InsightResult bundles the snapshot with the generated narrative. Narrative
// is empty when the generator returned blank text; the raw statistics still
// render in that case.
type InsightResult struct {
	Snapshot  *models.AnalyticsSnapshot `json:"snapshot"`
	Narrative string                    `json:"narrative,omitempty"`
}

type InsightUsecase interface {
	GetInsight(ctx context.Context, from, to time.Time) (*InsightResult, error)
}

type insightUsecase struct {
	analytics AnalyticsUsecase
	generator insight.Generator
	log       logger.Logger
}

func NewInsightUsecase(analytics AnalyticsUsecase, generator insight.Generator, log logger.Logger) InsightUsecase {
	return &insightUsecase{analytics: analytics, generator: generator, log: log}
}

func (uc *insightUsecase) GetInsight(ctx context.Context, from, to time.Time) (*InsightResult, error) {
	snap, err := uc.analytics.GetSnapshot(ctx, from, to)
	if err != nil {
		return nil, err
	}

	narrative, err := uc.generator.Generate(ctx, insight.BuildRequest(snap))
	if err != nil {
		if errors.Is(err, insight.ErrEmptyInsight) {
			// Degrade to raw statistics rather than failing the request.
			uc.log.Warn("Empty insight, returning statistics only")
			return &InsightResult{Snapshot: snap}, nil
		}
		return nil, err
	}

	return &InsightResult{Snapshot: snap, Narrative: narrative}, nil
}
