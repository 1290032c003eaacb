package usecase

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
	"github.com/kirillkom/exoplanet-triage/internal/core/ports"
)

// StatsUseCase recomputes statistics on every read with a full O(n) scan over
// the identity's predictions. There is no cache.
type StatsUseCase struct {
	repo ports.PredictionRepository
}

func NewStatsUseCase(repo ports.PredictionRepository) *StatsUseCase {
	return &StatsUseCase{repo: repo}
}

func (uc *StatsUseCase) Stats(ctx context.Context, identity string) (domain.PredictionStats, error) {
	if identity == "" {
		return domain.PredictionStats{}, nil
	}
	predictions, err := uc.repo.ListAllByUser(ctx, identity)
	if err != nil {
		return domain.PredictionStats{}, fmt.Errorf("load predictions for stats: %w", err)
	}
	return ComputeStats(predictions), nil
}

// ComputeStats counts predictions per class and averages confidence over the
// predictions that carry one. Without any confidence the average is 0.
func ComputeStats(predictions []domain.Prediction) domain.PredictionStats {
	out := domain.PredictionStats{TotalPredictions: len(predictions)}
	confidences := make([]float64, 0, len(predictions))

	for _, p := range predictions {
		switch p.Classification {
		case domain.LabelConfirmed:
			out.ConfirmedPlanets++
		case domain.LabelCandidate:
			out.Candidates++
		case domain.LabelFalsePositive:
			out.FalsePositives++
		}
		if p.Confidence != nil {
			confidences = append(confidences, *p.Confidence)
		}
	}

	if avg, err := stats.Mean(confidences); err == nil {
		out.AverageConfidence = avg
	}
	return out
}
