package usecase

import (
	"github.com/montanaflynn/stats"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

const (
	confirmedMeanThreshold = 0.66
	candidateMeanThreshold = 0.33
)

// FallbackClassify labels a record from the mean of its numeric values alone.
// It is used whenever the model service cannot give a usable answer, so it must
// always return a label and carries no confidence data.
func FallbackClassify(record domain.FeatureRecord) domain.ClassificationResult {
	mean, err := stats.Mean(record.NumericValues())
	if err != nil {
		mean = 0
	}

	label := domain.LabelFalsePositive
	switch {
	case mean > confirmedMeanThreshold:
		label = domain.LabelConfirmed
	case mean > candidateMeanThreshold:
		label = domain.LabelCandidate
	}
	return domain.ClassificationResult{
		Label:  label,
		Source: domain.SourceFallback,
	}
}
