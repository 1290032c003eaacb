package domain

import (
	"fmt"
	"sort"
	"strings"
)

type Label string

const (
	LabelConfirmed     Label = "CONFIRMED"
	LabelCandidate     Label = "CANDIDATE"
	LabelFalsePositive Label = "FALSE_POSITIVE"
)

// Labels lists every class in display order.
var Labels = []Label{LabelConfirmed, LabelCandidate, LabelFalsePositive}

func (l Label) Valid() bool {
	switch l {
	case LabelConfirmed, LabelCandidate, LabelFalsePositive:
		return true
	default:
		return false
	}
}

// ParseLabel accepts canonical labels and the spellings the model service emits
// ("FALSE POSITIVE", lower case, padded).
func ParseLabel(raw string) (Label, error) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.ReplaceAll(norm, " ", "_")
	norm = strings.ReplaceAll(norm, "-", "_")
	label := Label(norm)
	if !label.Valid() {
		return "", WrapError(ErrInvalidInput, "parse label", fmt.Errorf("unknown label %q", raw))
	}
	return label, nil
}

type ResultSource string

const (
	SourceRemote   ResultSource = "remote"
	SourceFallback ResultSource = "fallback"
)

type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Weight is the importance clamped to [0, +inf); weights are relative, not normalized.
func (fi FeatureImportance) Weight() float64 {
	if fi.Importance < 0 {
		return 0
	}
	return fi.Importance
}

// SortedImportance returns a copy ordered by descending importance.
func SortedImportance(in []FeatureImportance) []FeatureImportance {
	out := make([]FeatureImportance, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}

// ClampUnit clamps a probability for display. Distributions are not renormalized.
func ClampUnit(p float64) float64 {
	switch {
	case p != p:
		return 0
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Enrichment is the optional detail attached to a classification after the fact.
type Enrichment struct {
	Probabilities     map[Label]float64   `json:"probabilities,omitempty"`
	FeatureImportance []FeatureImportance `json:"featureImportance,omitempty"`
}

func (e Enrichment) Empty() bool {
	return len(e.Probabilities) == 0 && len(e.FeatureImportance) == 0
}

type ClassificationResult struct {
	Label             Label               `json:"label"`
	Confidence        *float64            `json:"confidence,omitempty"`
	Probabilities     map[Label]float64   `json:"probabilities,omitempty"`
	FeatureImportance []FeatureImportance `json:"featureImportance,omitempty"`
	Source            ResultSource        `json:"source"`
}

func (r ClassificationResult) Enrichment() Enrichment {
	return Enrichment{
		Probabilities:     r.Probabilities,
		FeatureImportance: r.FeatureImportance,
	}
}
