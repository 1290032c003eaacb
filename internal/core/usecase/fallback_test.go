package usecase

import (
	"testing"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

func recordOf(values ...float64) domain.FeatureRecord {
	rec := domain.NewFeatureRecord()
	for i, v := range values {
		rec.Set(string(rune('a'+i)), domain.Number(v))
	}
	return rec
}

func TestFallbackClassifyThresholds(t *testing.T) {
	cases := []struct {
		name   string
		record domain.FeatureRecord
		want   domain.Label
	}{
		{name: "above confirmed", record: recordOf(0.9, 0.7), want: domain.LabelConfirmed},
		{name: "exactly 0.66", record: recordOf(0.66), want: domain.LabelCandidate},
		{name: "between", record: recordOf(0.4, 0.6), want: domain.LabelCandidate},
		{name: "exactly 0.33", record: recordOf(0.33), want: domain.LabelFalsePositive},
		{name: "below", record: recordOf(0.1, 0.2), want: domain.LabelFalsePositive},
		{name: "negative", record: recordOf(-5), want: domain.LabelFalsePositive},
		{name: "large values", record: recordOf(289.9, 5518), want: domain.LabelConfirmed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FallbackClassify(tc.record)
			if got.Label != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.Label)
			}
			if got.Source != domain.SourceFallback {
				t.Fatalf("expected fallback source, got %s", got.Source)
			}
			if got.Confidence != nil || got.Probabilities != nil || got.FeatureImportance != nil {
				t.Fatalf("expected no confidence data, got %+v", got)
			}
		})
	}
}

func TestFallbackClassifyWithoutNumbersIsFalsePositive(t *testing.T) {
	rec := domain.NewFeatureRecord()
	rec.Set("name", domain.Text("KOI-1"))
	rec.Set("blank", domain.Text(""))

	if got := FallbackClassify(rec).Label; got != domain.LabelFalsePositive {
		t.Fatalf("expected FALSE_POSITIVE, got %s", got)
	}
	if got := FallbackClassify(domain.NewFeatureRecord()).Label; got != domain.LabelFalsePositive {
		t.Fatalf("expected FALSE_POSITIVE for empty record, got %s", got)
	}
}

func TestFallbackClassifyIgnoresTextCells(t *testing.T) {
	rec := domain.NewFeatureRecord()
	rec.Set("a", domain.Number(0.9))
	rec.Set("b", domain.Text("0"))
	if got := FallbackClassify(rec).Label; got != domain.LabelConfirmed {
		t.Fatalf("expected CONFIRMED from numeric mean 0.9, got %s", got)
	}
}
