package tabular

import (
	"strings"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

// Manual entry forms. BasicForm is the three-field quick form, KOIForm the catalogue form.
var (
	BasicForm = []string{"feature1", "feature2", "feature3"}
	KOIForm   = []string{"koi_period", "koi_prad", "koi_teq", "koi_insol", "koi_depth", "koi_duration"}
)

// ManualField is one manual-entry input. An empty input is "not provided yet",
// which is distinct from zero.
type ManualField struct {
	Raw      string
	Value    float64
	Provided bool
	Numeric  bool
}

func ParseManualField(raw string) ManualField {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ManualField{}
	}
	field := ManualField{Raw: trimmed, Provided: true}
	if cell := ParseCell(trimmed); cell.IsNumber() {
		field.Numeric = true
		field.Value = cell.Num
	}
	return field
}

// ManualRecord builds a record over the form's fixed key set. Fields that were not
// provided keep the empty-text sentinel so they never count as numeric zeros.
func ManualRecord(form []string, values map[string]string) domain.FeatureRecord {
	record := domain.NewFeatureRecord()
	for _, name := range form {
		field := ParseManualField(values[name])
		switch {
		case !field.Provided:
			record.Set(name, domain.Text(""))
		case field.Numeric:
			record.Set(name, domain.Number(field.Value))
		default:
			record.Set(name, domain.Text(field.Raw))
		}
	}
	return record
}

// FormByName resolves a manual form name; unknown names fall back to BasicForm.
func FormByName(name string) []string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "koi":
		return KOIForm
	default:
		return BasicForm
	}
}
