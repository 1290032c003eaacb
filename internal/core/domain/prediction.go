package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

type DataSource string

const (
	DataSourceKepler DataSource = "KEPLER"
	DataSourceK2     DataSource = "K2"
	DataSourceTESS   DataSource = "TESS"
)

func (s DataSource) Valid() bool {
	switch s {
	case DataSourceKepler, DataSourceK2, DataSourceTESS:
		return true
	default:
		return false
	}
}

// Prediction is a classified candidate as persisted for its owner.
type Prediction struct {
	ID                     string     `json:"id"`
	UserID                 string     `json:"userId"`
	KeplerName             string     `json:"keplerName,omitempty"`
	Period                 float64    `json:"period"`
	TransitDuration        float64    `json:"transitDuration"`
	PlanetRadius           float64    `json:"planetRadius"`
	StellarRadius          float64    `json:"stellarRadius"`
	StellarMass            float64    `json:"stellarMass"`
	StellarTemperature     float64    `json:"stellarTemperature"`
	EquilibriumTemperature *float64   `json:"equilibriumTemperature,omitempty"`
	InsolationFlux         *float64   `json:"insolationFlux,omitempty"`
	Classification         Label      `json:"classification"`
	Confidence             *float64   `json:"confidence,omitempty"`
	Source                 DataSource `json:"source"`
	CreatedAt              time.Time  `json:"createdAt"`
}

func (p Prediction) Validate() error {
	if !p.Classification.Valid() {
		return WrapError(ErrInvalidInput, "validate prediction", fmt.Errorf("classification %q", p.Classification))
	}
	if !p.Source.Valid() {
		return WrapError(ErrInvalidInput, "validate prediction", fmt.Errorf("source %q", p.Source))
	}
	if p.Confidence != nil && (math.IsNaN(*p.Confidence) || *p.Confidence < 0 || *p.Confidence > 1) {
		return WrapError(ErrInvalidInput, "validate prediction", fmt.Errorf("confidence %v outside [0,1]", *p.Confidence))
	}
	return nil
}

// Column aliases accepted when mapping an uploaded row onto canonical fields.
var predictionColumns = map[string][]string{
	"period":                 {"period", "koi_period", "pl_orbper"},
	"transitDuration":        {"transitDuration", "koi_duration", "pl_trandurh"},
	"planetRadius":           {"planetRadius", "koi_prad", "pl_rade"},
	"stellarRadius":          {"stellarRadius", "koi_srad", "st_rad"},
	"stellarMass":            {"stellarMass", "koi_smass", "st_mass"},
	"stellarTemperature":     {"stellarTemperature", "koi_steff", "st_teff"},
	"equilibriumTemperature": {"equilibriumTemperature", "koi_teq", "pl_eqt"},
	"insolationFlux":         {"insolationFlux", "koi_insol", "pl_insol"},
	"keplerName":             {"keplerName", "kepler_name", "kepoi_name"},
}

var ErrMissingColumns = errors.New("record lacks canonical prediction columns")

// PredictionFromEntry maps a classified history entry onto the persisted shape.
func PredictionFromEntry(entry HistoryEntry, source DataSource) (Prediction, error) {
	p := Prediction{
		Classification: entry.Prediction,
		Source:         source,
	}
	switch c, ok := entry.Confidences[entry.Prediction]; {
	case entry.Confidence != nil:
		c = ClampUnit(*entry.Confidence)
		p.Confidence = &c
	case ok:
		c = ClampUnit(c)
		p.Confidence = &c
	}

	required := map[string]*float64{
		"period":             &p.Period,
		"transitDuration":    &p.TransitDuration,
		"planetRadius":       &p.PlanetRadius,
		"stellarRadius":      &p.StellarRadius,
		"stellarMass":        &p.StellarMass,
		"stellarTemperature": &p.StellarTemperature,
	}
	var missing []string
	for field, dst := range required {
		v, ok := lookupNumber(entry.Inputs, field)
		if !ok {
			missing = append(missing, field)
			continue
		}
		*dst = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Prediction{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ","))
	}

	if v, ok := lookupNumber(entry.Inputs, "equilibriumTemperature"); ok {
		p.EquilibriumTemperature = &v
	}
	if v, ok := lookupNumber(entry.Inputs, "insolationFlux"); ok {
		p.InsolationFlux = &v
	}
	for _, alias := range predictionColumns["keplerName"] {
		if v, ok := entry.Inputs.Get(alias); ok && !v.IsNumber() && v.Str != "" {
			p.KeplerName = v.Str
			break
		}
	}
	return p, p.Validate()
}

func lookupNumber(record FeatureRecord, field string) (float64, bool) {
	for _, alias := range predictionColumns[field] {
		if v, ok := record.Get(alias); ok && v.IsNumber() {
			return v.Num, true
		}
	}
	return 0, false
}

type PredictionStats struct {
	TotalPredictions  int     `json:"totalPredictions"`
	ConfirmedPlanets  int     `json:"confirmedPlanets"`
	Candidates        int     `json:"candidates"`
	FalsePositives    int     `json:"falsePositives"`
	AverageConfidence float64 `json:"averageConfidence"`
}

type ModelMetrics struct {
	ID                 string              `json:"id,omitempty"`
	ModelVersion       string              `json:"modelVersion"`
	Accuracy           float64             `json:"accuracy"`
	Precision          float64             `json:"precision"`
	Recall             float64             `json:"recall"`
	F1Score            float64             `json:"f1Score"`
	TrainingDataSize   int                 `json:"trainingDataSize"`
	ValidationDataSize int                 `json:"validationDataSize"`
	FeatureImportance  []FeatureImportance `json:"featureImportance"`
	CreatedAt          time.Time           `json:"createdAt,omitzero"`
}

func (m ModelMetrics) Validate() error {
	if strings.TrimSpace(m.ModelVersion) == "" {
		return WrapError(ErrInvalidInput, "validate metrics", errors.New("modelVersion is required"))
	}
	for name, v := range map[string]float64{
		"accuracy":  m.Accuracy,
		"precision": m.Precision,
		"recall":    m.Recall,
		"f1Score":   m.F1Score,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return WrapError(ErrInvalidInput, "validate metrics", fmt.Errorf("%s %v outside [0,1]", name, v))
		}
	}
	if m.TrainingDataSize < 0 || m.ValidationDataSize < 0 {
		return WrapError(ErrInvalidInput, "validate metrics", errors.New("data sizes must be non-negative"))
	}
	return nil
}

// DefaultModelMetrics is reported when no snapshot has been recorded yet.
func DefaultModelMetrics() ModelMetrics {
	return ModelMetrics{
		ModelVersion:       "v1.0.0",
		Accuracy:           0.947,
		Precision:          0.923,
		Recall:             0.891,
		F1Score:            0.906,
		TrainingDataSize:   9564,
		ValidationDataSize: 2391,
		FeatureImportance: []FeatureImportance{
			{Feature: "period", Importance: 0.234},
			{Feature: "transitDuration", Importance: 0.198},
			{Feature: "planetRadius", Importance: 0.187},
			{Feature: "stellarRadius", Importance: 0.156},
			{Feature: "stellarMass", Importance: 0.134},
			{Feature: "stellarTemperature", Importance: 0.091},
		},
	}
}
