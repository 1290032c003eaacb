package domain

import (
	"sync"

	"github.com/google/uuid"
)

type HistoryEntry struct {
	ID                string              `json:"id"`
	Timestamp         int64               `json:"timestamp"`
	Inputs            FeatureRecord       `json:"inputs"`
	Prediction        Label               `json:"prediction"`
	Confidence        *float64            `json:"confidence,omitempty"`
	Confidences       map[Label]float64   `json:"confidences,omitempty"`
	FeatureImportance []FeatureImportance `json:"featureImportance,omitempty"`
	Source            ResultSource        `json:"source"`
}

func (e HistoryEntry) clone() HistoryEntry {
	out := e
	out.Inputs = e.Inputs.Clone()
	if e.Confidence != nil {
		c := *e.Confidence
		out.Confidence = &c
	}
	out.Confidences = cloneProbabilities(e.Confidences)
	if e.FeatureImportance != nil {
		out.FeatureImportance = append([]FeatureImportance(nil), e.FeatureImportance...)
	}
	return out
}

func (e *HistoryEntry) merge(enrichment Enrichment) {
	if len(enrichment.Probabilities) > 0 {
		e.Confidences = cloneProbabilities(enrichment.Probabilities)
	}
	if len(enrichment.FeatureImportance) > 0 {
		e.FeatureImportance = append([]FeatureImportance(nil), enrichment.FeatureImportance...)
	}
}

// WithEnrichment returns a copy of the entry with enrichment merged in.
func (e HistoryEntry) WithEnrichment(enrichment Enrichment) HistoryEntry {
	out := e.clone()
	out.merge(enrichment)
	return out
}

// Enriched reports whether confidences or feature importances are attached.
func (e HistoryEntry) Enriched() bool {
	return len(e.Confidences) > 0 || len(e.FeatureImportance) > 0
}

func cloneProbabilities(in map[Label]float64) map[Label]float64 {
	if in == nil {
		return nil
	}
	out := make(map[Label]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Ledger is the per-session classification history, most recent first.
// Entries are immutable once appended except for enrichment of the head entry.
type Ledger struct {
	mu sync.Mutex
	// items is kept oldest-first so that Append is an amortized O(1) push;
	// the logical index 0 is the last element.
	items []HistoryEntry
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Append stores a copy of entry at the head and returns the stored copy.
func (l *Ledger) Append(entry HistoryEntry) HistoryEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	stored := entry.clone()

	l.mu.Lock()
	l.items = append(l.items, stored)
	l.mu.Unlock()

	return stored.clone()
}

// EnrichMostRecent merges enrichment into whatever entry is currently at the head.
func (l *Ledger) EnrichMostRecent(enrichment Enrichment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return
	}
	l.items[len(l.items)-1].merge(enrichment)
}

// EnrichIfHead merges enrichment only while entryID is still the head entry.
func (l *Ledger) EnrichIfHead(entryID string, enrichment Enrichment) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return false
	}
	head := &l.items[len(l.items)-1]
	if head.ID != entryID {
		return false
	}
	head.merge(enrichment)
	return true
}

func (l *Ledger) Head() (HistoryEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return HistoryEntry{}, false
	}
	return l.items[len(l.items)-1].clone(), true
}

// Entries returns copies of all entries, most recent first.
func (l *Ledger) Entries() []HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]HistoryEntry, 0, len(l.items))
	for i := len(l.items) - 1; i >= 0; i-- {
		out = append(out, l.items[i].clone())
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
