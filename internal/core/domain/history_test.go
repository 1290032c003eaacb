package domain

import "testing"

func entryWith(ts int64, key string, v float64, label Label) HistoryEntry {
	rec := NewFeatureRecord()
	rec.Set(key, Number(v))
	return HistoryEntry{Timestamp: ts, Inputs: rec, Prediction: label}
}

func TestLedgerAppendIsMostRecentFirst(t *testing.T) {
	ledger := NewLedger()
	e1 := ledger.Append(entryWith(1, "a", 1, LabelCandidate))
	e2 := ledger.Append(entryWith(2, "a", 2, LabelConfirmed))

	entries := ledger.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != e2.ID || entries[1].ID != e1.ID {
		t.Fatalf("expected [E2, E1], got [%s, %s]", entries[0].ID, entries[1].ID)
	}
	if e1.ID == "" || e1.ID == e2.ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", e1.ID, e2.ID)
	}
}

func TestLedgerEnrichMostRecentTouchesOnlyHead(t *testing.T) {
	ledger := NewLedger()
	ledger.Append(entryWith(1, "a", 1, LabelCandidate))
	ledger.Append(entryWith(2, "a", 2, LabelConfirmed))

	ledger.EnrichMostRecent(Enrichment{
		Probabilities:     map[Label]float64{LabelConfirmed: 0.8},
		FeatureImportance: []FeatureImportance{{Feature: "a", Importance: 0.5}},
	})

	entries := ledger.Entries()
	if entries[0].Confidences[LabelConfirmed] != 0.8 {
		t.Fatalf("expected head confidences to be set, got %+v", entries[0].Confidences)
	}
	if len(entries[0].FeatureImportance) != 1 {
		t.Fatalf("expected head feature importance, got %+v", entries[0].FeatureImportance)
	}
	if entries[1].Confidences != nil || entries[1].FeatureImportance != nil {
		t.Fatalf("expected older entry untouched, got %+v", entries[1])
	}
	if entries[0].Prediction != LabelConfirmed || entries[0].Timestamp != 2 {
		t.Fatalf("expected other head fields untouched, got %+v", entries[0])
	}
}

func TestLedgerEnrichMostRecentOnEmptyIsNoop(t *testing.T) {
	ledger := NewLedger()
	ledger.EnrichMostRecent(Enrichment{Probabilities: map[Label]float64{LabelCandidate: 1}})
	if ledger.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d", ledger.Len())
	}
}

func TestLedgerEnrichIfHeadRejectsStaleEntry(t *testing.T) {
	ledger := NewLedger()
	first := ledger.Append(entryWith(1, "a", 1, LabelCandidate))
	ledger.Append(entryWith(2, "a", 2, LabelConfirmed))

	if ledger.EnrichIfHead(first.ID, Enrichment{Probabilities: map[Label]float64{LabelCandidate: 0.9}}) {
		t.Fatalf("expected enrichment of a non-head entry to be rejected")
	}
	for _, entry := range ledger.Entries() {
		if entry.Confidences != nil {
			t.Fatalf("expected no entry enriched, got %+v", entry)
		}
	}
}

func TestLedgerEntriesAreCopies(t *testing.T) {
	ledger := NewLedger()
	ledger.Append(entryWith(1, "a", 1, LabelCandidate))

	entries := ledger.Entries()
	entries[0].Inputs.Set("a", Text("mutated"))
	entries[0].Prediction = LabelConfirmed

	head, _ := ledger.Head()
	if v, _ := head.Inputs.Get("a"); !v.IsNumber() || v.Num != 1 {
		t.Fatalf("expected stored inputs untouched, got %+v", v)
	}
	if head.Prediction != LabelCandidate {
		t.Fatalf("expected stored prediction untouched, got %s", head.Prediction)
	}
}
