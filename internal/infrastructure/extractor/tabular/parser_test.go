package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

func mustNumber(t *testing.T, rec domain.FeatureRecord, key string, want float64) {
	t.Helper()
	v, ok := rec.Get(key)
	if !ok || !v.IsNumber() || v.Num != want {
		t.Fatalf("expected %s=%v, got %+v (present=%v)", key, want, v, ok)
	}
}

func mustText(t *testing.T, rec domain.FeatureRecord, key string, want string) {
	t.Helper()
	v, ok := rec.Get(key)
	if !ok || v.IsNumber() || v.Str != want {
		t.Fatalf("expected %s=%q, got %+v (present=%v)", key, want, v, ok)
	}
}

func TestParseDelimitedDropsBlankRows(t *testing.T) {
	records, err := ParseDelimited("a,b\n1,2\n,\n3,4")
	if err != nil {
		t.Fatalf("ParseDelimited() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	mustNumber(t, records[0], "a", 1)
	mustNumber(t, records[0], "b", 2)
	mustNumber(t, records[1], "a", 3)
	mustNumber(t, records[1], "b", 4)
}

func TestParseDelimitedKeepsUnparseableAsText(t *testing.T) {
	records, err := ParseDelimited("a\nfoo")
	if err != nil {
		t.Fatalf("ParseDelimited() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	mustText(t, records[0], "a", "foo")
}

func TestParseDelimitedKeepsHexLiteralsAsText(t *testing.T) {
	records, err := ParseDelimited("a,b,c,d\n0x1p-2,-0X10,+0x1A,1e3")
	if err != nil {
		t.Fatalf("ParseDelimited() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	mustText(t, records[0], "a", "0x1p-2")
	mustText(t, records[0], "b", "-0X10")
	mustText(t, records[0], "c", "+0x1A")
	mustNumber(t, records[0], "d", 1000)

	if f := ParseManualField("0x10"); !f.Provided || f.Numeric {
		t.Fatalf("expected hex manual input to be text, got %+v", f)
	}
}

func TestParseDelimitedHandlesCRLFAndShortRows(t *testing.T) {
	records, err := ParseDelimited(" koi_period , koi_prad ,name\r\n\r\n 9.48 , NaN \r\n12\r\n\r\n")
	if err != nil {
		t.Fatalf("ParseDelimited() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if keys := records[0].Keys(); strings.Join(keys, "|") != "koi_period|koi_prad|name" {
		t.Fatalf("expected trimmed header keys, got %v", keys)
	}
	mustNumber(t, records[0], "koi_period", 9.48)
	mustText(t, records[0], "koi_prad", "NaN")
	mustText(t, records[0], "name", "")
	mustNumber(t, records[1], "koi_period", 12)
	mustText(t, records[1], "koi_prad", "")
	mustText(t, records[1], "name", "")
}

func TestParseDelimitedHeaderOnlyYieldsEmpty(t *testing.T) {
	for _, input := range []string{"a,b,c", "a,b,c\n", "", "\n\n"} {
		records, err := ParseDelimited(input)
		if err != nil {
			t.Fatalf("ParseDelimited(%q) error = %v", input, err)
		}
		if records == nil || len(records) != 0 {
			t.Fatalf("ParseDelimited(%q) expected empty slice, got %v", input, records)
		}
	}
}

func TestParseRejectsBinaryText(t *testing.T) {
	_, err := NewParser().Parse("data.csv", "text/csv", bytes.NewReader([]byte{0xff, 0xfe, 0x00}))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestParseWorkbookUsesFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"koi_period", "label"},
		{"3.5", "hot jupiter"},
		{nil, nil},
		{"7", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName() error = %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	records, err := NewParser().Parse("upload.xlsx", "", &buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	mustNumber(t, records[0], "koi_period", 3.5)
	mustText(t, records[0], "label", "hot jupiter")
	mustNumber(t, records[1], "koi_period", 7)
	mustText(t, records[1], "label", "")
}

func TestManualRecordKeepsNotProvidedSentinel(t *testing.T) {
	rec := ManualRecord(BasicForm, map[string]string{"feature1": "0.015", "feature2": "", "feature3": "abc"})
	if rec.Len() != 3 {
		t.Fatalf("expected 3 keys, got %d", rec.Len())
	}
	mustNumber(t, rec, "feature1", 0.015)
	mustText(t, rec, "feature2", "")
	mustText(t, rec, "feature3", "abc")

	if got := rec.NumericValues(); len(got) != 1 {
		t.Fatalf("expected empty field not to count as numeric, got %v", got)
	}
}

func TestParseManualField(t *testing.T) {
	if f := ParseManualField("   "); f.Provided {
		t.Fatalf("expected blank input to be not provided")
	}
	if f := ParseManualField("0"); !f.Provided || !f.Numeric || f.Value != 0 {
		t.Fatalf("expected explicit zero to be provided, got %+v", f)
	}
	if f := ParseManualField("Inf"); !f.Provided || f.Numeric {
		t.Fatalf("expected non-finite input to be text, got %+v", f)
	}
}
