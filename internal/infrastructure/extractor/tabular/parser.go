package tabular

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

const workbookMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var lineBreak = regexp.MustCompile(`\r?\n`)

// Parser turns uploaded tabular files into feature records.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse dispatches on file extension or MIME type: workbooks go through excelize,
// everything else is read as comma-delimited UTF-8 text.
func (p *Parser) Parse(filename, mimeType string, body io.Reader) ([]domain.FeatureRecord, error) {
	if isWorkbook(filename, mimeType) {
		return ParseWorkbook(body)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse upload", fmt.Errorf("%s is not UTF-8 text", filename))
	}
	return ParseDelimited(string(raw))
}

func isWorkbook(filename, mimeType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(mimeType), workbookMimeType)
}

// ParseDelimited reads comma-separated text whose first non-blank line is the header.
// A header-only input yields an empty slice.
func ParseDelimited(text string) ([]domain.FeatureRecord, error) {
	lines := make([]string, 0)
	for _, line := range lineBreak.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return []domain.FeatureRecord{}, nil
	}

	header := strings.Split(lines[0], ",")
	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, strings.Split(line, ","))
	}
	return buildRecords(header, rows), nil
}

// ParseWorkbook reads the first sheet of an XLSX workbook with the same cell rules as ParseDelimited.
func ParseWorkbook(body io.Reader) ([]domain.FeatureRecord, error) {
	f, err := excelize.OpenReader(body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []domain.FeatureRecord{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	nonBlank := make([][]string, 0, len(rows))
	for _, row := range rows {
		if !blankRow(row) {
			nonBlank = append(nonBlank, row)
		}
	}
	if len(nonBlank) == 0 {
		return []domain.FeatureRecord{}, nil
	}
	return buildRecords(nonBlank[0], nonBlank[1:]), nil
}

func buildRecords(header []string, rows [][]string) []domain.FeatureRecord {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	out := make([]domain.FeatureRecord, 0, len(rows))
	for _, cells := range rows {
		if blankRow(cells) {
			continue
		}
		record := domain.NewFeatureRecord()
		for idx, name := range names {
			raw := ""
			if idx < len(cells) {
				raw = strings.TrimSpace(cells[idx])
			}
			record.Set(name, ParseCell(raw))
		}
		out = append(out, record)
	}
	return out
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseCell types a trimmed cell: finite decimal numbers become Number, anything
// else (hex floats included) stays verbatim Text.
func ParseCell(raw string) domain.Value {
	if raw == "" {
		return domain.Text("")
	}
	if isHexLiteral(raw) {
		return domain.Text(raw)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return domain.Text(raw)
	}
	return domain.Number(f)
}

func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
