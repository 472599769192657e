package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// ── CSV Serializer ─────────────────────────────────────────
// Turns one record group into a CSV document.

// Dialect selects how cells are protected against the delimiter.
type Dialect string

const (
	// DialectLegacy replaces commas inside cells with semicolons and never
	// quotes. Embedded newlines and quotes pass through untouched.
	DialectLegacy Dialect = "legacy"
	// DialectRFC4180 keeps commas and quotes cells with encoding/csv.
	DialectRFC4180 Dialect = "rfc4180"
)

// ErrUnknownDialect is returned by ParseDialect.
var ErrUnknownDialect = errors.New("unknown csv dialect")

// ParseDialect validates a dialect name. Empty means legacy.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case "", DialectLegacy:
		return DialectLegacy, nil
	case DialectRFC4180:
		return DialectRFC4180, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, s)
	}
}

// Table is a serialized record group.
type Table struct {
	Category Category `json:"category"`
	Schema   *Schema  `json:"schema"`
	Rows     int      `json:"rows"`
	Document string   `json:"-"`
	Records  []Record `json:"-"`
}

// Serializer renders record groups as CSV documents.
// The zero value uses the legacy dialect.
type Serializer struct {
	Dialect Dialect
	// Limit caps the emitted data rows; columns still cover the whole group.
	// Zero means no limit.
	Limit int
}

// ToCSV serializes records with the legacy dialect.
func ToCSV(records []Record) (string, error) {
	t, err := Serializer{}.Serialize(records)
	if err != nil {
		return "", err
	}
	return t.Document, nil
}

// Serialize renders records as a header line plus one line per record.
// An empty group yields an empty document. Any cell that cannot be rendered
// fails the whole table.
func (s Serializer) Serialize(records []Record) (*Table, error) {
	dialect, err := ParseDialect(string(s.Dialect))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Table{Schema: &Schema{}}, nil
	}

	schema := DeriveSchema(records, NewColumnOrder())
	columns := schema.FieldNames()
	if s.Limit > 0 && s.Limit < len(records) {
		records = records[:s.Limit]
	}

	var doc string
	if dialect == DialectRFC4180 {
		doc, err = writeRFC4180(records, columns)
	} else {
		doc, err = writeLegacy(records, columns)
	}
	if err != nil {
		return nil, err
	}
	return &Table{Schema: schema, Rows: len(records), Document: doc, Records: records}, nil
}

func writeLegacy(records []Record, columns []string) (string, error) {
	var b strings.Builder
	b.WriteString(strings.Join(columns, ","))
	b.WriteByte('\n')
	for i, r := range records {
		cells, err := RowCells(r, columns)
		if err != nil {
			return "", fmt.Errorf("row %d: %w", i, err)
		}
		for j, c := range cells {
			cells[j] = strings.ReplaceAll(c, ",", ";")
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(cells, ","))
	}
	return b.String(), nil
}

func writeRFC4180(records []Record, columns []string) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range records {
		cells, err := RowCells(r, columns)
		if err != nil {
			return "", fmt.Errorf("row %d: %w", i, err)
		}
		if err := w.Write(cells); err != nil {
			return "", fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv writer: %w", err)
	}
	return b.String(), nil
}

// RowCells renders a record's values positionally aligned to columns.
// Absent fields render as empty cells.
func RowCells(r Record, columns []string) ([]string, error) {
	cells := make([]string, len(columns))
	for i, col := range columns {
		v, ok := r.Get(col)
		if !ok || v == nil {
			continue
		}
		c, err := RenderCell(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		cells[i] = c
	}
	return cells, nil
}

// RenderCell renders a value without delimiter handling: text is trimmed,
// structured values become compact JSON.
func RenderCell(v Value) (string, error) {
	s, err := v.Render()
	if err != nil {
		return "", err
	}
	if _, ok := v.(Text); ok {
		return strings.TrimSpace(s), nil
	}
	return s, nil
}
