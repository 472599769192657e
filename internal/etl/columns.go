package etl

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// pinnedColumns always lead the header, in this order.
var pinnedColumns = []string{"NAME", "MARRIAGE/DATE"}

// DiscoverColumns returns the union of field names across records.
// The result is unordered in meaning; use SortColumns before emitting it.
func DiscoverColumns(records []Record) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		for _, k := range r.Keys() {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	return names
}

// ColumnOrder is the header comparator. It is not safe for concurrent use
// because the collator keeps internal buffers; create one per goroutine.
type ColumnOrder struct {
	coll *collate.Collator
}

// NewColumnOrder returns a comparator using root-locale, case-insensitive
// collation for the alphabetical part.
func NewColumnOrder() *ColumnOrder {
	return &ColumnOrder{coll: collate.New(language.Und, collate.IgnoreCase)}
}

// Compare orders a before b when it returns a negative number:
// pinned names first, then names starting with a letter or digit,
// then names starting with anything else; collation within each class,
// byte order when the collator sees no difference.
func (o *ColumnOrder) Compare(a, b string) int {
	if ra, rb := pinRank(a), pinRank(b); ra != rb {
		return ra - rb
	}
	if sa, sb := startsWithSpecial(a), startsWithSpecial(b); sa != sb {
		if sa {
			return 1
		}
		return -1
	}
	if c := o.coll.CompareString(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortColumns orders names in place.
func (o *ColumnOrder) SortColumns(names []string) {
	slices.SortFunc(names, o.Compare)
}

// SortColumns orders names in place with a fresh comparator.
func SortColumns(names []string) {
	NewColumnOrder().SortColumns(names)
}

func pinRank(name string) int {
	for i, p := range pinnedColumns {
		if strings.EqualFold(name, p) {
			return i
		}
	}
	return len(pinnedColumns)
}

// startsWithSpecial reports whether the first byte is outside [A-Za-z0-9].
// Non-ASCII leading characters count as special.
func startsWithSpecial(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	default:
		return true
	}
}

// DeriveSchema builds the ordered output schema of a group. A field is
// "structured" when any record holds a Structured value for it.
func DeriveSchema(records []Record, order *ColumnOrder) *Schema {
	names := DiscoverColumns(records)
	order.SortColumns(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		typ := "text"
		for _, r := range records {
			if _, ok := r.Data[name].(Structured); ok {
				typ = "structured"
				break
			}
		}
		fields = append(fields, Field{Name: name, Type: typ})
	}
	return &Schema{Fields: fields}
}
