package etl

// ── Classifier ─────────────────────────────────────────────
// Routes top-level nodes into the three output tables.

// Category names one output table.
type Category string

const (
	CategoryIndividuals Category = "individuals"
	CategoryFamilies    Category = "families"
	CategoryOther       Category = "other"
)

// Categories lists every category in output order.
var Categories = []Category{CategoryIndividuals, CategoryFamilies, CategoryOther}

// FileName is the CSV file a category is written to.
func (c Category) FileName() string { return string(c) + ".csv" }

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Groups holds the classified records, each in input order.
type Groups struct {
	Individuals []Record
	Families    []Record
	Other       []Record
}

// Get returns the group of a category.
func (g *Groups) Get(c Category) []Record {
	switch c {
	case CategoryIndividuals:
		return g.Individuals
	case CategoryFamilies:
		return g.Families
	default:
		return g.Other
	}
}

// CategoryOf maps a record tag to its table.
func CategoryOf(tag string) Category {
	switch tag {
	case "INDI":
		return CategoryIndividuals
	case "FAM":
		return CategoryFamilies
	default:
		return CategoryOther
	}
}

// Classify partitions nodes by tag in a single pass.
// Nodes without data are dropped regardless of their category.
func Classify(nodes []Node) *Groups {
	g := &Groups{}
	for _, n := range nodes {
		if n.Data == nil {
			continue
		}
		rec := Record{Data: n.Data}
		switch CategoryOf(n.Tag) {
		case CategoryIndividuals:
			g.Individuals = append(g.Individuals, rec)
		case CategoryFamilies:
			g.Families = append(g.Families, rec)
		default:
			g.Other = append(g.Other, rec)
		}
	}
	return g
}
