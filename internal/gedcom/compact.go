package gedcom

import (
	"io"
	"strings"

	"gedcom2csv/internal/etl"
)

// ParseAndCompact parses r and compacts the result.
func ParseAndCompact(r io.Reader) ([]etl.Node, error) {
	tree, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return Compact(tree), nil
}

// Compact flattens every level-0 line into one node. Descendant values are
// keyed by the formal names of their path joined with "/"; pointer values
// get an "@" key prefix; repeated keys collect into a structured array.
// A line with no xref, no value and no children yields absent data.
func Compact(tree *Tree) []etl.Node {
	nodes := make([]etl.Node, 0, len(tree.Roots))
	for _, root := range tree.Roots {
		nodes = append(nodes, compactRecord(root))
	}
	return nodes
}

func compactRecord(l *Line) etl.Node {
	n := etl.Node{Tag: l.Tag}
	if l.Xref == "" && l.Value == "" && len(l.Children) == 0 {
		return n
	}

	acc := &accumulator{values: map[string][]string{}}
	acc.add("formal_name", FormalName(l.Tag))
	if l.Xref != "" {
		acc.add("xref_id", l.Xref)
	}
	if l.Value != "" {
		acc.add("value", l.Value)
	}
	for _, c := range l.Children {
		acc.walk(c, "")
	}
	n.Data = acc.data()
	return n
}

type accumulator struct {
	values map[string][]string
}

func (a *accumulator) add(key, value string) {
	a.values[key] = append(a.values[key], value)
}

func (a *accumulator) walk(l *Line, prefix string) {
	key := FormalName(l.Tag)
	if prefix != "" {
		key = prefix + "/" + key
	}
	if l.Value != "" {
		if isPointer(l.Value) {
			a.add("@"+key, l.Value)
		} else {
			a.add(key, l.Value)
		}
	}
	for _, c := range l.Children {
		a.walk(c, key)
	}
}

func (a *accumulator) data() map[string]etl.Value {
	out := make(map[string]etl.Value, len(a.values))
	for k, vs := range a.values {
		if len(vs) == 1 {
			out[k] = etl.Text(vs[0])
			continue
		}
		out[k] = etl.Structured{V: vs}
	}
	return out
}

func isPointer(v string) bool {
	return len(v) > 2 && v[0] == '@' && v[len(v)-1] == '@' && !strings.ContainsAny(v, " \t")
}
