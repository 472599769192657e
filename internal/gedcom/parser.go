// Package gedcom reads GEDCOM text into a line tree and compacts that tree
// into flat records keyed by tag paths.
package gedcom

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const maxLineLen = 1 << 20

// Line is one GEDCOM line with its nested children.
type Line struct {
	Number   int
	Level    int
	Xref     string // including the surrounding @, e.g. "@I1@"
	Tag      string
	Value    string
	Children []*Line
}

// Tree holds the level-0 lines of a file in order.
type Tree struct {
	Roots []*Line
}

// ParseError reports a malformed line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gedcom: line %d: %s", e.Line, e.Msg)
}

// Parse reads a whole GEDCOM document. CONT and CONC lines are folded
// into the value of their parent.
func Parse(r io.Reader) (*Tree, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineLen)
	sc.Split(scanLines)

	tree := &Tree{}
	var stack []*Line
	num := 0
	for sc.Scan() {
		num++
		text := sc.Text()
		if num == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		l, err := parseLine(text, num)
		if err != nil {
			return nil, err
		}
		if l.Level > len(stack) {
			return nil, &ParseError{Line: num, Msg: fmt.Sprintf("level %d skips a level", l.Level)}
		}
		stack = stack[:l.Level]

		if l.Level == 0 {
			tree.Roots = append(tree.Roots, l)
			stack = append(stack, l)
			continue
		}

		parent := stack[l.Level-1]
		switch l.Tag {
		case "CONT":
			parent.Value += "\n" + l.Value
			continue
		case "CONC":
			parent.Value += l.Value
			continue
		}
		parent.Children = append(parent.Children, l)
		stack = append(stack, l)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("gedcom: read: %w", err)
	}
	return tree, nil
}

func parseLine(text string, num int) (*Line, error) {
	text = strings.TrimLeft(text, " \t")
	levelStr, rest, _ := strings.Cut(text, " ")
	level, err := strconv.Atoi(levelStr)
	if err != nil || level < 0 {
		return nil, &ParseError{Line: num, Msg: fmt.Sprintf("invalid level %q", levelStr)}
	}

	l := &Line{Number: num, Level: level}
	rest = strings.TrimLeft(rest, " ")
	if strings.HasPrefix(rest, "@") {
		xref, after, _ := strings.Cut(rest, " ")
		if len(xref) < 3 || !strings.HasSuffix(xref, "@") {
			return nil, &ParseError{Line: num, Msg: fmt.Sprintf("malformed xref %q", xref)}
		}
		l.Xref = xref
		rest = strings.TrimLeft(after, " ")
	}

	tag, value, _ := strings.Cut(rest, " ")
	if tag == "" {
		return nil, &ParseError{Line: num, Msg: "missing tag"}
	}
	l.Tag = tag
	l.Value = value
	return l, nil
}

// scanLines splits on LF, CRLF or a lone CR.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if !atEOF {
			// need one more byte to tell CR from CRLF
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
