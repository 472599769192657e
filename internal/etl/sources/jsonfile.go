package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gedcom2csv/internal/etl"
)

// ── JSON File Source ────────────────────────────────────────
// Reads an already compacted record tree from a JSON file.
// Accepted shapes: [{"type": "INDI", "data": {...}}, ...] or the same
// array under a "children" key.

type jsonFileSource struct{}

func init() { etl.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "json_file",
		Label: "Compacted JSON File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Required: true, Help: "Path to the compacted tree JSON"},
		},
	}
}

func (s *jsonFileSource) Read(ctx context.Context, cfg etl.SourceConfig) ([]etl.Node, error) {
	filePath := cfg.String("filePath")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DecodeCompactJSON(data)
}

type rawNode struct {
	Type string         `json:"type"`
	Tag  string         `json:"tag"`
	Data map[string]any `json:"data"`
}

// DecodeCompactJSON decodes a compacted tree. Strings become Text, every
// other value (numbers, bools, null, arrays, objects) becomes Structured.
// A node whose data is null or missing keeps absent data.
func DecodeCompactJSON(data []byte) ([]etl.Node, error) {
	trimmed := bytes.TrimSpace(data)
	var raws []rawNode
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var root struct {
			Children []rawNode `json:"children"`
		}
		if err := decodeJSON(trimmed, &root); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		raws = root.Children
	} else if err := decodeJSON(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	nodes := make([]etl.Node, 0, len(raws))
	for _, r := range raws {
		tag := r.Type
		if tag == "" {
			tag = r.Tag
		}
		n := etl.Node{Tag: tag}
		if r.Data != nil {
			n.Data = make(map[string]etl.Value, len(r.Data))
			for k, v := range r.Data {
				if s, ok := v.(string); ok {
					n.Data[k] = etl.Text(s)
				} else {
					n.Data[k] = etl.Structured{V: v}
				}
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// decodeJSON keeps numbers as json.Number so they render exactly as written.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
