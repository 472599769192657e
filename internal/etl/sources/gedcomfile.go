package sources

import (
	"context"
	"fmt"
	"os"

	"gedcom2csv/internal/etl"
	"gedcom2csv/internal/gedcom"
)

// ── GEDCOM File Source ──────────────────────────────────────
// Reads a local GEDCOM file and compacts it.

type gedcomFileSource struct{}

func init() { etl.RegisterSource(&gedcomFileSource{}) }

func (s *gedcomFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "gedcom_file",
		Label: "GEDCOM File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Required: true, Help: "Path to the .ged file"},
		},
	}
}

func (s *gedcomFileSource) Read(ctx context.Context, cfg etl.SourceConfig) ([]etl.Node, error) {
	filePath := cfg.String("filePath")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes, err := gedcom.ParseAndCompact(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	return nodes, nil
}
