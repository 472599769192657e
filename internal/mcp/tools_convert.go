package mcpserver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"gedcom2csv/internal/domain"
	"gedcom2csv/internal/etl"
	"gedcom2csv/internal/service"
)

func (s *Server) registerConvertTools() {
	s.mcp.AddTool(mcp.NewTool("convert_gedcom",
		mcp.WithDescription("Convert a GEDCOM file into individuals.csv, families.csv and other.csv. Existing files in outDir are overwritten."),
		mcp.WithString("filePath", mcp.Description("Path to the .ged file (or URL when sourceType is gedcom_http)"), mcp.Required()),
		mcp.WithString("outDir", mcp.Description("Output directory (optional, defaults to the file's directory)")),
		mcp.WithString("dialect", mcp.Description("CSV dialect: legacy (default, commas in cells become semicolons) or rfc4180 (quoted cells)")),
		mcp.WithString("sourceType", mcp.Description("Source type (optional, defaults to gedcom_file; see list_sources)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleConvert)

	s.mcp.AddTool(mcp.NewTool("preview_table",
		mcp.WithDescription("Serialize one table of a GEDCOM file without writing anything"),
		mcp.WithString("filePath", mcp.Description("Path to the .ged file"), mcp.Required()),
		mcp.WithString("category", mcp.Description("individuals, families or other"), mcp.Required()),
		mcp.WithNumber("maxRows", mcp.Description("Maximum data rows (default 10, 0 for all)")),
		mcp.WithString("dialect", mcp.Description("CSV dialect: legacy (default) or rfc4180")),
		mcp.WithString("sourceType", mcp.Description("Source type (optional, defaults to gedcom_file)")),
	), s.handlePreviewTable)

	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List available input source types with their configuration fields"),
	), s.handleListSources)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent conversion runs, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20)")),
	), s.handleListRuns)
}

func boolPtr(v bool) *bool { return &v }

func (s *Server) handleConvert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath := req.GetString("filePath", "")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}
	dialect, err := etl.ParseDialect(req.GetString("dialect", ""))
	if err != nil {
		return nil, err
	}
	outDir := req.GetString("outDir", "")
	if outDir == "" {
		outDir = filepath.Dir(filePath)
	}

	result, err := s.convert.RunConversion(ctx, service.ConvertRequest{
		Input:      filePath,
		SourceType: req.GetString("sourceType", "gedcom_file"),
		Dialect:    dialect,
		Dest:       etl.NewCSVDirWriter(outDir),
		Output:     outDir,
		Trigger:    domain.TriggerMCP,
	})
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	files := make(map[string]string, len(etl.Categories))
	for _, c := range etl.Categories {
		files[string(c)] = filepath.Join(outDir, c.FileName())
	}
	return jsonResult(map[string]any{
		"result": result,
		"files":  files,
	})
}

func (s *Server) handlePreviewTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath := req.GetString("filePath", "")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}
	category, ok := etl.ParseCategory(req.GetString("category", ""))
	if !ok {
		return nil, fmt.Errorf("category must be individuals, families or other")
	}
	maxRows := intArg(req.GetArguments(), "maxRows", 10)

	dialect, err := etl.ParseDialect(req.GetString("dialect", ""))
	if err != nil {
		return nil, err
	}

	table, err := s.convert.Preview(ctx, service.ConvertRequest{
		Input:      filePath,
		SourceType: req.GetString("sourceType", "gedcom_file"),
		Dialect:    dialect,
	}, category, maxRows)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	if table.Document == "" {
		return textResult(fmt.Sprintf("No %s records.", category)), nil
	}
	return textResult(table.Document), nil
}

func (s *Server) handleListSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.convert.ListSources())
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.convert.ListRuns(intArg(req.GetArguments(), "limit", 20))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		return textResult("No runs recorded."), nil
	}
	return jsonResult(runs)
}
