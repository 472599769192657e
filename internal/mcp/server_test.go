package mcpserver

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gedcom2csv/internal/domain"
	_ "gedcom2csv/internal/etl/sources"
	"gedcom2csv/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Tool handler tests
// ─────────────────────────────────────────────────────────────

type memRuns struct {
	runs []domain.ConversionRun
}

func (m *memRuns) CreateRun(r *domain.ConversionRun) error {
	m.runs = append([]domain.ConversionRun{*r}, m.runs...)
	return nil
}

func (m *memRuns) ListRuns(limit int) ([]domain.ConversionRun, error) {
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func newTestServer(t *testing.T) (*Server, *memRuns) {
	t.Helper()
	runs := &memRuns{}
	return New(Deps{Convert: service.NewConvertService(runs, nil, time.Minute)}), runs
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func writeGedcom(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.ged")
	require.NoError(t, os.WriteFile(path, []byte("0 @I1@ INDI\n1 NAME Jane, Doe\n0 @I2@ INDI\n1 NAME Bob\n0 TRLR\n"), 0o644))
	return path
}

func TestHandleConvert(t *testing.T) {
	s, runs := newTestServer(t)
	input := writeGedcom(t)
	outDir := filepath.Join(t.TempDir(), "out")

	res, err := s.handleConvert(context.Background(), callRequest("convert_gedcom", map[string]any{
		"filePath": input,
		"outDir":   outDir,
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "individuals.csv")

	data, err := os.ReadFile(filepath.Join(outDir, "individuals.csv"))
	require.NoError(t, err)
	assert.Equal(t, "NAME,formal_name,xref_id\nJane; Doe,INDIVIDUAL,@I1@\nBob,INDIVIDUAL,@I2@", string(data))

	require.Len(t, runs.runs, 1)
	assert.Equal(t, domain.TriggerMCP, runs.runs[0].Trigger)
}

func TestHandleConvert_Validation(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleConvert(context.Background(), callRequest("convert_gedcom", map[string]any{}))
	assert.ErrorContains(t, err, "filePath is required")

	_, err = s.handleConvert(context.Background(), callRequest("convert_gedcom", map[string]any{
		"filePath": "x.ged",
		"dialect":  "tsv",
	}))
	assert.ErrorContains(t, err, "unknown csv dialect")
}

func TestHandlePreviewTable(t *testing.T) {
	s, _ := newTestServer(t)
	input := writeGedcom(t)

	res, err := s.handlePreviewTable(context.Background(), callRequest("preview_table", map[string]any{
		"filePath": input,
		"category": "individuals",
		"maxRows":  float64(1),
	}))
	require.NoError(t, err)
	assert.Equal(t, "NAME,formal_name,xref_id\nJane; Doe,INDIVIDUAL,@I1@", resultText(t, res))

	res, err = s.handlePreviewTable(context.Background(), callRequest("preview_table", map[string]any{
		"filePath": input,
		"category": "individuals",
		"dialect":  "rfc4180",
	}))
	require.NoError(t, err)
	assert.Equal(t, "NAME,formal_name,xref_id\n\"Jane, Doe\",INDIVIDUAL,@I1@\nBob,INDIVIDUAL,@I2@\n", resultText(t, res))

	res, err = s.handlePreviewTable(context.Background(), callRequest("preview_table", map[string]any{
		"filePath": input,
		"category": "families",
	}))
	require.NoError(t, err)
	assert.Equal(t, "No families records.", resultText(t, res))

	_, err = s.handlePreviewTable(context.Background(), callRequest("preview_table", map[string]any{
		"filePath": input,
		"category": "sources",
	}))
	assert.Error(t, err)
}

func TestHandleListSources(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleListSources(context.Background(), callRequest("list_sources", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"gedcom_file"`)
}

func TestHandleListRuns(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleListRuns(context.Background(), callRequest("list_runs", nil))
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.", resultText(t, res))

	_, err = s.handleConvert(context.Background(), callRequest("convert_gedcom", map[string]any{
		"filePath": writeGedcom(t),
		"outDir":   t.TempDir(),
	}))
	require.NoError(t, err)

	res, err = s.handleListRuns(context.Background(), callRequest("list_runs", map[string]any{"limit": float64(5)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"status": "success"`)
}

func TestIntArg(t *testing.T) {
	args := map[string]any{"f": float64(3), "i": 4, "s": "x"}
	assert.Equal(t, 3, intArg(args, "f", 0))
	assert.Equal(t, 4, intArg(args, "i", 0))
	assert.Equal(t, 7, intArg(args, "s", 7))
	assert.Equal(t, 9, intArg(args, "missing", 9))
}

func TestServe_AnswersAndStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, inR, outW)
	}()

	go func() {
		_, _ = io.WriteString(inW, `{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n")
	}()
	line, err := bufio.NewReader(outR).ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"id":1`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
