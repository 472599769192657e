package etl_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gedcom2csv/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// Engine tests
// ─────────────────────────────────────────────────────────────

// staticSource returns the nodes stored under cfg["set"].
type staticSource struct{}

var staticSets = map[string][]etl.Node{
	"family": {
		{Tag: "HEAD", Data: map[string]etl.Value{"formal_name": etl.Text("HEADER")}},
		{Tag: "INDI", Data: map[string]etl.Value{"NAME": etl.Text("Jane, Doe"), "SEX": etl.Text("F")}},
		{Tag: "INDI", Data: map[string]etl.Value{"NAME": etl.Text("John")}},
		{Tag: "FAM", Data: map[string]etl.Value{"MARRIAGE/DATE": etl.Text("1 JAN 1900")}},
		{Tag: "TRLR"},
	},
	"broken": {
		{Tag: "INDI", Data: map[string]etl.Value{"X": etl.Structured{V: func() {}}}},
	},
}

func (staticSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{Type: "test_static", Label: "Static test nodes"}
}

func (staticSource) Read(_ context.Context, cfg etl.SourceConfig) ([]etl.Node, error) {
	nodes, ok := staticSets[cfg.String("set")]
	if !ok {
		return nil, errors.New("no such set")
	}
	return nodes, nil
}

func init() {
	etl.RegisterSource(staticSource{})
}

// memoryDest captures the tables it is given.
type memoryDest struct {
	mu     sync.Mutex
	tables []*etl.Table
	err    error
}

func (m *memoryDest) Write(_ context.Context, tables []*etl.Table) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = tables
	n := 0
	for _, t := range tables {
		n += t.Rows
	}
	return n, nil
}

func TestConvert_TablesInCategoryOrder(t *testing.T) {
	tables, err := etl.Convert(context.Background(), staticSets["family"], etl.DialectLegacy)
	require.NoError(t, err)
	require.Len(t, tables, 3)

	assert.Equal(t, etl.CategoryIndividuals, tables[0].Category)
	assert.Equal(t, "NAME,SEX\nJane; Doe,F\nJohn,", tables[0].Document)
	assert.Equal(t, etl.CategoryFamilies, tables[1].Category)
	assert.Equal(t, "MARRIAGE/DATE\n1 JAN 1900", tables[1].Document)
	assert.Equal(t, etl.CategoryOther, tables[2].Category)
	assert.Equal(t, "formal_name\nHEADER", tables[2].Document, "TRLR without data is dropped")
}

func TestEngineRun_Success(t *testing.T) {
	dest := &memoryDest{}
	engine := &etl.Engine{Dest: dest}

	result, err := engine.Run(context.Background(), &etl.Job{
		ID:         "job-1",
		SourceType: "test_static",
		SourceCfg:  etl.SourceConfig{"set": "family"},
	})
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 5, result.NodesRead)
	assert.Equal(t, 4, result.RowsWritten)
	assert.Equal(t, 2, result.Rows(etl.CategoryIndividuals))
	assert.Equal(t, []string{"NAME", "SEX"}, result.Tables[0].Columns)
	assert.Len(t, dest.tables, 3)
}

func TestEngineRun_SerializeFailureWritesNothing(t *testing.T) {
	dest := &memoryDest{}
	engine := &etl.Engine{Dest: dest}

	result, err := engine.Run(context.Background(), &etl.Job{
		SourceType: "test_static",
		SourceCfg:  etl.SourceConfig{"set": "broken"},
	})
	require.Error(t, err)
	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Error, "serialize")
	assert.Nil(t, dest.tables)
}

func TestEngineRun_UnknownSource(t *testing.T) {
	engine := &etl.Engine{Dest: &memoryDest{}}
	_, err := engine.Run(context.Background(), &etl.Job{SourceType: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source type")
}

func TestEngineRun_DestinationError(t *testing.T) {
	engine := &etl.Engine{Dest: &memoryDest{err: errors.New("boom")}}
	result, err := engine.Run(context.Background(), &etl.Job{
		SourceType: "test_static",
		SourceCfg:  etl.SourceConfig{"set": "family"},
	})
	require.Error(t, err)
	assert.Contains(t, result.Error, "write: boom")
}

func TestEnginePreview_LimitsRows(t *testing.T) {
	engine := &etl.Engine{}
	tbl, err := engine.Preview(context.Background(), &etl.Job{
		SourceType: "test_static",
		SourceCfg:  etl.SourceConfig{"set": "family"},
	}, etl.CategoryIndividuals, 1)
	require.NoError(t, err)
	assert.Equal(t, "NAME,SEX\nJane; Doe,F", tbl.Document)
	assert.Equal(t, 1, tbl.Rows)
}

func TestEnginePreview_UsesDialect(t *testing.T) {
	engine := &etl.Engine{}
	tbl, err := engine.Preview(context.Background(), &etl.Job{
		SourceType: "test_static",
		SourceCfg:  etl.SourceConfig{"set": "family"},
		Dialect:    etl.DialectRFC4180,
	}, etl.CategoryIndividuals, 1)
	require.NoError(t, err)
	assert.Equal(t, "NAME,SEX\n\"Jane, Doe\",F\n", tbl.Document)

	_, err = engine.Preview(context.Background(), &etl.Job{
		SourceType: "test_static",
		SourceCfg:  etl.SourceConfig{"set": "family"},
		Dialect:    "tsv",
	}, etl.CategoryIndividuals, 1)
	assert.ErrorIs(t, err, etl.ErrUnknownDialect)
}
