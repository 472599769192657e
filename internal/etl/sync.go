package etl

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ── Job ────────────────────────────────────────────────────
// Orchestrates: source.Read → classify → serialize → destination.Write.

// Job holds the configuration of a single conversion.
type Job struct {
	ID         string       `json:"id"`
	SourceType string       `json:"sourceType"`
	SourceCfg  SourceConfig `json:"sourceConfig"`
	Dialect    Dialect      `json:"dialect"`
}

// TableSummary describes one written table.
type TableSummary struct {
	Category Category `json:"category"`
	Rows     int      `json:"rows"`
	Columns  []string `json:"columns"`
}

// Result is the outcome of running a job. Tables[].Rows counts serialized
// rows; RowsWritten is what the destination stored. The two differ only for
// SQL exports of records without any field, which no SQL table can hold.
type Result struct {
	JobID       string         `json:"jobId"`
	Status      string         `json:"status"` // "success" | "error"
	NodesRead   int            `json:"nodesRead"`
	RowsWritten int            `json:"rowsWritten"`
	Tables      []TableSummary `json:"tables"`
	Duration    time.Duration  `json:"duration"`
	Error       string         `json:"error,omitempty"`
}

// Rows returns the row count of a category, or 0.
func (r *Result) Rows(c Category) int {
	for _, t := range r.Tables {
		if t.Category == c {
			return t.Rows
		}
	}
	return 0
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs conversion jobs using the registered sources and a destination.
type Engine struct {
	Dest Destination
}

// Run executes a job end-to-end. Nothing is written unless every table
// serialized successfully.
func (e *Engine) Run(ctx context.Context, job *Job) (*Result, error) {
	start := time.Now()
	result := &Result{JobID: job.ID}
	fail := func(stage string, err error) (*Result, error) {
		result.Status = "error"
		result.Error = fmt.Sprintf("%s: %s", stage, err)
		result.Duration = time.Since(start)
		return result, fmt.Errorf("%s: %w", stage, err)
	}

	source, err := GetSource(job.SourceType)
	if err != nil {
		return fail("source", err)
	}

	nodes, err := source.Read(ctx, job.SourceCfg)
	if err != nil {
		return fail("read", err)
	}
	result.NodesRead = len(nodes)

	tables, err := Convert(ctx, nodes, job.Dialect)
	if err != nil {
		return fail("serialize", err)
	}

	written, err := e.Dest.Write(ctx, tables)
	if err != nil {
		return fail("write", err)
	}

	for _, t := range tables {
		result.Tables = append(result.Tables, TableSummary{
			Category: t.Category,
			Rows:     t.Rows,
			Columns:  t.Schema.FieldNames(),
		})
	}
	result.Status = "success"
	result.RowsWritten = written
	result.Duration = time.Since(start)
	return result, nil
}

// Convert classifies nodes and serializes the three groups concurrently.
// Tables come back in Categories order; the first error cancels the rest.
func Convert(ctx context.Context, nodes []Node, dialect Dialect) ([]*Table, error) {
	groups := Classify(nodes)
	tables := make([]*Table, len(Categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range Categories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := Serializer{Dialect: dialect}.Serialize(groups.Get(c))
			if err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			t.Category = c
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// Preview reads the job's source and serializes one category in the job's
// dialect without writing anything. maxRows <= 0 returns every row.
func (e *Engine) Preview(ctx context.Context, job *Job, category Category, maxRows int) (*Table, error) {
	source, err := GetSource(job.SourceType)
	if err != nil {
		return nil, err
	}

	nodes, err := source.Read(ctx, job.SourceCfg)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	t, err := Serializer{Dialect: job.Dialect, Limit: maxRows}.Serialize(Classify(nodes).Get(category))
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", category, err)
	}
	t.Category = category
	return t, nil
}
