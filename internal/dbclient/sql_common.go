package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gedcom2csv/internal/etl"
)

// sqlExporter is the shared implementation for MySQL, Postgres, and SQLite.
// Every category becomes one table with one TEXT column per field.
type sqlExporter struct {
	driverName string
	db         *sql.DB
	opts       ExportOptions
	log        *zap.Logger
}

// newSQLExporter opens a generic SQL exporter.
func newSQLExporter(driverName, dsn string, opts ExportOptions) (*sqlExporter, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	// One export at a time needs few connections
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlExporter{
		driverName: driverName,
		db:         db,
		opts:       opts,
		log:        zap.L().Named("export").With(zap.String("driver", driverName)),
	}, nil
}

func (c *sqlExporter) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// quoteIdent quotes a table or column name. Field names such as
// "BIRTH/DATE" or "@HUSBAND" are not valid bare identifiers.
func (c *sqlExporter) quoteIdent(name string) string {
	if c.driverName == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (c *sqlExporter) placeholder(i int) string {
	if c.driverName == "postgres" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// Write stores every table inside one transaction. MySQL commits DDL
// implicitly, so there only the row inserts are atomic.
func (c *sqlExporter) Write(ctx context.Context, tables []*etl.Table) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	written := 0
	for _, t := range tables {
		name := c.opts.TableName(t.Category)
		n, err := c.writeTable(ctx, tx, name, t)
		if err != nil {
			return 0, fmt.Errorf("table %s: %w", name, err)
		}
		c.log.Debug("table written", zap.String("table", name), zap.Int("rows", n))
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

func (c *sqlExporter) writeTable(ctx context.Context, tx *sql.Tx, name string, t *etl.Table) (int, error) {
	columns := t.Schema.FieldNames()

	if c.opts.Mode == etl.SyncReplace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+c.quoteIdent(name)); err != nil {
			return 0, fmt.Errorf("drop: %w", err)
		}
	}
	if len(columns) == 0 {
		// a SQL table needs at least one column, so records without fields
		// have nowhere to go
		if len(t.Records) > 0 {
			c.log.Warn("records without fields skipped",
				zap.String("table", name), zap.Int("records", len(t.Records)))
		}
		return 0, nil
	}

	if err := c.ensureTable(ctx, tx, name, columns); err != nil {
		return 0, err
	}

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = c.quoteIdent(col)
		marks[i] = c.placeholder(i + 1)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.quoteIdent(name), strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range t.Records {
		args, err := rowArgs(r, columns)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return len(t.Records), nil
}

// ensureTable creates the table or, in append mode, adds missing columns.
func (c *sqlExporter) ensureTable(ctx context.Context, tx *sql.Tx, name string, columns []string) error {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = c.quoteIdent(col) + " TEXT"
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", c.quoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if c.opts.Mode != etl.SyncAppend {
		return nil
	}

	existing, err := c.existingColumns(ctx, tx, name)
	if err != nil {
		return fmt.Errorf("introspect: %w", err)
	}
	for _, col := range columns {
		if existing[col] {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", c.quoteIdent(name), c.quoteIdent(col))
		if _, err := tx.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("add column %q: %w", col, err)
		}
	}
	return nil
}

func (c *sqlExporter) existingColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch c.driverName {
	case "sqlite":
		rows, err = tx.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	case "postgres":
		rows, err = tx.QueryContext(ctx,
			`SELECT column_name FROM information_schema.columns
			 WHERE table_schema = current_schema() AND table_name = $1`, table)
	default:
		rows, err = tx.QueryContext(ctx,
			`SELECT column_name FROM information_schema.columns
			 WHERE table_schema = DATABASE() AND table_name = ?`, table)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// rowArgs renders a record positionally. Absent fields become NULL;
// present ones use the cell rendering without delimiter substitution.
func rowArgs(r etl.Record, columns []string) ([]any, error) {
	args := make([]any, len(columns))
	for i, col := range columns {
		v, ok := r.Get(col)
		if !ok || v == nil {
			continue
		}
		cell, err := etl.RenderCell(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		args[i] = cell
	}
	return args, nil
}

func (c *sqlExporter) Close() error {
	return c.db.Close()
}
