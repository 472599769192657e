package dbclient

import (
	"gedcom2csv/internal/domain"

	_ "modernc.org/sqlite"
)

// newSQLiteExporter creates an exporter writing into a SQLite file.
// Opens in WAL mode with busy timeout for concurrent access.
func newSQLiteExporter(t *domain.ExportTarget, opts ExportOptions) (*sqlExporter, error) {
	dsn := t.Host + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return newSQLExporter("sqlite", dsn, opts)
}
