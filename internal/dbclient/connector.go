package dbclient

import (
	"context"
	"fmt"

	"gedcom2csv/internal/domain"
	"gedcom2csv/internal/etl"
)

// Exporter writes the three tables of a conversion into an external
// database. It is an etl.Destination.
type Exporter interface {
	etl.Destination

	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Close closes the connection.
	Close() error
}

// ExportOptions controls how tables are named and written.
type ExportOptions struct {
	Mode   etl.SyncMode
	Prefix string // prepended to every table or collection name
}

// TableName is the table or collection a category is written to.
func (o ExportOptions) TableName(c etl.Category) string {
	return o.Prefix + string(c)
}

// NewExporter creates an Exporter for the given target.
// The password must be provided separately (from a SecretStore).
func NewExporter(target *domain.ExportTarget, password string, opts ExportOptions) (Exporter, error) {
	if opts.Mode == "" {
		opts.Mode = etl.SyncReplace
	}
	switch target.Driver {
	case domain.DatabaseDriverSQLite:
		return newSQLiteExporter(target, opts)
	case domain.DatabaseDriverMySQL:
		return newSQLExporter("mysql", buildMySQLDSN(target, password), opts)
	case domain.DatabaseDriverPostgres:
		return newSQLExporter("postgres", buildPostgresDSN(target, password), opts)
	case domain.DatabaseDriverMongoDB:
		return newMongoExporter(target, password, opts)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", target.Driver)
	}
}
