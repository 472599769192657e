package domain

import "fmt"

// DatabaseDriver represents the type of database engine.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// ParseDriver validates a driver name.
func ParseDriver(s string) (DatabaseDriver, error) {
	switch d := DatabaseDriver(s); d {
	case DatabaseDriverMySQL, DatabaseDriverPostgres, DatabaseDriverMongoDB, DatabaseDriverSQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported driver: %q", s)
	}
}

// ExportTarget holds the metadata for connecting to the database the three
// tables are exported to. The password is resolved separately from a
// SecretStore under SecretKey().
type ExportTarget struct {
	Driver   DatabaseDriver `json:"driver"`
	Host     string         `json:"host"`     // hostname, file path (sqlite) or mongodb:// URI
	Port     int            `json:"port"`     // 0 means the driver default
	Database string         `json:"database"` // db name or empty for sqlite
	Username string         `json:"username"`
	SSLMode  string         `json:"sslMode"`
	Prefix   string         `json:"prefix"` // prepended to table and collection names
}

// SecretKey is the key the password is stored under, e.g. "postgres/admin@db.local".
func (t *ExportTarget) SecretKey() string {
	return fmt.Sprintf("%s/%s@%s", t.Driver, t.Username, t.Host)
}

// NeedsPassword reports whether the driver authenticates with a password.
func (t *ExportTarget) NeedsPassword() bool {
	return t.Driver != DatabaseDriverSQLite && t.Username != ""
}
