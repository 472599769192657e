package dbclient

import (
	"fmt"
	"strings"

	"gedcom2csv/internal/domain"

	_ "github.com/lib/pq"
)

// buildPostgresDSN constructs a Postgres connection string from an ExportTarget.
func buildPostgresDSN(t *domain.ExportTarget, password string) string {
	port := t.Port
	if port == 0 {
		port = 5432
	}
	sslMode := t.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pqQuote(t.Host), port, pqQuote(t.Username), pqQuote(password), pqQuote(t.Database), sslMode,
	)
}

// pqQuote quotes a keyword/value connection parameter when it is empty or
// contains spaces, quotes or backslashes.
func pqQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
