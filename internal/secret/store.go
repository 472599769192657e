package secret

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// SecretStore provides a pluggable interface for looking up sensitive data
// such as export database passwords.
type SecretStore interface {
	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)
}

// Vault is a SecretStore that can also persist secrets.
type Vault interface {
	SecretStore

	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// ── Env Store ──────────────────────────────────────────────

// EnvStore reads secrets from environment variables. A key such as
// "postgres/admin@db.local" maps to GEDCOM2CSV_SECRET_POSTGRES_ADMIN_DB_LOCAL.
// It is read-only.
type EnvStore struct {
	Prefix string
}

// NewEnvStore creates an EnvStore with the default prefix.
func NewEnvStore() *EnvStore {
	return &EnvStore{Prefix: "GEDCOM2CSV_SECRET_"}
}

// VarName returns the environment variable a key is read from.
func (e *EnvStore) VarName(key string) string {
	var b strings.Builder
	b.WriteString(e.Prefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	v, ok := os.LookupEnv(e.VarName(key))
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

// ── Resolver ───────────────────────────────────────────────

// ErrNotFound is returned by Resolver.Resolve when no store has the key.
var ErrNotFound = errors.New("secret not found")

// Resolver looks a key up in each store in order and returns the first hit.
type Resolver struct {
	Stores []SecretStore
}

// DefaultResolver checks the environment first, then the macOS Keychain.
func DefaultResolver() *Resolver {
	return &Resolver{Stores: []SecretStore{NewEnvStore(), NewKeychainStore()}}
}

// Resolve returns the secret for key from the first store that has it.
func (r *Resolver) Resolve(key string) (string, error) {
	for _, s := range r.Stores {
		v, err := s.Get(key)
		if err != nil {
			return "", fmt.Errorf("get secret %q: %w", key, err)
		}
		if len(v) > 0 {
			return string(v), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}
