package secret_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gedcom2csv/internal/secret"
)

type mapStore map[string]string

func (m mapStore) Get(key string) ([]byte, error) { return []byte(m[key]), nil }

type brokenStore struct{}

func (brokenStore) Get(string) ([]byte, error) { return nil, errors.New("locked") }

func TestEnvStore_VarName(t *testing.T) {
	s := secret.NewEnvStore()
	assert.Equal(t, "GEDCOM2CSV_SECRET_POSTGRES_ADMIN_DB_LOCAL", s.VarName("postgres/admin@db.local"))
}

func TestEnvStore_Get(t *testing.T) {
	s := secret.NewEnvStore()
	t.Setenv(s.VarName("mysql/root@localhost"), "hunter2")

	v, err := s.Get("mysql/root@localhost")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(v))

	v, err = s.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestResolver_FirstHitWins(t *testing.T) {
	r := &secret.Resolver{Stores: []secret.SecretStore{
		mapStore{},
		mapStore{"k": "second"},
		mapStore{"k": "third"},
	}}

	v, err := r.Resolve("k")
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestResolver_NotFound(t *testing.T) {
	r := &secret.Resolver{Stores: []secret.SecretStore{mapStore{}}}
	_, err := r.Resolve("k")
	assert.ErrorIs(t, err, secret.ErrNotFound)
}

func TestResolver_StoreError(t *testing.T) {
	r := &secret.Resolver{Stores: []secret.SecretStore{brokenStore{}, mapStore{"k": "v"}}}
	_, err := r.Resolve("k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestKeychainStore_OtherPlatforms(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("uses the real keychain on macOS")
	}
	var k secret.Vault = secret.NewKeychainStore()

	err := k.Set("sqlite/x@y", []byte("pw"))
	assert.ErrorContains(t, err, "unsupported")

	v, err := k.Get("sqlite/x@y")
	require.NoError(t, err)
	assert.Empty(t, v)
	assert.NoError(t, k.Delete("sqlite/x@y"))
}
