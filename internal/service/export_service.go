package service

import (
	"context"
	"errors"
	"fmt"

	"gedcom2csv/internal/dbclient"
	"gedcom2csv/internal/domain"
	"gedcom2csv/internal/secret"
)

// ─────────────────────────────────────────────────────────────
// Export Service: opens database destinations
// ─────────────────────────────────────────────────────────────

// ExportService resolves export credentials and opens database exporters.
type ExportService struct {
	secrets *secret.Resolver
	vault   secret.Vault
}

// ErrNoPassword is returned when saving a password for a target that does
// not authenticate with one.
var ErrNoPassword = errors.New("target does not use a password")

// NewExportService creates an ExportService. vault receives saved passwords
// and may be nil.
func NewExportService(secrets *secret.Resolver, vault secret.Vault) *ExportService {
	return &ExportService{secrets: secrets, vault: vault}
}

// SavePassword stores the password of target under target.SecretKey(), where
// Open will find it.
func (s *ExportService) SavePassword(target *domain.ExportTarget, password string) error {
	if !target.NeedsPassword() {
		return fmt.Errorf("%w: %s", ErrNoPassword, Describe(target))
	}
	if s.vault == nil {
		return errors.New("no secret store to save passwords in")
	}
	if password == "" {
		return errors.New("empty password")
	}
	if err := s.vault.Set(target.SecretKey(), []byte(password)); err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	return nil
}

// DeletePassword removes a saved password. Missing entries are not an error.
func (s *ExportService) DeletePassword(target *domain.ExportTarget) error {
	if s.vault == nil {
		return nil
	}
	if err := s.vault.Delete(target.SecretKey()); err != nil {
		return fmt.Errorf("delete password: %w", err)
	}
	return nil
}

// Open connects to target and verifies the connection. The caller closes
// the returned exporter.
func (s *ExportService) Open(ctx context.Context, target *domain.ExportTarget, opts dbclient.ExportOptions) (dbclient.Exporter, error) {
	password, err := s.password(target)
	if err != nil {
		return nil, err
	}

	exp, err := dbclient.NewExporter(target, password, opts)
	if err != nil {
		return nil, err
	}
	if err := exp.TestConnection(ctx); err != nil {
		exp.Close()
		return nil, fmt.Errorf("connect %s: %w", target.Driver, err)
	}
	return exp, nil
}

func (s *ExportService) password(target *domain.ExportTarget) (string, error) {
	if !target.NeedsPassword() || s.secrets == nil {
		return "", nil
	}
	pw, err := s.secrets.Resolve(target.SecretKey())
	if errors.Is(err, secret.ErrNotFound) {
		// servers with trust or socket auth accept an empty password
		return "", nil
	}
	return pw, err
}

// Describe renders a target for run history without credentials.
func Describe(target *domain.ExportTarget) string {
	if target.Driver == domain.DatabaseDriverSQLite {
		return fmt.Sprintf("sqlite:%s", target.Host)
	}
	return fmt.Sprintf("%s://%s/%s", target.Driver, target.Host, target.Database)
}
