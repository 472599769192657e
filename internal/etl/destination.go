package etl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ── Destination ────────────────────────────────────────────
// A Destination persists the serialized tables of one run.

// SyncMode determines how tables are written to a database destination.
type SyncMode string

const (
	SyncReplace SyncMode = "replace" // drop existing rows and columns, write fresh
	SyncAppend  SyncMode = "append"  // add rows, add missing columns
)

// ParseSyncMode validates a sync mode. Empty means replace.
func ParseSyncMode(s string) (SyncMode, error) {
	switch SyncMode(s) {
	case "", SyncReplace:
		return SyncReplace, nil
	case SyncAppend:
		return SyncAppend, nil
	default:
		return "", fmt.Errorf("unknown sync mode: %q", s)
	}
}

// Destination writes the tables of one conversion and reports the number
// of data rows actually stored, which may be lower than the serialized rows
// when a destination cannot represent a record.
type Destination interface {
	Write(ctx context.Context, tables []*Table) (int, error)
}

// ── CSV Directory Destination ──────────────────────────────
// Writes one <category>.csv file per table into a directory.

// CSVDirWriter implements Destination on an afero filesystem.
type CSVDirWriter struct {
	Fs  afero.Fs
	Dir string
}

// NewCSVDirWriter writes into dir on the OS filesystem.
func NewCSVDirWriter(dir string) *CSVDirWriter {
	return &CSVDirWriter{Fs: afero.NewOsFs(), Dir: dir}
}

type stagedFile struct {
	tmp    string
	final  string
	backup string // previous target, moved aside during commit
}

// Write stages every table in a temp file next to its target and moves
// them into place only after all of them were written. Existing targets are
// kept as backups until every rename succeeded; on failure they are
// restored, so the directory holds either all new outputs or all old ones.
func (w *CSVDirWriter) Write(ctx context.Context, tables []*Table) (int, error) {
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	if err := w.Fs.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	for _, t := range tables {
		if err := w.checkTarget(filepath.Join(dir, t.Category.FileName())); err != nil {
			return 0, err
		}
	}

	var staged []stagedFile
	abort := func(cause error) (int, error) {
		return 0, errors.Join(cause, w.removeStaged(staged))
	}

	rows := 0
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		name := t.Category.FileName()
		tmp, err := w.stage(dir, name, t.Document)
		if tmp != "" {
			staged = append(staged, stagedFile{tmp: tmp, final: filepath.Join(dir, name)})
		}
		if err != nil {
			return abort(fmt.Errorf("write %s: %w", name, err))
		}
		rows += t.Rows
	}

	if err := w.commit(staged); err != nil {
		return abort(err)
	}
	return rows, nil
}

// checkTarget refuses output paths held by anything but a regular file.
func (w *CSVDirWriter) checkTarget(path string) error {
	fi, err := w.Fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s exists and is not a regular file", path)
	}
	return nil
}

// commit renames the staged files over their targets. Each existing target
// is first moved to a hidden backup. If any rename fails, the targets
// replaced so far are rolled back before the error is returned.
func (w *CSVDirWriter) commit(staged []stagedFile) error {
	var done []*stagedFile
	for i := range staged {
		s := &staged[i]
		if err := w.moveAside(s); err != nil {
			return errors.Join(err, w.rollback(done))
		}
		if err := w.Fs.Rename(s.tmp, s.final); err != nil {
			return errors.Join(fmt.Errorf("rename %s: %w", s.final, err), w.rollback(append(done, s)))
		}
		s.tmp = ""
		done = append(done, s)
	}

	for _, s := range done {
		if s.backup != "" {
			_ = w.Fs.Remove(s.backup)
		}
	}
	return nil
}

func (w *CSVDirWriter) moveAside(s *stagedFile) error {
	if _, err := w.Fs.Stat(s.final); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", s.final, err)
	}
	backup := filepath.Join(filepath.Dir(s.final), "."+filepath.Base(s.final)+".bak")
	if err := w.Fs.Remove(backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale backup %s: %w", backup, err)
	}
	if err := w.Fs.Rename(s.final, backup); err != nil {
		return fmt.Errorf("back up %s: %w", s.final, err)
	}
	s.backup = backup
	return nil
}

// rollback restores the previous target of every entry, newest first.
// Targets that did not exist before are removed.
func (w *CSVDirWriter) rollback(done []*stagedFile) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		if s.backup == "" {
			if err := w.Fs.Remove(s.final); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("remove %s: %w", s.final, err))
			}
			continue
		}
		if err := w.Fs.Rename(s.backup, s.final); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", s.final, err))
			continue
		}
		s.backup = ""
	}
	return errors.Join(errs...)
}

func (w *CSVDirWriter) stage(dir, name, doc string) (string, error) {
	f, err := afero.TempFile(w.Fs, dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := f.WriteString(doc); err != nil {
		f.Close()
		return tmp, err
	}
	if err := f.Close(); err != nil {
		return tmp, err
	}
	return tmp, w.Fs.Chmod(tmp, 0o644)
}

func (w *CSVDirWriter) removeStaged(staged []stagedFile) error {
	var errs []error
	for _, s := range staged {
		if s.tmp == "" {
			continue
		}
		if err := w.Fs.Remove(s.tmp); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
