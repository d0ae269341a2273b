package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/gaitdoc/internal/domain"
)

// BackupResult locates the two halves of a backup.
type BackupResult struct {
	Database    string `json:"database"`
	Attachments string `json:"attachments"`
	Files       int    `json:"files"`
}

// Backup writes a dated copy of the database and the attachment directory
// into destDir:
//
//	<name>_backup_<YYYYMMDD>.db
//	<name>_backup_<YYYYMMDD>_attachments/
//
// The database copy is a consistent snapshot taken with VACUUM INTO. A
// backup made earlier the same day is replaced.
func (s *Store) Backup(ctx context.Context, destDir string) (BackupResult, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return BackupResult{}, domain.NewIOFailure("create backup directory", destDir, err)
	}

	base := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	if base == "" || base == "." {
		base = "records"
	}
	stem := filepath.Join(destDir, fmt.Sprintf("%s_backup_%s", base, s.now().Format("20060102")))
	result := BackupResult{Database: stem + ".db", Attachments: stem + "_attachments"}

	// Both halves are written under temporary names and only replace an
	// earlier backup once complete.
	partialDB, partialDir := stem+".partial.db", stem+"_attachments.partial"
	cleanup := func() {
		os.RemoveAll(partialDB)
		os.RemoveAll(partialDir)
	}
	cleanup()

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, partialDB); err != nil {
		cleanup()
		return BackupResult{}, fmt.Errorf("backup database: %w", err)
	}
	n, err := s.files.CopyTo(ctx, partialDir)
	if err != nil {
		cleanup()
		return BackupResult{}, err
	}
	result.Files = n

	if err := replaceWith(result.Database, partialDB); err != nil {
		cleanup()
		return BackupResult{}, err
	}
	if err := replaceWith(result.Attachments, partialDir); err != nil {
		cleanup()
		return BackupResult{}, err
	}

	s.logger.Info("backup written", "database", result.Database, "attachments", result.Attachments, "files", n)
	return result, nil
}

// replaceWith moves src to dst, replacing whatever dst held. A directory at
// dst is moved aside first since rename cannot replace a non-empty one.
func replaceWith(dst, src string) error {
	old := dst + ".old"
	if err := os.RemoveAll(old); err != nil {
		return domain.NewIOFailure("replace previous backup", old, err)
	}
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		if err := os.Rename(dst, old); err != nil {
			return domain.NewIOFailure("replace previous backup", dst, err)
		}
	}
	if err := os.Rename(src, dst); err != nil {
		return domain.NewIOFailure("move backup into place", dst, err)
	}
	if err := os.RemoveAll(old); err != nil {
		return domain.NewIOFailure("remove previous backup", old, err)
	}
	return nil
}

// OrphanFiles lists stored files that no attachment row references. They
// arise when a process stops between an unlink's commit and its file delete,
// or when a cascade could not remove a file.
func (s *Store) OrphanFiles(ctx context.Context) ([]string, error) {
	referenced := make(map[string]bool)
	names, err := collectStoredNames(ctx, s.db, `SELECT stored_name FROM attachments`)
	if err != nil {
		return nil, fmt.Errorf("orphan files: %w", err)
	}
	for _, n := range names {
		referenced[n] = true
	}

	files, err := s.files.List()
	if err != nil {
		return nil, err
	}

	orphans := []string{}
	for _, f := range files {
		if !referenced[f] {
			orphans = append(orphans, f)
		}
	}
	return orphans, nil
}

// Sweep deletes orphan files and returns the names removed.
func (s *Store) Sweep(ctx context.Context) ([]string, error) {
	orphans, err := s.OrphanFiles(ctx)
	if err != nil {
		return nil, err
	}
	removed := []string{}
	var errs []error
	for _, name := range orphans {
		if err := s.files.Delete(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, name)
	}
	return removed, errors.Join(errs...)
}
