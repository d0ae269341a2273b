package attach

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/gaitdoc/internal/domain"
)

// CopyTo copies every stored file into dest, preserving stored names, and
// returns the number of files copied. Each file is written atomically.
func (s *Store) CopyTo(ctx context.Context, dest string) (int, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, domain.NewIOFailure("create backup attachment directory", dest, err)
	}

	count := 0
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		if _, _, err := writeAtomic(target, src); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return count, ctxErr
		}
		return count, domain.NewIOFailure("copy attachments", dest, err)
	}
	return count, nil
}
