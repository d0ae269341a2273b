package attach

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/gaitdoc/internal/domain"
)

const tempPrefix = ".incoming-"

// IDGenerator produces the unique suffix of stored names.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 suffixes.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// StoredRef describes a file that was copied into the store.
type StoredRef struct {
	Name        string // relative to the store root, slash-separated
	ContentType string
	Size        int64
	SHA256      string
}

// Store manages the attachment directory.
type Store struct {
	root   string
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the stored-name suffix generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New opens the store rooted at root, creating the directory if needed.
func New(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve attachment root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, domain.NewIOFailure("create attachment root", abs, err)
	}
	s := &Store{root: abs, ids: UUIDv7Generator{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute store root.
func (s *Store) Root() string {
	return s.root
}

// Put copies sourcePath into the store under a fresh name for the owner.
//
// Fails with an INVALID_INPUT error if sourcePath does not exist or is not a
// regular file, and with IO_FAILURE if it cannot be read or the destination
// cannot be written.
func (s *Store) Put(ctx context.Context, sourcePath string, kind domain.OwnerKind, ownerID int64) (StoredRef, error) {
	if !kind.Valid() {
		return StoredRef{}, domain.NewInvalidInput(fmt.Sprintf("unknown owner kind %q", kind), sourcePath)
	}
	if err := ctx.Err(); err != nil {
		return StoredRef{}, err
	}

	info, err := os.Stat(sourcePath)
	if errors.Is(err, fs.ErrNotExist) {
		return StoredRef{}, domain.NewInvalidInput("source file does not exist", sourcePath)
	}
	if err != nil {
		return StoredRef{}, domain.NewIOFailure("stat source file", sourcePath, err)
	}
	if !info.Mode().IsRegular() {
		return StoredRef{}, domain.NewInvalidInput("source is not a regular file", sourcePath)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return StoredRef{}, domain.NewIOFailure("open source file", sourcePath, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(sourcePath))
	owner := strconv.FormatInt(ownerID, 10)
	name := path.Join(string(kind), owner, fmt.Sprintf("%s-%s-%s%s", kind, owner, s.ids.Generate(), ext))
	dest := filepath.Join(s.root, filepath.FromSlash(name))

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return StoredRef{}, domain.NewIOFailure("create attachment directory", filepath.Dir(dest), err)
	}

	size, sum, err := writeAtomic(dest, src)
	if err != nil {
		return StoredRef{}, domain.NewIOFailure("copy attachment", dest, err)
	}

	s.logger.Debug("attachment stored", "source", sourcePath, "name", name, "size", size)
	return StoredRef{
		Name:        name,
		ContentType: ContentType(sourcePath),
		Size:        size,
		SHA256:      sum,
	}, nil
}

// writeAtomic copies r to a temporary sibling of dest, syncs it and renames
// it into place. The temporary file is removed on any failure.
func writeAtomic(dest string, r io.Reader) (int64, string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), tempPrefix+"*")
	if err != nil {
		return 0, "", err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		return 0, "", fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, "", fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, "", fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return 0, "", fmt.Errorf("rename: %w", err)
	}
	committed = true
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// Path resolves a stored name to an absolute path inside the root.
// Names that are absolute or escape the root are rejected.
func (s *Store) Path(name string) (string, error) {
	local := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(local) {
		return "", domain.NewInvalidInput("stored name escapes attachment root", name)
	}
	return filepath.Join(s.root, local), nil
}

// Exists reports whether the file for name is present.
func (s *Store) Exists(name string) (bool, error) {
	p, err := s.Path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, domain.NewIOFailure("stat attachment", p, err)
	}
}

// Open returns a read handle on the stored file. A missing file yields a
// NOT_FOUND error carrying the path.
func (s *Store) Open(name string) (*os.File, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.Error{Code: domain.CodeNotFound, Message: "attachment file not found", Path: p}
	}
	if err != nil {
		return nil, domain.NewIOFailure("open attachment", p, err)
	}
	return f, nil
}

// Delete removes the stored file. Deleting an absent file is not an error,
// so cascades can be retried after a partial failure. Empty owner
// directories are pruned.
func (s *Store) Delete(name string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.NewIOFailure("delete attachment", p, err)
	}
	s.pruneEmpty(filepath.Dir(p))
	return nil
}

// pruneEmpty removes dir and its parents while they are empty, stopping at
// the root.
func (s *Store) pruneEmpty(dir string) {
	for dir != s.root && strings.HasPrefix(dir, s.root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Verify recomputes the checksum of the stored file and compares it to
// want. A missing file is reported as NOT_FOUND.
func (s *Store) Verify(name, want string) (bool, error) {
	f, err := s.Open(name)
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, domain.NewIOFailure("read attachment", f.Name(), err)
	}
	return hex.EncodeToString(h.Sum(nil)) == want, nil
}

// List returns the stored names of every file under the root, in lexical
// order. In-flight temporary files are skipped.
func (s *Store) List() ([]string, error) {
	names := []string{}
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, domain.NewIOFailure("walk attachment root", s.root, err)
	}
	return names, nil
}
