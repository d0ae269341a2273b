package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/gaitdoc/internal/attach"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added birth_date index on patients
const currentSchemaVersion = 1

// maxOpenConns allows a write while a lazy search still holds a reader.
// WAL mode lets readers proceed alongside the single writer.
const maxOpenConns = 4

// Store provides durable storage for clinical records and coordinates
// attachment files with their rows.
type Store struct {
	db     *sql.DB
	path   string
	files  *attach.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the source of attachment creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates or opens a SQLite database at the given path and binds it to
// the attachment store. Applies schema and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, files *attach.Store, opts ...Option) (*Store, error) {
	if files == nil {
		return nil, errors.New("open store: attachment store is required")
	}

	// BEGIN IMMEDIATE takes the write lock up front so lock waits go through
	// busy_timeout instead of failing on a read-to-write upgrade.
	db, err := sql.Open(driverName, path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := newStore(db, files, opts...)
	s.path = path
	return s, nil
}

func newStore(db *sql.DB, files *attach.Store, opts ...Option) *Store {
	s := &Store{
		db:     db,
		files:  files,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Files returns the attachment store bound to this record store.
func (s *Store) Files() *attach.Store {
	return s.files
}

// Query executes a read query and returns the resulting rows.
// Used by the query engine. Callers are responsible for closing the rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the birth-date index used by range filters to databases
// created before it was part of schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_patients_birth_date ON patients(birth_date)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// withTx runs fn in one transaction, committing on success and rolling back
// on any error.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// withReadTx runs fn on one connection inside a deferred transaction, so
// several reads observe the same snapshot without taking the write lock
// that BEGIN IMMEDIATE would. The transaction is always rolled back.
func (s *Store) withReadTx(ctx context.Context, op string, fn func(q querier) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%s: acquire connection: %w", op, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN DEFERRED"); err != nil {
		return fmt.Errorf("%s: begin read: %w", op, err)
	}
	defer conn.ExecContext(context.Background(), "ROLLBACK")

	return fn(conn)
}

// removeFiles deletes attachment files after their rows are gone. Failures
// are logged and skipped: metadata deletion is the user-visible contract and
// a leftover file is recoverable with Sweep.
func (s *Store) removeFiles(op string, names []string) {
	for _, name := range names {
		if err := s.files.Delete(name); err != nil {
			s.logger.Warn("attachment file not removed", "op", op, "name", name, "error", err)
		}
	}
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
