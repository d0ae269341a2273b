package store

import (
	"database/sql"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// driverName is the database/sql driver registered with the gaitdoc hooks.
const driverName = "sqlite3_gaitdoc"

// CollationCI is the case-insensitive Unicode collation available on every
// connection.
const CollationCI = "UNICODE_CI"

var connPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{ConnectHook: connectHook})
}

// connectHook configures one new connection. Collators and casers are not
// safe for concurrent use, so each connection gets its own; database/sql
// never uses a connection from two goroutines at once.
func connectHook(conn *sqlite3.SQLiteConn) error {
	for _, pragma := range connPragmas {
		if _, err := conn.Exec(pragma, nil); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	caser := cases.Fold()
	if err := conn.RegisterFunc("fold", func(s string) string {
		return caser.String(s)
	}, true); err != nil {
		return fmt.Errorf("register fold: %w", err)
	}

	col := collate.New(language.Und, collate.IgnoreCase)
	if err := conn.RegisterCollation(CollationCI, func(a, b string) int {
		return col.CompareString(a, b)
	}); err != nil {
		return fmt.Errorf("register collation: %w", err)
	}
	return nil
}

// Fold returns the case-folded form of s used by the fold() SQL function.
// Callers fold query text with it before binding.
func Fold(s string) string {
	return cases.Fold().String(s)
}
