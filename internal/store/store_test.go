package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/gaitdoc/internal/attach"
)

func openAt(t *testing.T, dir string) (*Store, error) {
	t.Helper()
	files, err := attach.New(filepath.Join(dir, "attachments"))
	if err != nil {
		t.Fatalf("attach.New() failed: %v", err)
	}
	return Open(filepath.Join(dir, "records.db"), files)
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	dir := t.TempDir()

	s, err := openAt(t, dir)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, "records.db")); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 3; i++ {
		s, err := openAt(t, dir)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := openAt(t, dir)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"patients", "examinations", "interventions", "attachments"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	files, err := attach.New(t.TempDir())
	if err != nil {
		t.Fatalf("attach.New() failed: %v", err)
	}

	if _, err := Open("/nonexistent/dir/records.db", files); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_RequiresAttachmentStore(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "records.db"), nil); err == nil {
		t.Error("expected error without attachment store")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name, want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.want); err != nil {
			t.Error(err)
		}
	}
}

func TestPragma_ForeignKeysOnEveryPooledConnection(t *testing.T) {
	s := createTestStore(t)

	// Hold one connection so the next query must open another.
	held, err := s.db.Conn(t.Context())
	if err != nil {
		t.Fatalf("Conn() failed: %v", err)
	}
	defer held.Close()

	var fk string
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != "1" {
		t.Errorf("foreign_keys = %q on second connection, want 1", fk)
	}
}

func TestFoldFunctionAndCollation(t *testing.T) {
	s := createTestStore(t)

	var folded string
	if err := s.db.QueryRow("SELECT fold(?)", "ÄrZTin STRAßE").Scan(&folded); err != nil {
		t.Fatalf("fold(): %v", err)
	}
	if folded != Fold("ÄrZTin STRAßE") {
		t.Errorf("fold() = %q, want %q", folded, Fold("ÄrZTin STRAßE"))
	}

	var cmp int
	if err := s.db.QueryRow("SELECT ? = ? COLLATE "+CollationCI, "smith", "SMITH").Scan(&cmp); err != nil {
		t.Fatalf("collation: %v", err)
	}
	if cmp != 1 {
		t.Error("UNICODE_CI should compare smith and SMITH equal")
	}
}

// Schema table tests

func TestSchema_Tables(t *testing.T) {
	s := createTestStore(t)

	expected := map[string][]string{
		"patients": {
			"id", "code", "first_name", "last_name", "birth_date", "sex", "diagnosis",
			"assistive_device", "address", "zip_code", "city", "country", "phone", "mobile", "email",
		},
		"examinations": {
			"id", "patient_id", "type", "date", "height_m", "weight_kg", "bmi",
			"assistive_device", "examiner", "notes",
		},
		"interventions": {"id", "patient_id", "type", "date", "operator", "notes"},
		"attachments": {
			"id", "examination_id", "intervention_id", "original_name", "stored_name",
			"content_type", "size", "sha256", "description", "created_at",
		},
	}

	for table, cols := range expected {
		columns := getTableColumns(t, s.db, table)
		for _, col := range cols {
			if !contains(columns, col) {
				t.Errorf("%s table missing column %q", table, col)
			}
		}
	}
}

func TestSchema_AttachmentNeedsExactlyOneOwner(t *testing.T) {
	s := createTestStore(t)
	pid := createTestPatient(t, s, "Owner", "1990-01-01")
	eid := createTestExamination(t, s, pid, "2020-01-01")
	iid := createTestIntervention(t, s, pid, "2020-01-02")

	insert := `INSERT INTO attachments
		(examination_id, intervention_id, original_name, stored_name, content_type, size, sha256, created_at)
		VALUES (?, ?, 'a', ?, 'text/plain', 0, '', '2024-01-01T00:00:00Z')`

	if _, err := s.db.Exec(insert, eid, iid, "both"); err == nil {
		t.Error("attachment with two owners was accepted")
	}
	if _, err := s.db.Exec(insert, nil, nil, "none"); err == nil {
		t.Error("attachment without owner was accepted")
	}
	if _, err := s.db.Exec(insert, eid, nil, "exam-only"); err != nil {
		t.Errorf("attachment with one owner rejected: %v", err)
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table_info(%s): %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
