package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/gaitdoc/internal/attach"
	"github.com/roach88/gaitdoc/internal/domain"
	"github.com/roach88/gaitdoc/internal/testutil"
)

var fixedNow = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

// createTestStore creates a new store with its own database and attachment
// directory in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	files, err := attach.New(filepath.Join(dir, "attachments"))
	if err != nil {
		t.Fatalf("attach.New() failed: %v", err)
	}
	s, err := Open(filepath.Join(dir, "records.db"), files, WithClock(testutil.NewClock(fixedNow, 0).Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPatient inserts a patient with the minimal required fields.
func createTestPatient(t *testing.T, s *Store, last, birth string) int64 {
	t.Helper()
	id, err := s.CreatePatient(context.Background(), domain.Patient{
		FirstName: "Test",
		LastName:  last,
		BirthDate: domain.MustParseDate(birth),
	})
	if err != nil {
		t.Fatalf("CreatePatient(%q) failed: %v", last, err)
	}
	return id
}

func createTestExamination(t *testing.T, s *Store, patientID int64, date string) int64 {
	t.Helper()
	id, err := s.AddExamination(context.Background(), patientID, domain.Examination{
		Type: "gait analysis",
		Date: domain.MustParseDate(date),
	})
	if err != nil {
		t.Fatalf("AddExamination() failed: %v", err)
	}
	return id
}

func createTestIntervention(t *testing.T, s *Store, patientID int64, date string) int64 {
	t.Helper()
	id, err := s.AddIntervention(context.Background(), patientID, domain.Intervention{
		Type: "orthosis fitting",
		Date: domain.MustParseDate(date),
	})
	if err != nil {
		t.Fatalf("AddIntervention() failed: %v", err)
	}
	return id
}

// writeSourceFile creates a file outside the attachment root.
func writeSourceFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return p
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func f64(v float64) *float64 { return &v }
