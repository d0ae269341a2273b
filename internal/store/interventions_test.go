package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/gaitdoc/internal/domain"
)

func TestIntervention_Lifecycle(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pid := createTestPatient(t, s, "Treat", "1990-01-01")

	id, err := s.AddIntervention(ctx, pid, domain.Intervention{
		Type:     "Botulinum toxin",
		Date:     domain.MustParseDate("2020-02-02"),
		Operator: "Dr. Who",
		Notes:    "left calf",
	})
	if err != nil {
		t.Fatalf("AddIntervention() failed: %v", err)
	}

	iv, err := s.GetIntervention(ctx, id)
	if err != nil {
		t.Fatalf("GetIntervention() failed: %v", err)
	}
	if iv.PatientID != pid || iv.Operator != "Dr. Who" || iv.Date.String() != "2020-02-02" {
		t.Errorf("GetIntervention() = %+v", iv)
	}

	iv.Notes = "both calves"
	if err := s.UpdateIntervention(ctx, iv); err != nil {
		t.Fatalf("UpdateIntervention() failed: %v", err)
	}
	list, err := s.ListInterventions(ctx, pid)
	if err != nil {
		t.Fatalf("ListInterventions() failed: %v", err)
	}
	if len(list) != 1 || list[0].Notes != "both calves" {
		t.Errorf("ListInterventions() = %+v", list)
	}

	if err := s.DeleteIntervention(ctx, id); err != nil {
		t.Fatalf("DeleteIntervention() failed: %v", err)
	}
	if _, err := s.GetIntervention(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestIntervention_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pid := createTestPatient(t, s, "Err", "2000-06-15")

	if _, err := s.AddIntervention(ctx, 404, domain.Intervention{Date: domain.MustParseDate("2020-01-01")}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown patient: err = %v", err)
	}
	if _, err := s.AddIntervention(ctx, pid, domain.Intervention{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing date: err = %v", err)
	}
	if err := s.UpdateIntervention(ctx, domain.Intervention{ID: 9, Date: domain.MustParseDate("2020-01-01")}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("update unknown: err = %v", err)
	}

	id := createTestIntervention(t, s, pid, "2020-01-01")
	err := s.UpdateIntervention(ctx, domain.Intervention{ID: id, Date: domain.MustParseDate("1999-01-01")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("update before birth: err = %v", err)
	}
	if err := s.DeleteIntervention(ctx, 12345); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("delete unknown: err = %v", err)
	}
}

func TestPatientHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pid := createTestPatient(t, s, "History", "1990-01-01")
	createTestExamination(t, s, pid, "2020-01-01")
	createTestIntervention(t, s, pid, "2020-01-02")
	createTestIntervention(t, s, pid, "2019-01-02")

	p, exams, interv, err := s.PatientHistory(ctx, pid)
	if err != nil {
		t.Fatalf("PatientHistory() failed: %v", err)
	}
	if p.ID != pid || len(exams) != 1 || len(interv) != 2 {
		t.Errorf("PatientHistory() = %v, %d exams, %d interventions", p, len(exams), len(interv))
	}
	if interv[0].Date.String() != "2019-01-02" {
		t.Errorf("interventions not ordered by date: %v", interv)
	}

	if _, _, _, err := s.PatientHistory(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestPatientHistory_DoesNotWaitForWriter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pid := createTestPatient(t, s, "Reader", "1990-01-01")
	createTestExamination(t, s, pid, "2020-01-01")

	// An open write transaction holds the write lock until it ends.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() failed: %v", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO interventions (patient_id, type, date, operator, notes) VALUES (?, 'surgery', '2021-01-01', '', '')`, pid); err != nil {
		t.Fatalf("insert in open tx failed: %v", err)
	}

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	_, exams, interv, err := s.PatientHistory(readCtx, pid)
	if err != nil {
		t.Fatalf("PatientHistory() during write failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("PatientHistory() took %v while a writer was active", elapsed)
	}
	if len(exams) != 1 || len(interv) != 0 {
		t.Errorf("PatientHistory() = %d exams, %d interventions, want committed state 1, 0", len(exams), len(interv))
	}

	// The read leaves no transaction open on its pooled connection.
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if _, _, interv, err = s.PatientHistory(ctx, pid); err != nil || len(interv) != 1 {
		t.Errorf("after commit: %d interventions, err = %v, want 1", len(interv), err)
	}
}
