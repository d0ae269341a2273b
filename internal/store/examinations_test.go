package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/roach88/gaitdoc/internal/domain"
)

func TestAddExamination_ComputesBMI(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pid := createTestPatient(t, s, "Weigh", "1990-01-01")

	id, err := s.AddExamination(ctx, pid, domain.Examination{
		Date:     domain.MustParseDate("2020-05-05"),
		HeightM:  f64(1.80),
		WeightKg: f64(75),
		BMI:      f64(1), // ignored
		Examiner: "Dr. Gait",
	})
	if err != nil {
		t.Fatalf("AddExamination() failed: %v", err)
	}

	got, err := s.GetExamination(ctx, id)
	if err != nil {
		t.Fatalf("GetExamination() failed: %v", err)
	}
	if got.BMI == nil || *got.BMI != 23.15 {
		t.Errorf("BMI = %v, want 23.15", got.BMI)
	}
	if got.PatientID != pid || got.Examiner != "Dr. Gait" {
		t.Errorf("GetExamination() = %+v", got)
	}
}

func TestAddExamination_BMINullWithoutBothInputs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pid := createTestPatient(t, s, "Half", "1990-01-01")

	id, err := s.AddExamination(ctx, pid, domain.Examination{
		Date:    domain.MustParseDate("2020-05-05"),
		HeightM: f64(1.70),
	})
	if err != nil {
		t.Fatalf("AddExamination() failed: %v", err)
	}
	got, _ := s.GetExamination(ctx, id)
	if got.BMI != nil {
		t.Errorf("BMI = %v, want nil", *got.BMI)
	}
	if got.WeightKg != nil {
		t.Errorf("WeightKg = %v, want nil", *got.WeightKg)
	}
}

func TestUpdateExamination_RecomputesBMI(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pid := createTestPatient(t, s, "Change", "1990-01-01")
	id, err := s.AddExamination(ctx, pid, domain.Examination{
		Date: domain.MustParseDate("2020-05-05"), HeightM: f64(1.80), WeightKg: f64(75),
	})
	if err != nil {
		t.Fatalf("AddExamination() failed: %v", err)
	}

	e, _ := s.GetExamination(ctx, id)
	e.WeightKg = f64(81)
	e.PatientID = 999 // ignored
	if err := s.UpdateExamination(ctx, e); err != nil {
		t.Fatalf("UpdateExamination() failed: %v", err)
	}
	got, _ := s.GetExamination(ctx, id)
	if got.BMI == nil || *got.BMI != 25 {
		t.Errorf("BMI = %v, want 25", got.BMI)
	}
	if got.PatientID != pid {
		t.Errorf("PatientID = %d, want %d", got.PatientID, pid)
	}

	got.WeightKg = nil
	if err := s.UpdateExamination(ctx, got); err != nil {
		t.Fatalf("UpdateExamination() failed: %v", err)
	}
	got, _ = s.GetExamination(ctx, id)
	if got.BMI != nil {
		t.Errorf("BMI = %v after clearing weight, want nil", *got.BMI)
	}
}

func TestAddExamination_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pid := createTestPatient(t, s, "Err", "2000-06-15")

	_, err := s.AddExamination(ctx, 999, domain.Examination{Date: domain.MustParseDate("2020-01-01")})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown patient: err = %v, want not found", err)
	}

	_, err = s.AddExamination(ctx, pid, domain.Examination{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing date: err = %v, want validation", err)
	}

	_, err = s.AddExamination(ctx, pid, domain.Examination{Date: domain.MustParseDate("2000-06-14")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("before birth: err = %v, want validation", err)
	}

	_, err = s.AddExamination(ctx, pid, domain.Examination{Date: domain.MustParseDate("2020-01-01"), HeightM: f64(-1)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("negative height: err = %v, want validation", err)
	}

	for name, e := range map[string]domain.Examination{
		"NaN height":  {Date: domain.MustParseDate("2020-01-01"), HeightM: f64(math.NaN()), WeightKg: f64(75)},
		"Inf height":  {Date: domain.MustParseDate("2020-01-01"), HeightM: f64(math.Inf(1)), WeightKg: f64(75)},
		"Inf weight":  {Date: domain.MustParseDate("2020-01-01"), HeightM: f64(1.80), WeightKg: f64(math.Inf(1))},
		"-Inf weight": {Date: domain.MustParseDate("2020-01-01"), WeightKg: f64(math.Inf(-1))},
	} {
		_, err = s.AddExamination(ctx, pid, e)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: err = %v, want validation", name, err)
		}
	}

	if n := countRows(t, s, "examinations"); n != 0 {
		t.Errorf("examinations = %d, want 0", n)
	}
}

func TestUpdateExamination_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.UpdateExamination(context.Background(), domain.Examination{ID: 5, Date: domain.MustParseDate("2020-01-01")})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestDeleteExamination_CascadesAttachments(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pid := createTestPatient(t, s, "Del", "1990-01-01")
	eid := createTestExamination(t, s, pid, "2020-01-01")
	aid, err := s.LinkAttachment(ctx, domain.OwnerExamination, eid, writeSourceFile(t, "v.mp4", "frames"), "walk video")
	if err != nil {
		t.Fatalf("LinkAttachment() failed: %v", err)
	}
	a, _ := s.GetAttachment(ctx, aid)

	if err := s.DeleteExamination(ctx, eid); err != nil {
		t.Fatalf("DeleteExamination() failed: %v", err)
	}
	if n := countRows(t, s, "attachments"); n != 0 {
		t.Errorf("attachments = %d, want 0", n)
	}
	if ok, _ := s.files.Exists(a.StoredName); ok {
		t.Error("attachment file survived examination delete")
	}
	if err := s.DeleteExamination(ctx, eid); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: err = %v, want not found", err)
	}
}

func TestListExaminations_OrderedByDateThenID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pid := createTestPatient(t, s, "Order", "1990-01-01")
	late := createTestExamination(t, s, pid, "2021-01-01")
	early := createTestExamination(t, s, pid, "2019-01-01")
	sameDay := createTestExamination(t, s, pid, "2021-01-01")

	exams, err := s.ListExaminations(ctx, pid)
	if err != nil {
		t.Fatalf("ListExaminations() failed: %v", err)
	}
	want := []int64{early, late, sameDay}
	if len(exams) != len(want) {
		t.Fatalf("len = %d, want %d", len(exams), len(want))
	}
	for i, e := range exams {
		if e.ID != want[i] {
			t.Errorf("exams[%d].ID = %d, want %d", i, e.ID, want[i])
		}
	}

	other := createTestPatient(t, s, "Empty", "1990-01-01")
	empty, err := s.ListExaminations(ctx, other)
	if err != nil {
		t.Fatalf("ListExaminations() failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListExaminations() = %v, want empty non-nil slice", empty)
	}

	if _, err := s.ListExaminations(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}
