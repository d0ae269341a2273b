package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gaitdoc/internal/domain"
)

// AddExamination inserts an examination for patientID and returns its id.
// BMI is derived from height and weight; any BMI on e is ignored.
func (s *Store) AddExamination(ctx context.Context, patientID int64, e domain.Examination) (int64, error) {
	e = domain.NormalizeExamination(e)

	var id int64
	err := s.withTx(ctx, "add examination", func(tx *sql.Tx) error {
		birth, err := patientBirthDate(ctx, tx, patientID)
		if err != nil {
			return err
		}
		if err := domain.ValidateExamination(e, birth); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO examinations
			(patient_id, type, date, height_m, weight_kg, bmi, assistive_device, examiner, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			patientID, e.Type, e.Date, nullFloat(e.HeightM), nullFloat(e.WeightKg), nullFloat(e.BMI),
			e.AssistiveDevice, e.Examiner, e.Notes,
		)
		if err != nil {
			return fmt.Errorf("add examination: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("add examination: last insert id: %w", err)
		}
		return nil
	})
	return id, err
}

// UpdateExamination replaces the fields of examination e.ID and recomputes
// BMI. The owning patient never changes; e.PatientID is ignored.
func (s *Store) UpdateExamination(ctx context.Context, e domain.Examination) error {
	e = domain.NormalizeExamination(e)

	return s.withTx(ctx, "update examination", func(tx *sql.Tx) error {
		var birth domain.Date
		err := tx.QueryRowContext(ctx, `
			SELECT p.birth_date FROM examinations e
			JOIN patients p ON p.id = e.patient_id
			WHERE e.id = ?
		`, e.ID).Scan(&birth)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFound("examination", e.ID)
		}
		if err != nil {
			return fmt.Errorf("update examination: %w", err)
		}
		if err := domain.ValidateExamination(e, birth); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE examinations SET
				type = ?, date = ?, height_m = ?, weight_kg = ?, bmi = ?,
				assistive_device = ?, examiner = ?, notes = ?
			WHERE id = ?
		`,
			e.Type, e.Date, nullFloat(e.HeightM), nullFloat(e.WeightKg), nullFloat(e.BMI),
			e.AssistiveDevice, e.Examiner, e.Notes,
			e.ID,
		)
		if err != nil {
			return fmt.Errorf("update examination: %w", err)
		}
		return requireAffected(result, "examination", e.ID)
	})
}

// DeleteExamination deletes the examination and its attachments. Attachment
// files are removed after commit, best-effort.
func (s *Store) DeleteExamination(ctx context.Context, id int64) error {
	var files []string
	err := s.withTx(ctx, "delete examination", func(tx *sql.Tx) error {
		var err error
		files, err = collectStoredNames(ctx, tx,
			`SELECT stored_name FROM attachments WHERE examination_id = ? ORDER BY id ASC`, id)
		if err != nil {
			return fmt.Errorf("delete examination: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM examinations WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete examination: %w", err)
		}
		return requireAffected(result, "examination", id)
	})
	if err != nil {
		return err
	}

	s.removeFiles("delete examination", files)
	return nil
}

// GetExamination retrieves a single examination by id.
func (s *Store) GetExamination(ctx context.Context, id int64) (domain.Examination, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+examinationColumns+` FROM examinations WHERE id = ?`, id)
	e, err := scanExamination(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Examination{}, domain.NewNotFound("examination", id)
	}
	if err != nil {
		return domain.Examination{}, fmt.Errorf("get examination: %w", err)
	}
	return e, nil
}

// ListExaminations returns the examinations of patientID ordered by date,
// then id. Fails with NOT_FOUND if the patient does not exist.
// Returns an empty slice (not nil) if the patient has none.
func (s *Store) ListExaminations(ctx context.Context, patientID int64) ([]domain.Examination, error) {
	if _, err := patientBirthDate(ctx, s.db, patientID); err != nil {
		return nil, err
	}
	return listExaminations(ctx, s.db, patientID)
}

func listExaminations(ctx context.Context, q querier, patientID int64) ([]domain.Examination, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+examinationColumns+`
		FROM examinations
		WHERE patient_id = ?
		ORDER BY date ASC, id ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("query examinations: %w", err)
	}
	defer rows.Close()

	exams := []domain.Examination{}
	for rows.Next() {
		e, err := scanExamination(rows)
		if err != nil {
			return nil, fmt.Errorf("scan examination: %w", err)
		}
		exams = append(exams, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate examinations: %w", err)
	}
	return exams, nil
}
