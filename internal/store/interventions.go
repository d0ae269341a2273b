package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gaitdoc/internal/domain"
)

// AddIntervention inserts an intervention for patientID and returns its id.
func (s *Store) AddIntervention(ctx context.Context, patientID int64, iv domain.Intervention) (int64, error) {
	iv = domain.NormalizeIntervention(iv)

	var id int64
	err := s.withTx(ctx, "add intervention", func(tx *sql.Tx) error {
		birth, err := patientBirthDate(ctx, tx, patientID)
		if err != nil {
			return err
		}
		if err := domain.ValidateIntervention(iv, birth); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO interventions (patient_id, type, date, operator, notes)
			VALUES (?, ?, ?, ?, ?)
		`, patientID, iv.Type, iv.Date, iv.Operator, iv.Notes)
		if err != nil {
			return fmt.Errorf("add intervention: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("add intervention: last insert id: %w", err)
		}
		return nil
	})
	return id, err
}

// UpdateIntervention replaces the fields of intervention iv.ID.
// iv.PatientID is ignored.
func (s *Store) UpdateIntervention(ctx context.Context, iv domain.Intervention) error {
	iv = domain.NormalizeIntervention(iv)

	return s.withTx(ctx, "update intervention", func(tx *sql.Tx) error {
		var birth domain.Date
		err := tx.QueryRowContext(ctx, `
			SELECT p.birth_date FROM interventions i
			JOIN patients p ON p.id = i.patient_id
			WHERE i.id = ?
		`, iv.ID).Scan(&birth)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFound("intervention", iv.ID)
		}
		if err != nil {
			return fmt.Errorf("update intervention: %w", err)
		}
		if err := domain.ValidateIntervention(iv, birth); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE interventions SET type = ?, date = ?, operator = ?, notes = ?
			WHERE id = ?
		`, iv.Type, iv.Date, iv.Operator, iv.Notes, iv.ID)
		if err != nil {
			return fmt.Errorf("update intervention: %w", err)
		}
		return requireAffected(result, "intervention", iv.ID)
	})
}

// DeleteIntervention deletes the intervention and its attachments.
func (s *Store) DeleteIntervention(ctx context.Context, id int64) error {
	var files []string
	err := s.withTx(ctx, "delete intervention", func(tx *sql.Tx) error {
		var err error
		files, err = collectStoredNames(ctx, tx,
			`SELECT stored_name FROM attachments WHERE intervention_id = ? ORDER BY id ASC`, id)
		if err != nil {
			return fmt.Errorf("delete intervention: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM interventions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete intervention: %w", err)
		}
		return requireAffected(result, "intervention", id)
	})
	if err != nil {
		return err
	}

	s.removeFiles("delete intervention", files)
	return nil
}

// GetIntervention retrieves a single intervention by id.
func (s *Store) GetIntervention(ctx context.Context, id int64) (domain.Intervention, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+interventionColumns+` FROM interventions WHERE id = ?`, id)
	iv, err := scanIntervention(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Intervention{}, domain.NewNotFound("intervention", id)
	}
	if err != nil {
		return domain.Intervention{}, fmt.Errorf("get intervention: %w", err)
	}
	return iv, nil
}

// ListInterventions returns the interventions of patientID ordered by date,
// then id. Fails with NOT_FOUND if the patient does not exist.
func (s *Store) ListInterventions(ctx context.Context, patientID int64) ([]domain.Intervention, error) {
	if _, err := patientBirthDate(ctx, s.db, patientID); err != nil {
		return nil, err
	}
	return listInterventions(ctx, s.db, patientID)
}

func listInterventions(ctx context.Context, q querier, patientID int64) ([]domain.Intervention, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+interventionColumns+`
		FROM interventions
		WHERE patient_id = ?
		ORDER BY date ASC, id ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("query interventions: %w", err)
	}
	defer rows.Close()

	interventions := []domain.Intervention{}
	for rows.Next() {
		iv, err := scanIntervention(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intervention: %w", err)
		}
		interventions = append(interventions, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interventions: %w", err)
	}
	return interventions, nil
}

// PatientHistory reads a patient with all examinations and interventions in
// one read transaction, so the three reads observe the same committed state.
// It does not wait for a concurrent writer.
func (s *Store) PatientHistory(ctx context.Context, patientID int64) (domain.Patient, []domain.Examination, []domain.Intervention, error) {
	var (
		p      domain.Patient
		exams  []domain.Examination
		interv []domain.Intervention
	)
	err := s.withReadTx(ctx, "read patient history", func(q querier) error {
		var err error
		if p, err = getPatient(ctx, q, patientID); err != nil {
			return err
		}
		if exams, err = listExaminations(ctx, q, patientID); err != nil {
			return err
		}
		interv, err = listInterventions(ctx, q, patientID)
		return err
	})
	if err != nil {
		return domain.Patient{}, nil, nil, err
	}
	return p, exams, interv, nil
}
