package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/gaitdoc/internal/domain"
)

// CreatePatient validates and inserts a patient, returning the new id.
// Fails with a VALIDATION error naming every failing field.
func (s *Store) CreatePatient(ctx context.Context, p domain.Patient) (int64, error) {
	p = domain.NormalizePatient(p)
	if err := domain.ValidatePatient(p); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx(ctx, "create patient", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO patients
			(code, first_name, last_name, birth_date, sex, diagnosis, assistive_device,
			 address, zip_code, city, country, phone, mobile, email)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			nullString(p.Code), p.FirstName, p.LastName, p.BirthDate, p.Sex, p.Diagnosis, p.AssistiveDevice,
			p.Address, p.ZipCode, p.City, p.Country, p.Phone, p.Mobile, p.Email,
		)
		if err != nil {
			return patientWriteError("create patient", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("create patient: last insert id: %w", err)
		}
		return nil
	})
	return id, err
}

// UpdatePatient replaces the demographics of patient id. Existing events are
// not re-validated against a changed birth date.
func (s *Store) UpdatePatient(ctx context.Context, id int64, p domain.Patient) error {
	p = domain.NormalizePatient(p)
	if err := domain.ValidatePatient(p); err != nil {
		return err
	}

	return s.withTx(ctx, "update patient", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE patients SET
				code = ?, first_name = ?, last_name = ?, birth_date = ?, sex = ?, diagnosis = ?,
				assistive_device = ?, address = ?, zip_code = ?, city = ?, country = ?,
				phone = ?, mobile = ?, email = ?
			WHERE id = ?
		`,
			nullString(p.Code), p.FirstName, p.LastName, p.BirthDate, p.Sex, p.Diagnosis,
			p.AssistiveDevice, p.Address, p.ZipCode, p.City, p.Country,
			p.Phone, p.Mobile, p.Email,
			id,
		)
		if err != nil {
			return patientWriteError("update patient", err)
		}
		return requireAffected(result, "patient", id)
	})
}

// DeletePatient deletes the patient with all examinations, interventions and
// attachments. Row deletion is all-or-nothing; attachment files are removed
// after commit, best-effort.
func (s *Store) DeletePatient(ctx context.Context, id int64) error {
	var files []string
	err := s.withTx(ctx, "delete patient", func(tx *sql.Tx) error {
		var err error
		files, err = collectStoredNames(ctx, tx, `
			SELECT a.stored_name FROM attachments a
			LEFT JOIN examinations e ON a.examination_id = e.id
			LEFT JOIN interventions i ON a.intervention_id = i.id
			WHERE e.patient_id = ? OR i.patient_id = ?
			ORDER BY a.id ASC
		`, id, id)
		if err != nil {
			return fmt.Errorf("delete patient: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete patient: %w", err)
		}
		return requireAffected(result, "patient", id)
	})
	if err != nil {
		return err
	}

	s.removeFiles("delete patient", files)
	return nil
}

// GetPatient retrieves a single patient by id.
func (s *Store) GetPatient(ctx context.Context, id int64) (domain.Patient, error) {
	return getPatient(ctx, s.db, id)
}

// CountPatients returns the number of stored patients.
func (s *Store) CountPatients(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return n, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getPatient(ctx context.Context, q querier, id int64) (domain.Patient, error) {
	row := q.QueryRowContext(ctx, `SELECT `+PatientColumns+` FROM patients WHERE id = ?`, id)
	p, err := ScanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Patient{}, domain.NewNotFound("patient", id)
	}
	if err != nil {
		return domain.Patient{}, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

// patientBirthDate returns the birth date of patient id, or NOT_FOUND.
func patientBirthDate(ctx context.Context, q querier, id int64) (domain.Date, error) {
	var birth domain.Date
	err := q.QueryRowContext(ctx, `SELECT birth_date FROM patients WHERE id = ?`, id).Scan(&birth)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Date{}, domain.NewNotFound("patient", id)
	}
	if err != nil {
		return domain.Date{}, fmt.Errorf("get patient birth date: %w", err)
	}
	return birth, nil
}

// patientWriteError maps a duplicate patient code to a validation error.
func patientWriteError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return domain.NewValidationError("patient", []domain.FieldError{
			{Field: "code", Message: "already in use"},
		})
	}
	return fmt.Errorf("%s: %w", op, err)
}

// requireAffected turns a zero-row write into NOT_FOUND.
func requireAffected(result sql.Result, entity string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.NewNotFound(entity, id)
	}
	return nil
}

func collectStoredNames(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan attachment name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return names, nil
}
