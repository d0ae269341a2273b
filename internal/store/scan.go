package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/gaitdoc/internal/domain"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// PatientColumns is the column list ScanPatient expects, in order.
const PatientColumns = `id, code, first_name, last_name, birth_date, sex, diagnosis,
	assistive_device, address, zip_code, city, country, phone, mobile, email`

// ScanPatient scans a row selected with PatientColumns.
func ScanPatient(row rowScanner) (domain.Patient, error) {
	var p domain.Patient
	var code sql.NullString
	if err := row.Scan(
		&p.ID, &code, &p.FirstName, &p.LastName, &p.BirthDate, &p.Sex, &p.Diagnosis,
		&p.AssistiveDevice, &p.Address, &p.ZipCode, &p.City, &p.Country, &p.Phone, &p.Mobile, &p.Email,
	); err != nil {
		return domain.Patient{}, err
	}
	p.Code = code.String
	return p, nil
}

const examinationColumns = `id, patient_id, type, date, height_m, weight_kg, bmi,
	assistive_device, examiner, notes`

func scanExamination(row rowScanner) (domain.Examination, error) {
	var e domain.Examination
	var height, weight, bmi sql.NullFloat64
	if err := row.Scan(
		&e.ID, &e.PatientID, &e.Type, &e.Date, &height, &weight, &bmi,
		&e.AssistiveDevice, &e.Examiner, &e.Notes,
	); err != nil {
		return domain.Examination{}, err
	}
	e.HeightM = floatPtr(height)
	e.WeightKg = floatPtr(weight)
	e.BMI = floatPtr(bmi)
	return e, nil
}

const interventionColumns = `id, patient_id, type, date, operator, notes`

func scanIntervention(row rowScanner) (domain.Intervention, error) {
	var iv domain.Intervention
	if err := row.Scan(&iv.ID, &iv.PatientID, &iv.Type, &iv.Date, &iv.Operator, &iv.Notes); err != nil {
		return domain.Intervention{}, err
	}
	return iv, nil
}

const attachmentColumns = `id, examination_id, intervention_id, original_name, stored_name,
	content_type, size, sha256, description, created_at`

func scanAttachment(row rowScanner) (domain.Attachment, error) {
	var a domain.Attachment
	var examID, intervID sql.NullInt64
	var created string
	if err := row.Scan(
		&a.ID, &examID, &intervID, &a.OriginalName, &a.StoredName,
		&a.ContentType, &a.Size, &a.SHA256, &a.Description, &created,
	); err != nil {
		return domain.Attachment{}, err
	}
	if examID.Valid {
		a.OwnerKind, a.OwnerID = domain.OwnerExamination, examID.Int64
	} else {
		a.OwnerKind, a.OwnerID = domain.OwnerIntervention, intervID.Int64
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("scan attachment %d: created_at: %w", a.ID, err)
	}
	a.CreatedAt = t
	return a, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
