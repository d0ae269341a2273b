package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Validation runs at the record store boundary on every write. The functions
// here are pure: they normalize a candidate record and report every failing
// field at once so the caller can render all problems together.

// CleanText trims surrounding whitespace and converts s to Unicode NFC so
// that visually identical names compare and search identically.
func CleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizePatient returns p with every text field cleaned.
func NormalizePatient(p Patient) Patient {
	p.Code = CleanText(p.Code)
	p.FirstName = CleanText(p.FirstName)
	p.LastName = CleanText(p.LastName)
	p.Sex = CleanText(p.Sex)
	p.Diagnosis = CleanText(p.Diagnosis)
	p.AssistiveDevice = CleanText(p.AssistiveDevice)
	p.Address = CleanText(p.Address)
	p.ZipCode = CleanText(p.ZipCode)
	p.City = CleanText(p.City)
	p.Country = CleanText(p.Country)
	p.Phone = CleanText(p.Phone)
	p.Mobile = CleanText(p.Mobile)
	p.Email = CleanText(p.Email)
	return p
}

// ValidatePatient checks required demographics. The patient is assumed
// normalized.
func ValidatePatient(p Patient) error {
	var fields []FieldError
	if p.FirstName == "" {
		fields = append(fields, FieldError{Field: "first_name", Message: "required"})
	}
	if p.LastName == "" {
		fields = append(fields, FieldError{Field: "last_name", Message: "required"})
	}
	if p.BirthDate.IsZero() {
		fields = append(fields, FieldError{Field: "birth_date", Message: "required"})
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		fields = append(fields, FieldError{Field: "email", Message: "must contain @"})
	}
	return NewValidationError("patient", fields)
}

// NormalizeExamination cleans text fields and derives BMI.
func NormalizeExamination(e Examination) Examination {
	e.Type = CleanText(e.Type)
	e.AssistiveDevice = CleanText(e.AssistiveDevice)
	e.Examiner = CleanText(e.Examiner)
	e.Notes = norm.NFC.String(e.Notes)
	return e.WithBMI()
}

// ValidateExamination checks an examination against its patient's birth date.
func ValidateExamination(e Examination, birth Date) error {
	fields := eventDateErrors(e.Date, birth)
	if e.HeightM != nil && !positiveFinite(*e.HeightM) {
		fields = append(fields, FieldError{Field: "height_m", Message: "must be a finite number greater than 0"})
	}
	if e.WeightKg != nil && !positiveFinite(*e.WeightKg) {
		fields = append(fields, FieldError{Field: "weight_kg", Message: "must be a finite number greater than 0"})
	}
	return NewValidationError("examination", fields)
}

// NormalizeIntervention cleans text fields.
func NormalizeIntervention(iv Intervention) Intervention {
	iv.Type = CleanText(iv.Type)
	iv.Operator = CleanText(iv.Operator)
	iv.Notes = norm.NFC.String(iv.Notes)
	return iv
}

// ValidateIntervention checks an intervention against its patient's birth date.
func ValidateIntervention(iv Intervention, birth Date) error {
	return NewValidationError("intervention", eventDateErrors(iv.Date, birth))
}

func eventDateErrors(date, birth Date) []FieldError {
	if date.IsZero() {
		return []FieldError{{Field: "date", Message: "required"}}
	}
	if !birth.IsZero() && date.Before(birth) {
		return []FieldError{{Field: "date", Message: "must not be before birth date " + birth.String()}}
	}
	return nil
}
