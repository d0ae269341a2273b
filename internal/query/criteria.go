package query

import (
	"fmt"
	"strings"

	"github.com/roach88/gaitdoc/internal/domain"
)

// Field selects the patient attribute a search text is matched against.
type Field string

const (
	FieldLastName  Field = "last_name"
	FieldDiagnosis Field = "diagnosis"
	FieldPatientID Field = "patient_id"
	FieldZipCode   Field = "zip_code"
)

// Fields lists every searchable field in display order.
var Fields = []Field{FieldLastName, FieldDiagnosis, FieldPatientID, FieldZipCode}

// FieldNames returns Fields joined by "|", for help and error text.
func FieldNames() string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = string(f)
	}
	return strings.Join(names, "|")
}

// ParseField accepts the snake_case field names and their camelCase forms.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last_name", "lastname", "name":
		return FieldLastName, nil
	case "diagnosis":
		return FieldDiagnosis, nil
	case "patient_id", "patientid", "id", "code":
		return FieldPatientID, nil
	case "zip_code", "zipcode", "zip":
		return FieldZipCode, nil
	}
	return "", domain.NewInvalidInput(fmt.Sprintf("unknown search field %q (want one of %s)", s, FieldNames()), "")
}

// Criteria describes one patient search.
//
// Text is matched as a case-insensitive substring for text fields and
// exactly for FieldPatientID. Empty text matches every patient. BirthFrom and
// BirthTo bound the birth date inclusively; either may be nil.
type Criteria struct {
	Field     Field
	Text      string
	BirthFrom *domain.Date
	BirthTo   *domain.Date
}

// Validate rejects unknown fields and inverted birth-date ranges.
func (c Criteria) Validate() error {
	var fields []domain.FieldError
	switch c.Field {
	case FieldLastName, FieldDiagnosis, FieldPatientID, FieldZipCode, "":
	default:
		fields = append(fields, domain.FieldError{Field: "field", Message: fmt.Sprintf("unknown search field %q", c.Field)})
	}
	if c.BirthFrom != nil && c.BirthTo != nil && c.BirthFrom.After(*c.BirthTo) {
		fields = append(fields, domain.FieldError{Field: "birth_date", Message: "range start is after range end"})
	}
	return domain.NewValidationError("search", fields)
}
