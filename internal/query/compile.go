package query

import (
	"fmt"
	"strings"

	"github.com/roach88/gaitdoc/internal/domain"
	"github.com/roach88/gaitdoc/internal/store"
)

// textColumns maps substring-searchable fields to their columns.
var textColumns = map[Field]string{
	FieldLastName:  "last_name",
	FieldDiagnosis: "diagnosis",
	FieldZipCode:   "zip_code",
}

// Compile converts criteria to a parameterized patient query.
// Returns (sql, params, error).
//
// Text matching goes through the fold() function registered on every
// connection, so the comparison uses full Unicode case folding rather than
// SQLite's ASCII-only LIKE.
func Compile(c Criteria) (string, []any, error) {
	if err := c.Validate(); err != nil {
		return "", nil, err
	}
	if c.Field == "" {
		c.Field = FieldLastName
	}

	var where []string
	var params []any

	if text := domain.CleanText(c.Text); text != "" {
		if c.Field == FieldPatientID {
			where = append(where, "(CAST(id AS TEXT) = ? OR code = ?)")
			params = append(params, text, text)
		} else {
			where = append(where, fmt.Sprintf("instr(fold(%s), ?) > 0", textColumns[c.Field]))
			params = append(params, store.Fold(text))
		}
	}
	if c.BirthFrom != nil {
		where = append(where, "birth_date >= ?")
		params = append(params, c.BirthFrom.String())
	}
	if c.BirthTo != nil {
		where = append(where, "birth_date <= ?")
		params = append(params, c.BirthTo.String())
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(store.PatientColumns)
	b.WriteString(" FROM patients")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderKey)

	return b.String(), params, nil
}

// orderKey sorts by last name under the Unicode collation with the patient
// id as the tiebreaker.
const orderKey = "last_name COLLATE " + store.CollationCI + " ASC, id ASC"
