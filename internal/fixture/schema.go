package fixture

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/gaitdoc/internal/domain"
)

//go:embed schema.cue
var schemaSrc string

// validate checks a decoded YAML document against #Dataset. Every schema
// violation becomes one field of the returned VALIDATION error.
func validate(doc any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile dataset schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Dataset"))

	v := ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return schemaError(err)
	}
	return nil
}

// schemaError converts CUE errors to field errors keyed by their path in
// the document, e.g. "patients.0.birth_date".
func schemaError(err error) error {
	var fields []domain.FieldError
	seen := map[string]bool{}
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		fe := domain.FieldError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if key := fe.String(); !seen[key] {
			seen[key] = true
			fields = append(fields, fe)
		}
	}
	if len(fields) == 0 {
		fields = append(fields, domain.FieldError{Field: "dataset", Message: err.Error()})
	}
	return domain.NewValidationError("dataset", fields)
}
