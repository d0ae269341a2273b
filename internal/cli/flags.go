package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/roach88/gaitdoc/internal/domain"
)

// parseID parses a positional record id.
func parseID(arg, entity string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewInvalidInput(fmt.Sprintf("invalid %s id %q", entity, arg), "")
	}
	return id, nil
}

// parseDateField parses a date flag value, reporting failures as a
// validation error on field.
func parseDateField(field, value string) (domain.Date, error) {
	if value == "" {
		return domain.Date{}, nil
	}
	d, err := domain.ParseDate(value)
	if err != nil {
		return domain.Date{}, domain.NewValidationError(field, []domain.FieldError{{Field: field, Message: "must be YYYY-MM-DD"}})
	}
	return d, nil
}

// changedFloat reports whether the float flag name was set. A value of 0
// yields a nil pointer, clearing a stored measurement.
func changedFloat(fs *pflag.FlagSet, name string) (value *float64, set bool, err error) {
	if !fs.Changed(name) {
		return nil, false, nil
	}
	v, err := fs.GetFloat64(name)
	if err != nil {
		return nil, false, err
	}
	if v == 0 {
		return nil, true, nil
	}
	return &v, true, nil
}

// textField binds one string flag to a field of T.
type textField[T any] struct {
	flag  string
	usage string
	field func(*T) *string
}

// bindText registers every field as a string flag writing into input.
func bindText[T any](fs *pflag.FlagSet, input *T, fields []textField[T]) {
	for _, f := range fields {
		fs.StringVar(f.field(input), f.flag, "", f.usage)
	}
}

// applyChanged copies the fields whose flags were set from input to dst.
func applyChanged[T any](fs *pflag.FlagSet, dst, input *T, fields []textField[T]) {
	for _, f := range fields {
		if fs.Changed(f.flag) {
			*f.field(dst) = *f.field(input)
		}
	}
}
