package filters

import (
	"fmt"
	"strings"

	apperrors "rental-search/internal/common/errors"
	"rental-search/internal/common/validation"
)

// ValidationError lists every invalid field of a search request.
type ValidationError struct {
	Fields []validation.ValidationError `json:"fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid search filters: %s", strings.Join(e.Messages(), "; "))
}

// Messages renders each violation as "field: message".
func (e *ValidationError) Messages() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.String()
	}
	return out
}

// Has reports whether field has a violation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// ToStandardError converts to the shared INVALID_FILTER_FORMAT error.
func (e *ValidationError) ToStandardError() *apperrors.StandardError {
	return apperrors.NewInvalidFilterFormatError(
		fmt.Sprintf("%d invalid field(s)", len(e.Fields)),
		e.Messages(),
	)
}

type violations struct {
	list []validation.ValidationError
}

func (v *violations) add(field, code, format string, args ...interface{}) {
	v.list = append(v.list, validation.ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (v *violations) has(field string) bool {
	for _, e := range v.list {
		if e.Field == field || strings.HasPrefix(e.Field, field+".") {
			return true
		}
	}
	return false
}

func (v *violations) err() error {
	if len(v.list) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.list}
}
