package formschema

import (
	"errors"
	"sort"
	"strings"
)

// ValidationError carries every failing field and its messages. Keys are
// field names; there is no unkeyed variant.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "formschema: validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], "; "))
	}
	return "formschema: validation failed: " + strings.Join(parts, ", ")
}

// For returns the messages recorded for name.
func (e *ValidationError) For(name string) []string {
	if e == nil {
		return nil
	}
	return e.Fields[name]
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) && verr != nil {
		return verr, true
	}
	return nil, false
}
