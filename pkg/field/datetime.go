package field

import (
	"fmt"
	"strings"
	"time"
)

// inputLayouts lists the layouts accepted from date pickers and API payloads.
var inputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DateTime is a date picker, optionally with a time input.
type DateTime struct {
	Base
	TimeInput bool
}

func (f DateTime) Kind() Kind { return KindDateTime }

func (f DateTime) Describe() Spec {
	spec := f.spec(KindDateTime, ComponentDatePicker)
	spec.TimeInput = f.TimeInput
	spec.InputType = "date"
	if f.TimeInput {
		spec.InputType = "datetime-local"
	}
	return spec
}

func (f DateTime) Empty() any { return nil }

func (f DateTime) Validate(value any) []string {
	if IsBlank(value) {
		if f.IsRequired {
			return []string{f.requiredMessage()}
		}
		return nil
	}
	if _, err := ParseTime(value); err != nil {
		return []string{fmt.Sprintf("%s must be a valid date", f.displayName())}
	}
	return nil
}

// Cast normalises the value to an RFC 3339 UTC timestamp.
func (f DateTime) Cast(value any) (any, error) {
	if IsBlank(value) {
		return nil, nil
	}
	t, err := ParseTime(value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.FieldName, err)
	}
	return t.UTC().Format(time.RFC3339), nil
}

// ParseTime reads a timestamp from a time.Time or any accepted string layout.
// Layouts without a zone are interpreted as UTC.
func ParseTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *v, nil
	}
	s, ok := scalarString(value)
	if !ok {
		return time.Time{}, fmt.Errorf("unsupported time %T", value)
	}
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q: unsupported layout", s)
}
