package field

import (
	"fmt"
	"html"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// ID is the identifier field. It is rendered read-only when editing.
type ID struct {
	Base
}

func (f ID) Kind() Kind     { return KindID }
func (f ID) Describe() Spec { return f.spec(KindID, ComponentView) }
func (f ID) Empty() any     { return "" }

func (f ID) Validate(value any) []string {
	if _, ok := scalarString(value); !ok {
		return []string{fmt.Sprintf("%s is invalid", f.displayName())}
	}
	return nil
}

func (f ID) Cast(value any) (any, error) {
	s, ok := scalarString(value)
	if !ok {
		return nil, fmt.Errorf("field %s: unsupported id %T", f.FieldName, value)
	}
	return strings.TrimSpace(s), nil
}

// String is a single line text input.
type String struct {
	Base
	MinLength int
	MaxLength int
	// InputType overrides the HTML input type (text, email, tel...).
	InputType string
}

func (f String) Kind() Kind { return KindString }

func (f String) Describe() Spec {
	spec := f.spec(KindString, ComponentInput)
	spec.InputType = f.InputType
	if spec.InputType == "" {
		spec.InputType = "text"
	}
	spec.MaxLength = f.MaxLength
	return spec
}

func (f String) Empty() any { return "" }

func (f String) Validate(value any) []string {
	s, ok := scalarString(value)
	if !ok {
		return []string{fmt.Sprintf("%s must be text", f.displayName())}
	}
	return validateLength(f.Base, strings.TrimSpace(s), f.MinLength, f.MaxLength)
}

func (f String) Cast(value any) (any, error) {
	s, ok := scalarString(value)
	if !ok {
		return nil, fmt.Errorf("field %s: unsupported value %T", f.FieldName, value)
	}
	return strings.TrimSpace(s), nil
}

// Text is a multi-line text area. Markup is stripped on cast.
type Text struct {
	Base
	MaxLength int
}

func (f Text) Kind() Kind { return KindText }

func (f Text) Describe() Spec {
	spec := f.spec(KindText, ComponentTextarea)
	spec.MaxLength = f.MaxLength
	return spec
}

func (f Text) Empty() any { return "" }

func (f Text) Validate(value any) []string {
	s, ok := scalarString(value)
	if !ok {
		return []string{fmt.Sprintf("%s must be text", f.displayName())}
	}
	return validateLength(f.Base, stripMarkup(s), 0, f.MaxLength)
}

func (f Text) Cast(value any) (any, error) {
	s, ok := scalarString(value)
	if !ok {
		return nil, fmt.Errorf("field %s: unsupported value %T", f.FieldName, value)
	}
	return stripMarkup(s), nil
}

// Enum is a select restricted to Options.
type Enum struct {
	Base
	Options []Option
}

func (f Enum) Kind() Kind { return KindEnum }

func (f Enum) Describe() Spec {
	spec := f.spec(KindEnum, ComponentSelect)
	spec.Options = slices.Clone(f.Options)
	return spec
}

func (f Enum) Empty() any { return nil }

func (f Enum) Validate(value any) []string {
	s, ok := scalarString(value)
	if !ok {
		return []string{fmt.Sprintf("%s is invalid", f.displayName())}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		if f.IsRequired {
			return []string{f.requiredMessage()}
		}
		return nil
	}
	if !f.HasOption(s) {
		return []string{fmt.Sprintf("%s must be one of the available options", f.displayName())}
	}
	return nil
}

func (f Enum) Cast(value any) (any, error) {
	s, ok := scalarString(value)
	if !ok {
		return nil, fmt.Errorf("field %s: unsupported value %T", f.FieldName, value)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return s, nil
}

// HasOption reports whether id is one of the enum options.
func (f Enum) HasOption(id string) bool {
	for _, opt := range f.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// Decimal is a numeric input holding a float.
type Decimal struct {
	Base
	Min *float64
	Max *float64
	// Scale rounds the cast value to the given number of decimals. Zero
	// keeps the parsed value untouched.
	Scale int
}

func (f Decimal) Kind() Kind { return KindDecimal }

func (f Decimal) Describe() Spec {
	spec := f.spec(KindDecimal, ComponentInput)
	spec.InputType = "number"
	spec.Min, spec.Max = f.Min, f.Max
	return spec
}

func (f Decimal) Empty() any { return nil }

func (f Decimal) Validate(value any) []string {
	if IsBlank(value) {
		if f.IsRequired {
			return []string{f.requiredMessage()}
		}
		return nil
	}
	n, err := parseFloat(value)
	if err != nil {
		return []string{fmt.Sprintf("%s must be a number", f.displayName())}
	}
	return validateBounds(f.Base, n, f.Min, f.Max)
}

func (f Decimal) Cast(value any) (any, error) {
	if IsBlank(value) {
		return nil, nil
	}
	n, err := parseFloat(value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.FieldName, err)
	}
	if f.Scale > 0 {
		pow := math.Pow10(f.Scale)
		n = math.Round(n*pow) / pow
	}
	return n, nil
}

// Integer is a numeric input holding a whole number.
type Integer struct {
	Base
	Min *float64
	Max *float64
}

func (f Integer) Kind() Kind { return KindInteger }

func (f Integer) Describe() Spec {
	spec := f.spec(KindInteger, ComponentInput)
	spec.InputType = "number"
	spec.Min, spec.Max = f.Min, f.Max
	return spec
}

func (f Integer) Empty() any { return nil }

func (f Integer) Validate(value any) []string {
	if IsBlank(value) {
		if f.IsRequired {
			return []string{f.requiredMessage()}
		}
		return nil
	}
	n, err := parseInt(value)
	if err != nil {
		return []string{fmt.Sprintf("%s must be a whole number", f.displayName())}
	}
	return validateBounds(f.Base, float64(n), f.Min, f.Max)
}

func (f Integer) Cast(value any) (any, error) {
	if IsBlank(value) {
		return nil, nil
	}
	n, err := parseInt(value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.FieldName, err)
	}
	return n, nil
}

// AtLeast is a helper for numeric lower bounds.
func AtLeast(v float64) *float64 { return float64Ptr(v) }

// AtMost is a helper for numeric upper bounds.
func AtMost(v float64) *float64 { return float64Ptr(v) }

func validateLength(base Base, s string, minLength, maxLength int) []string {
	if s == "" {
		if base.IsRequired {
			return []string{base.requiredMessage()}
		}
		return nil
	}
	var out []string
	count := utf8.RuneCountInString(s)
	if minLength > 0 && count < minLength {
		out = append(out, fmt.Sprintf("%s must be at least %d characters", base.displayName(), minLength))
	}
	if maxLength > 0 && count > maxLength {
		out = append(out, fmt.Sprintf("%s must be at most %d characters", base.displayName(), maxLength))
	}
	return out
}

func validateBounds(base Base, n float64, minValue, maxValue *float64) []string {
	var out []string
	if minValue != nil && n < *minValue {
		out = append(out, fmt.Sprintf("%s must be greater than or equal to %s", base.displayName(), formatNumber(*minValue)))
	}
	if maxValue != nil && n > *maxValue {
		out = append(out, fmt.Sprintf("%s must be less than or equal to %s", base.displayName(), formatNumber(*maxValue)))
	}
	return out
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// parseInt accepts integers and whole floats that fit in an int64.
func parseInt(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case []string:
		if len(v) != 1 {
			return 0, fmt.Errorf("expected one number, got %d", len(v))
		}
		return parseInt(v[0])
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, nil
		}
	}
	n, err := parseFloat(value)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) {
		return 0, fmt.Errorf("%v is not a whole number", n)
	}
	if n < math.MinInt64 || n >= 1<<63 {
		return 0, fmt.Errorf("%v is out of range", n)
	}
	return int64(n), nil
}

func parseFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case []string:
		if len(v) != 1 {
			return 0, fmt.Errorf("expected one number, got %d", len(v))
		}
		return parseFloat(v[0])
	case string:
		trimmed := strings.TrimSpace(v)
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("parse number %q: %w", trimmed, err)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("parse number %q: not finite", trimmed)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported number %T", value)
	}
}

// scalarString accepts nil, strings and single-element string lists (as
// posted by HTML forms).
func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case []string:
		if len(v) == 0 {
			return "", true
		}
		if len(v) == 1 {
			return v[0], true
		}
		return "", false
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

var (
	markupPolicyOnce sync.Once
	markupPolicy     *bluemonday.Policy
)

// stripMarkup removes any HTML from free text while keeping plain text
// (including ampersands and quotes) as typed.
func stripMarkup(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	markupPolicyOnce.Do(func() {
		markupPolicy = bluemonday.StrictPolicy()
	})
	// Unescaping can surface entity-encoded markup, so sanitize until the
	// text stops shrinking.
	out := trimmed
	for {
		next := strings.TrimSpace(html.UnescapeString(markupPolicy.Sanitize(out)))
		if len(next) >= len(out) {
			return next
		}
		out = next
	}
}
