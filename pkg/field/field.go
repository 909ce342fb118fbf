package field

import (
	"fmt"
	"strings"
)

// Kind is the tagged variant of a field descriptor.
type Kind string

const (
	KindID        Kind = "id"
	KindString    Kind = "string"
	KindText      Kind = "text"
	KindEnum      Kind = "enum"
	KindDateTime  Kind = "datetime"
	KindDecimal   Kind = "decimal"
	KindInteger   Kind = "integer"
	KindFiles     Kind = "files"
	KindImages    Kind = "images"
	KindRelation  Kind = "relation"
	KindRelations Kind = "relations"
)

// Canonical component names resolved by renderers.
const (
	ComponentView         = "view"
	ComponentInput        = "input"
	ComponentTextarea     = "textarea"
	ComponentSelect       = "select"
	ComponentDatePicker   = "date"
	ComponentFiles        = "files"
	ComponentImages       = "images"
	ComponentAutocomplete = "autocomplete"
	ComponentMultiSelect  = "autocomplete-multi"
)

// Option is an entry of an enumerated field.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Descriptor is the capability set shared by every field variant. Consumers
// treat descriptors as immutable and key all reads, writes and errors by
// Name.
type Descriptor interface {
	Name() string
	Label() string
	Required() bool
	Kind() Kind
	// Describe returns the render-facing snapshot of the descriptor.
	Describe() Spec
	// Empty returns the value used when a record does not carry the field.
	Empty() any
	// Validate reports every message for value. An empty result means valid.
	Validate(value any) []string
	// Cast coerces a valid value into its canonical representation.
	Cast(value any) (any, error)
}

// Spec is the serialisable view of a descriptor that renderers consume.
type Spec struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Required    bool     `json:"required"`
	Kind        Kind     `json:"kind"`
	Component   string   `json:"component"`
	InputType   string   `json:"inputType,omitempty"`
	Hint        string   `json:"hint,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Size        string   `json:"size,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Entity      string   `json:"entity,omitempty"`
	Multiple    bool     `json:"multiple,omitempty"`
	TimeInput   bool     `json:"timeInput,omitempty"`
	Path        string   `json:"path,omitempty"`
	MaxFiles    int      `json:"maxFiles,omitempty"`
	MaxBytes    int64    `json:"maxBytes,omitempty"`
	Formats     []string `json:"formats,omitempty"`
	MaxLength   int      `json:"maxLength,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

// Base carries the attributes every variant shares.
type Base struct {
	FieldName   string
	FieldLabel  string
	IsRequired  bool
	Hint        string
	Placeholder string
	// Size selects the input size class ("small" or "large").
	Size string
}

func (b Base) Name() string   { return b.FieldName }
func (b Base) Label() string  { return b.FieldLabel }
func (b Base) Required() bool { return b.IsRequired }

func (b Base) spec(kind Kind, component string) Spec {
	return Spec{
		Name:        b.FieldName,
		Label:       b.FieldLabel,
		Required:    b.IsRequired,
		Kind:        kind,
		Component:   component,
		Hint:        b.Hint,
		Placeholder: b.Placeholder,
		Size:        b.Size,
	}
}

func (b Base) requiredMessage() string {
	return fmt.Sprintf("%s is required", b.displayName())
}

func (b Base) displayName() string {
	if label := strings.TrimSpace(b.FieldLabel); label != "" {
		return label
	}
	return b.FieldName
}

// IsBlank reports whether value carries no user input: nil, whitespace-only
// strings and empty collections.
func IsBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case []FileRef:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func float64Ptr(v float64) *float64 { return &v }
