package formschema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goliatone/go-boarding/pkg/field"
)

// RuleFunc inspects the raw values of a form and returns a message when the
// rule is violated, or "" when it holds. Rules only run once every field they
// depend on passed its own validation.
type RuleFunc func(values map[string]any) string

type rule struct {
	target    string
	dependsOn []string
	check     RuleFunc
}

// Option customises a Schema at construction time.
type Option func(*Schema)

// WithRule registers a cross-field rule reported against target. dependsOn
// lists the fields whose individual validation must pass before the rule is
// evaluated; target is always included.
func WithRule(target string, check RuleFunc, dependsOn ...string) Option {
	return func(s *Schema) {
		if check == nil {
			return
		}
		deps := append([]string{target}, dependsOn...)
		s.rules = append(s.rules, rule{target: target, dependsOn: deps, check: check})
	}
}

// Schema is the ordered validation/cast contract of one entity form.
type Schema struct {
	id     field.Descriptor
	fields []field.Descriptor
	index  map[string]field.Descriptor
	rules  []rule
}

// New composes a schema from the identifier field and the ordered value
// fields. It fails when two descriptors share a name or a rule targets an
// unknown field.
func New(id field.Descriptor, fields []field.Descriptor, options ...Option) (*Schema, error) {
	if id == nil {
		return nil, errors.New("formschema: identifier field is required")
	}
	s := &Schema{
		id:     id,
		fields: slices.Clone(fields),
		index:  make(map[string]field.Descriptor, len(fields)+1),
	}

	for _, desc := range append([]field.Descriptor{id}, fields...) {
		if desc == nil {
			return nil, errors.New("formschema: nil field descriptor")
		}
		name := strings.TrimSpace(desc.Name())
		if name == "" {
			return nil, errors.New("formschema: field name is required")
		}
		if _, exists := s.index[name]; exists {
			return nil, fmt.Errorf("formschema: duplicate field %q", name)
		}
		s.index[name] = desc
	}

	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	for _, r := range s.rules {
		for _, dep := range r.dependsOn {
			if _, ok := s.index[dep]; !ok {
				return nil, fmt.Errorf("formschema: rule references unknown field %q", dep)
			}
		}
	}
	return s, nil
}

// MustNew mirrors New but panics on error. Entity packages use it to build
// their schema at init time.
func MustNew(id field.Descriptor, fields []field.Descriptor, options ...Option) *Schema {
	s, err := New(id, fields, options...)
	if err != nil {
		panic(err)
	}
	return s
}

// ID returns the identifier descriptor.
func (s *Schema) ID() field.Descriptor {
	return s.id
}

// Fields returns the value descriptors in render order.
func (s *Schema) Fields() []field.Descriptor {
	return slices.Clone(s.fields)
}

// Field looks up a descriptor (identifier included) by name.
func (s *Schema) Field(name string) (field.Descriptor, bool) {
	desc, ok := s.index[name]
	return desc, ok
}

// Names returns the value field names in render order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.fields))
	for _, desc := range s.fields {
		names = append(names, desc.Name())
	}
	return names
}

// InitialValues builds the form state for record. Fields missing from the
// record take the descriptor's empty value; the identifier is only included
// when the record carries one. The record is never mutated.
func (s *Schema) InitialValues(record map[string]any) map[string]any {
	out := make(map[string]any, len(s.fields)+1)
	if id, ok := record[s.id.Name()]; ok && !field.IsBlank(id) {
		out[s.id.Name()] = id
	}
	for _, desc := range s.fields {
		if value, ok := record[desc.Name()]; ok && value != nil {
			out[desc.Name()] = cloneValue(value)
			continue
		}
		out[desc.Name()] = desc.Empty()
	}
	return out
}

// Validate returns the messages for a single field given the full set of
// current values. It is cheap enough to run on every keystroke and is the
// contract renderers use for inline errors.
func (s *Schema) Validate(name string, values map[string]any) []string {
	desc, ok := s.index[name]
	if !ok {
		return nil
	}
	if messages := desc.Validate(values[name]); len(messages) > 0 {
		return messages
	}
	var out []string
	for _, r := range s.rules {
		if r.target != name || !s.dependenciesValid(r, values) {
			continue
		}
		if msg := r.check(values); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}

// ValidateAll runs Validate for every field, identifier included, returning
// only fields with messages.
func (s *Schema) ValidateAll(values map[string]any) map[string][]string {
	out := make(map[string][]string)
	if _, ok := values[s.id.Name()]; ok {
		if messages := s.Validate(s.id.Name(), values); len(messages) > 0 {
			out[s.id.Name()] = messages
		}
	}
	for _, desc := range s.fields {
		if messages := s.Validate(desc.Name(), values); len(messages) > 0 {
			out[desc.Name()] = messages
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Cast validates raw against every field and rule, collecting all failures
// into a *ValidationError. On success it returns the canonical payload.
// Unknown keys in raw are dropped.
func (s *Schema) Cast(raw map[string]any) (map[string]any, error) {
	if errs := s.ValidateAll(raw); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	out := make(map[string]any, len(s.fields)+1)
	if value, ok := raw[s.id.Name()]; ok && !field.IsBlank(value) {
		id, err := s.id.Cast(value)
		if err != nil {
			return nil, fmt.Errorf("formschema: %w", err)
		}
		out[s.id.Name()] = id
	}
	for _, desc := range s.fields {
		value, err := desc.Cast(raw[desc.Name()])
		if err != nil {
			return nil, fmt.Errorf("formschema: %w", err)
		}
		out[desc.Name()] = value
	}
	return out, nil
}

// Split separates the identifier from the data payload of cast values. The
// input map is not modified.
func (s *Schema) Split(values map[string]any) (string, map[string]any) {
	data := maps.Clone(values)
	if data == nil {
		data = make(map[string]any)
	}
	raw, ok := data[s.id.Name()]
	delete(data, s.id.Name())
	if !ok || raw == nil {
		return "", data
	}
	id, _ := raw.(string)
	return id, data
}

func (s *Schema) dependenciesValid(r rule, values map[string]any) bool {
	for _, dep := range r.dependsOn {
		desc := s.index[dep]
		if field.IsBlank(values[dep]) || len(desc.Validate(values[dep])) > 0 {
			return false
		}
	}
	return true
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case []string:
		return slices.Clone(v)
	case []field.FileRef:
		return slices.Clone(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
