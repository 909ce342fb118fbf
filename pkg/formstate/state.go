package formstate

import (
	"fmt"
	"slices"
	"sync"

	"github.com/goliatone/go-boarding/pkg/field"
)

// Validator answers the per-field validation question for the current
// values. *formschema.Schema satisfies it.
type Validator interface {
	Validate(name string, values map[string]any) []string
	Field(name string) (field.Descriptor, bool)
}

// State tracks the values, touched flags and errors of one rendered form.
// Upload goroutines write into it, so every accessor is safe for concurrent
// use.
type State struct {
	mu        sync.RWMutex
	validator Validator
	initial   map[string]any
	values    map[string]any
	touched   map[string]bool
	errors    map[string][]string
	// server holds errors reported by a failed save. They are cleared per
	// field on the next write.
	server map[string][]string
	global []string
}

// New seeds the state with initial values. validator may be nil, in which
// case only server errors are reported.
func New(validator Validator, initial map[string]any) *State {
	return &State{
		validator: validator,
		initial:   cloneValues(initial),
		values:    cloneValues(initial),
		touched:   make(map[string]bool),
		errors:    make(map[string][]string),
		server:    make(map[string][]string),
	}
}

// Values returns a copy of the current values.
func (s *State) Values() map[string]any {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneValues(s.values)
}

// Value reads the current value of name. Missing values fall back to the
// descriptor's empty representation so controlled inputs never read nil
// where an empty string or list is expected.
func (s *State) Value(name string) any {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if value, ok := s.values[name]; ok && value != nil {
		return value
	}
	return s.emptyFor(name)
}

// Set writes value for name, marks the field touched and refreshes its
// validation messages.
func (s *State) Set(name string, value any) error {
	if s == nil {
		return fmt.Errorf("formstate: state is nil")
	}
	if name == "" {
		return fmt.Errorf("formstate: field name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
	s.touched[name] = true
	delete(s.server, name)
	s.revalidateLocked(name)
	return nil
}

// Update applies fn to the current value of name under the state lock.
// Upload completions use it to append references without racing other
// writers of the same field.
func (s *State) Update(name string, fn func(current any) any) error {
	if s == nil {
		return fmt.Errorf("formstate: state is nil")
	}
	if fn == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.values[name]
	if !ok || current == nil {
		current = s.emptyFor(name)
	}
	s.values[name] = fn(current)
	s.touched[name] = true
	delete(s.server, name)
	s.revalidateLocked(name)
	return nil
}

// Touch marks name as touched without changing its value (blur).
func (s *State) Touch(name string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[name] = true
	s.revalidateLocked(name)
}

// TouchAll marks every known field as touched, as a submit attempt does.
func (s *State) TouchAll(names []string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.touched[name] = true
		s.revalidateLocked(name)
	}
}

// Touched reports whether name was edited or blurred.
func (s *State) Touched(name string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touched[name]
}

// ErrorsFor returns the messages to display for name: nothing until the
// field is touched, then validation messages followed by server messages.
func (s *State) ErrorsFor(name string) []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	if s.touched[name] {
		out = append(out, s.errors[name]...)
	}
	return append(out, s.server[name]...)
}

// Errors returns every displayable message keyed by field name.
func (s *State) Errors() map[string][]string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string)
	for name, messages := range s.errors {
		if s.touched[name] && len(messages) > 0 {
			out[name] = slices.Clone(messages)
		}
	}
	for name, messages := range s.server {
		out[name] = append(out[name], messages...)
	}
	return out
}

// SetServerErrors records errors returned by a failed save. Entered values
// are left untouched.
func (s *State) SetServerErrors(fields map[string][]string, global []string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = make(map[string][]string, len(fields))
	for name, messages := range fields {
		s.server[name] = slices.Clone(messages)
	}
	s.global = slices.Clone(global)
}

// SetFieldErrors replaces the out-of-band messages of a single field, as
// upload failures do. Other fields are not affected. Passing no messages
// clears them.
func (s *State) SetFieldErrors(name string, messages []string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(messages) == 0 {
		delete(s.server, name)
		return
	}
	s.server[name] = slices.Clone(messages)
}

// GlobalErrors returns the messages not bound to a field.
func (s *State) GlobalErrors() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.global)
}

// Reset restores the initial values and clears touched flags and errors.
func (s *State) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = cloneValues(s.initial)
	s.touched = make(map[string]bool)
	s.errors = make(map[string][]string)
	s.server = make(map[string][]string)
	s.global = nil
}

// Dirty reports whether any field was edited or touched since the last reset.
func (s *State) Dirty() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.touched) > 0
}

// revalidateLocked refreshes name and every other touched field, since
// cross-field rules make one field's messages depend on another's value.
func (s *State) revalidateLocked(name string) {
	if s.validator == nil {
		return
	}
	s.validateLocked(name)
	for other := range s.touched {
		if other != name {
			s.validateLocked(other)
		}
	}
}

func (s *State) validateLocked(name string) {
	messages := s.validator.Validate(name, s.values)
	if len(messages) == 0 {
		delete(s.errors, name)
		return
	}
	s.errors[name] = messages
}

func (s *State) emptyFor(name string) any {
	if s.validator == nil {
		return ""
	}
	desc, ok := s.validator.Field(name)
	if !ok {
		return ""
	}
	if empty := desc.Empty(); empty != nil {
		return empty
	}
	return ""
}

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return slices.Clone(typed)
	case []field.FileRef:
		return slices.Clone(typed)
	default:
		return typed
	}
}
