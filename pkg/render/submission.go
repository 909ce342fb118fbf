package render

import (
	"fmt"
	"sort"
	"strings"
)

// MethodOverrideField is the hidden input carrying verbs HTML forms cannot
// submit.
const MethodOverrideField = "_method"

// HiddenField is a hidden input rendered next to the visible items.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// CSRFToken builds the hidden field the server checks on form posts.
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// FormMethod returns the method to put on the form element and, for PUT,
// PATCH and DELETE, the override field to send along.
func FormMethod(method string) (string, *HiddenField) {
	switch upper := strings.ToUpper(strings.TrimSpace(method)); upper {
	case "", "POST":
		return "post", nil
	case "GET":
		return "get", nil
	default:
		override := Hidden(MethodOverrideField, upper)
		return "post", &override
	}
}

// MergeHiddenFields returns a copy of base with fields applied. Empty names
// are ignored; later fields win on name collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		if name := strings.TrimSpace(field.Name); name != "" {
			out[name] = field.Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields sorts hidden fields by name for deterministic output.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	result := make([]HiddenField, 0, len(names))
	for _, name := range names {
		result = append(result, HiddenField{Name: strings.TrimSpace(name), Value: fields[name]})
	}
	return result
}
