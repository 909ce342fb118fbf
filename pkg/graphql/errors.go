package graphql

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated reports a rejected or missing session.
	ErrUnauthenticated = errors.New("graphql: unauthenticated")
	// ErrNotFound reports a null operation result.
	ErrNotFound = errors.New("graphql: not found")
)

// StatusError is returned for non-2xx transport responses.
type StatusError struct {
	Operation string
	Code      int
	Body      string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("graphql: %s: unexpected status %d", e.Operation, e.Code)
	}
	return fmt.Sprintf("graphql: %s: unexpected status %d: %s", e.Operation, e.Code, e.Body)
}

// Error is one entry of a GraphQL errors array.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Errors is the errors array of a response.
type Errors []Error

func (e Errors) Error() string {
	messages := make([]string, 0, len(e))
	for _, item := range e {
		messages = append(messages, item.Message)
	}
	return strings.Join(messages, "; ")
}

func (e Errors) unauthenticated() bool {
	for _, item := range e {
		if code, _ := item.Extensions["code"].(string); strings.EqualFold(code, "UNAUTHENTICATED") {
			return true
		}
	}
	return false
}

// FieldErrors keys messages by field path. Validation errors may name their
// field through extensions.field or extensions.fields; otherwise the response
// path is used and unplaced messages land under the empty key.
func (e Errors) FieldErrors() map[string][]string {
	out := make(map[string][]string)
	for _, item := range e {
		switch {
		case item.Extensions["fields"] != nil:
			fields, _ := item.Extensions["fields"].(map[string]any)
			for name, raw := range fields {
				out[name] = append(out[name], messagesOf(raw, item.Message)...)
			}
		case item.Extensions["field"] != nil:
			name, _ := item.Extensions["field"].(string)
			out[name] = append(out[name], item.Message)
		default:
			out[joinPath(item.Path)] = append(out[joinPath(item.Path)], item.Message)
		}
	}
	return out
}

func messagesOf(raw any, fallback string) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{fallback}
}

func joinPath(path []any) string {
	parts := make([]string, 0, len(path))
	for _, segment := range path {
		parts = append(parts, fmt.Sprint(segment))
	}
	return strings.Join(parts, ".")
}
