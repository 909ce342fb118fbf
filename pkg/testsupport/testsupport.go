// Package testsupport holds record fixtures shared by package tests. The
// fixtures are shaped like GraphQL find results.
package testsupport

import (
	"embed"
	"encoding/json"
	"fmt"
	"testing"
)

//go:embed fixtures/*.json
var fixtures embed.FS

// RawRecord returns the JSON of the named fixture ("pet", "booking",
// "settings").
func RawRecord(name string) ([]byte, error) {
	data, err := fixtures.ReadFile("fixtures/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("testsupport: read fixture %s: %w", name, err)
	}
	return data, nil
}

// LoadRecord decodes the named fixture.
func LoadRecord(name string) (map[string]any, error) {
	data, err := RawRecord(name)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("testsupport: decode fixture %s: %w", name, err)
	}
	return out, nil
}

// MustLoadRecord decodes the named fixture, failing the test on error.
func MustLoadRecord(t testing.TB, name string) map[string]any {
	t.Helper()
	record, err := LoadRecord(name)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	return record
}

// MustRawRecord returns the JSON of the named fixture, failing the test on
// error. Fake GraphQL clients answer with it.
func MustRawRecord(t testing.TB, name string) string {
	t.Helper()
	data, err := RawRecord(name)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	return string(data)
}
