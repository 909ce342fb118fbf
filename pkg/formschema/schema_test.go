package formschema_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/formschema"
)

func staySchema(t *testing.T) *formschema.Schema {
	t.Helper()
	schema, err := formschema.New(
		field.ID{Base: field.Base{FieldName: "id"}},
		[]field.Descriptor{
			field.Relation{Base: field.Base{FieldName: "pet", FieldLabel: "Pet", IsRequired: true}, Entity: "pet"},
			field.DateTime{Base: field.Base{FieldName: "arrival", FieldLabel: "Arrival", IsRequired: true}, TimeInput: true},
			field.DateTime{Base: field.Base{FieldName: "departure", FieldLabel: "Departure", IsRequired: true}, TimeInput: true},
			field.Text{Base: field.Base{FieldName: "notes", FieldLabel: "Notes"}},
			field.Decimal{Base: field.Base{FieldName: "fee", FieldLabel: "Fee"}, Min: field.AtLeast(0), Scale: 2},
			field.Relations{Base: field.Base{FieldName: "tags", FieldLabel: "Tags"}, Entity: "tag"},
			field.Files{Base: field.Base{FieldName: "photos", FieldLabel: "Photos"}, Images: true, MaxFiles: 3},
		},
		formschema.WithRule("departure", func(values map[string]any) string {
			arrival, _ := field.ParseTime(values["arrival"])
			departure, _ := field.ParseTime(values["departure"])
			if !departure.After(arrival) {
				return "Departure must be after arrival"
			}
			return ""
		}, "arrival"),
	)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return schema
}

func TestNew_RejectsDuplicateNames(t *testing.T) {
	_, err := formschema.New(
		field.ID{Base: field.Base{FieldName: "id"}},
		[]field.Descriptor{
			field.String{Base: field.Base{FieldName: "name"}},
			field.Text{Base: field.Base{FieldName: "name"}},
		},
	)
	if err == nil || !strings.Contains(err.Error(), `duplicate field "name"`) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	_, err = formschema.New(
		field.ID{Base: field.Base{FieldName: "id"}},
		[]field.Descriptor{field.String{Base: field.Base{FieldName: "id"}}},
	)
	if err == nil {
		t.Fatalf("expected identifier collision to fail")
	}
}

func TestNew_RejectsRuleOnUnknownField(t *testing.T) {
	_, err := formschema.New(
		field.ID{Base: field.Base{FieldName: "id"}},
		nil,
		formschema.WithRule("missing", func(map[string]any) string { return "" }),
	)
	if err == nil {
		t.Fatalf("expected unknown rule target to fail")
	}
}

func TestInitialValues_DefaultsAndIdentifier(t *testing.T) {
	schema := staySchema(t)

	fresh := schema.InitialValues(nil)
	want := map[string]any{
		"pet":       nil,
		"arrival":   nil,
		"departure": nil,
		"notes":     "",
		"fee":       nil,
		"tags":      []string{},
		"photos":    []field.FileRef{},
	}
	if diff := cmp.Diff(want, fresh); diff != "" {
		t.Fatalf("fresh values mismatch (-want +got):\n%s", diff)
	}

	record := map[string]any{"id": "b1", "notes": "Shy", "tags": []string{"t1"}}
	editing := schema.InitialValues(record)
	if editing["id"] != "b1" || editing["notes"] != "Shy" {
		t.Fatalf("expected record values, got %v", editing)
	}

	editing["tags"].([]string)[0] = "changed"
	if record["tags"].([]string)[0] != "t1" {
		t.Fatalf("record was mutated through initial values")
	}
}

func TestCast_CollectsKeyedErrors(t *testing.T) {
	schema := staySchema(t)

	_, err := schema.Cast(map[string]any{"fee": "-3"})
	verr, ok := formschema.AsValidationError(err)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}

	for _, name := range []string{"pet", "arrival", "departure", "fee"} {
		if len(verr.For(name)) == 0 {
			t.Fatalf("expected error keyed by %q, got %v", name, verr.Fields)
		}
	}
	if diff := cmp.Diff([]string{"Pet is required"}, verr.For("pet")); diff != "" {
		t.Fatalf("pet messages mismatch (-want +got):\n%s", diff)
	}
	if _, exists := verr.Fields[""]; exists {
		t.Fatalf("validation error must not carry unkeyed messages")
	}
	if !errors.As(err, &verr) {
		t.Fatalf("errors.As should unwrap the validation error")
	}
}

func TestCast_CrossFieldRuleKeyedOnDeparture(t *testing.T) {
	schema := staySchema(t)

	_, err := schema.Cast(map[string]any{
		"pet":       "p1",
		"arrival":   "2024-03-05T10:00",
		"departure": "2024-03-01T10:00",
	})
	verr, ok := formschema.AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if diff := cmp.Diff(map[string][]string{"departure": {"Departure must be after arrival"}}, verr.Fields); diff != "" {
		t.Fatalf("rule errors mismatch (-want +got):\n%s", diff)
	}

	if got := schema.Validate("departure", map[string]any{"departure": "2024-03-01T10:00"}); len(got) != 0 {
		t.Fatalf("rule must wait for arrival to be valid, got %v", got)
	}
}

func TestCast_IdempotentOnCanonicalValues(t *testing.T) {
	schema := staySchema(t)

	raw := map[string]any{
		"id":        " b1 ",
		"pet":       map[string]any{"id": "p1", "label": "Rex"},
		"arrival":   "2024-03-01T10:00",
		"departure": "2024-03-04T09:30:00+01:00",
		"notes":     "&lt;p&gt;Feeds&lt;/p&gt; twice",
		"fee":       "42.5",
		"tags":      []any{"t1", map[string]any{"id": "t2"}},
		"photos":    []string{`{"id":"f1","name":"rex.png","sizeInBytes":12}`},
		"ignored":   "dropped",
	}

	first, err := schema.Cast(raw)
	if err != nil {
		t.Fatalf("first cast: %v", err)
	}
	want := map[string]any{
		"id":        "b1",
		"pet":       "p1",
		"arrival":   "2024-03-01T10:00:00Z",
		"departure": "2024-03-04T08:30:00Z",
		"notes":     "Feeds twice",
		"fee":       42.5,
		"tags":      []string{"t1", "t2"},
		"photos":    []field.FileRef{{ID: "f1", Name: "rex.png", SizeInBytes: 12}},
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("cast mismatch (-want +got):\n%s", diff)
	}

	second, err := schema.Cast(schema.InitialValues(first))
	if err != nil {
		t.Fatalf("second cast: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cast not idempotent (-first +second):\n%s", diff)
	}
}

func TestSplit_SeparatesIdentifier(t *testing.T) {
	schema := staySchema(t)
	values := map[string]any{"id": "b1", "notes": "x"}

	id, data := schema.Split(values)
	if id != "b1" {
		t.Fatalf("expected id b1, got %q", id)
	}
	if diff := cmp.Diff(map[string]any{"notes": "x"}, data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if _, ok := values["id"]; !ok {
		t.Fatalf("split must not mutate its input")
	}
}
