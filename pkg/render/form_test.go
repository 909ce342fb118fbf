package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/formschema"
	"github.com/goliatone/go-boarding/pkg/formstate"
	"github.com/goliatone/go-boarding/pkg/render"
)

func testSchema(t *testing.T) *formschema.Schema {
	t.Helper()
	schema, err := formschema.New(
		field.ID{Base: field.Base{FieldName: "id", FieldLabel: "ID"}},
		[]field.Descriptor{
			field.String{Base: field.Base{FieldName: "name", FieldLabel: "Name", IsRequired: true}},
			field.DateTime{Base: field.Base{FieldName: "arrival", FieldLabel: "Arrival"}, TimeInput: true},
			field.Relations{Base: field.Base{FieldName: "bookings", FieldLabel: "Bookings"}, Entity: "booking"},
			field.Files{Base: field.Base{FieldName: "photos", FieldLabel: "Photos"}, Images: true},
		},
	)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return schema
}

func TestBuildForm_NewRecordHasNoIdentifierItem(t *testing.T) {
	schema := testSchema(t)
	state := formstate.New(schema, schema.InitialValues(nil))

	form := render.BuildForm("pet", schema, state, render.PhaseReady)

	if form.ID != nil || form.Editing {
		t.Fatalf("expected no identifier item for a new record, got %+v", form.ID)
	}
	names := make([]string, 0, len(form.Fields))
	for _, view := range form.Fields {
		names = append(names, view.Name)
	}
	if diff := cmp.Diff([]string{"name", "arrival", "bookings", "photos"}, names); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	if form.Fields[0].Invalid {
		t.Fatalf("untouched field must not render as invalid")
	}
}

func TestBuildForm_EditingShowsValuesAndTouchedErrors(t *testing.T) {
	schema := testSchema(t)
	state := formstate.New(schema, schema.InitialValues(map[string]any{
		"id":       "p1",
		"name":     "Rex",
		"arrival":  "2024-03-01T10:30:00Z",
		"bookings": []any{map[string]any{"id": "b1", "label": "March stay"}, "b2"},
		"photos":   []field.FileRef{{ID: "f1", Name: "rex.png"}},
	}))
	if err := state.Set("name", ""); err != nil {
		t.Fatalf("set: %v", err)
	}

	form := render.BuildForm("pet", schema, state, render.PhaseSubmitting)

	if form.ID == nil || form.ID.Display != "p1" || form.ID.Component != field.ComponentView {
		t.Fatalf("expected read-only identifier item, got %+v", form.ID)
	}
	if !form.Submitting() {
		t.Fatalf("expected submitting phase")
	}
	if got := form.Fields[0]; !got.Invalid || got.Errors[0] != "Name is required" {
		t.Fatalf("expected touched required error, got %+v", got)
	}
	if got := form.Fields[1].Display; got != "2024-03-01T10:30" {
		t.Fatalf("unexpected datetime display %q", got)
	}
	wantSelected := []field.Option{{ID: "b1", Label: "March stay"}, {ID: "b2", Label: "b2"}}
	if diff := cmp.Diff(wantSelected, form.Fields[2].Selected); diff != "" {
		t.Fatalf("selected mismatch (-want +got):\n%s", diff)
	}
	if len(form.Fields[3].Files) != 1 || form.Fields[3].Files[0].ID != "f1" {
		t.Fatalf("expected file refs, got %+v", form.Fields[3].Files)
	}
}
