// Package entities declares the form schemas of the boarding admin.
package entities

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/formschema"
	"github.com/goliatone/go-boarding/pkg/theme"
)

// Entity names.
const (
	Booking  = "booking"
	Pet      = "pet"
	Settings = "settings"
	User     = "user"
)

const mebibyte = 1024 * 1024

var bookingStatuses = []field.Option{
	{ID: "booked", Label: "Booked"},
	{ID: "progress", Label: "In Progress"},
	{ID: "cancelled", Label: "Cancelled"},
	{ID: "completed", Label: "Completed"},
}

var petTypes = []field.Option{
	{ID: "cat", Label: "Cat"},
	{ID: "dog", Label: "Dog"},
}

var petSizes = []field.Option{
	{ID: "small", Label: "Small"},
	{ID: "medium", Label: "Medium"},
	{ID: "large", Label: "Large"},
}

// BookingSchema returns the booking form schema. Departure must come after
// arrival.
func BookingSchema() *formschema.Schema {
	return formschema.MustNew(
		field.ID{Base: field.Base{FieldName: "id", FieldLabel: "ID"}},
		[]field.Descriptor{
			field.Relation{Base: field.Base{FieldName: "owner", FieldLabel: "Owner", IsRequired: true}, Entity: User},
			field.Relation{Base: field.Base{FieldName: "pet", FieldLabel: "Pet", IsRequired: true}, Entity: Pet},
			field.DateTime{Base: field.Base{FieldName: "arrival", FieldLabel: "Arrival", IsRequired: true}, TimeInput: true},
			field.DateTime{Base: field.Base{FieldName: "departure", FieldLabel: "Departure", IsRequired: true}, TimeInput: true},
			field.Text{Base: field.Base{FieldName: "clientNotes", FieldLabel: "Client Notes"}, MaxLength: 20000},
			field.Text{Base: field.Base{FieldName: "employeeNotes", FieldLabel: "Employee Notes"}, MaxLength: 20000},
			field.Files{
				Base:     field.Base{FieldName: "photos", FieldLabel: "Photos"},
				Path:     "booking/photos",
				MaxBytes: 2 * mebibyte,
				MaxFiles: 3,
				Images:   true,
			},
			field.Enum{Base: field.Base{FieldName: "status", FieldLabel: "Status", IsRequired: true}, Options: bookingStatuses},
			field.Text{Base: field.Base{FieldName: "cancellationNotes", FieldLabel: "Cancellation Notes"}, MaxLength: 20000},
			field.Decimal{Base: field.Base{FieldName: "fee", FieldLabel: "Fee", Size: "small"}, Min: field.AtLeast(0), Scale: 2},
			field.Files{
				Base:     field.Base{FieldName: "receipt", FieldLabel: "Receipt"},
				Path:     "booking/receipt",
				MaxBytes: 2 * mebibyte,
				MaxFiles: 1,
				Formats:  []string{"pdf", "png", "jpg", "jpeg"},
			},
		},
		formschema.WithRule("departure", departureAfterArrival, "arrival"),
	)
}

func departureAfterArrival(values map[string]any) string {
	arrival, err := field.ParseTime(values["arrival"])
	if err != nil {
		return ""
	}
	departure, err := field.ParseTime(values["departure"])
	if err != nil {
		return ""
	}
	if !departure.After(arrival) {
		return "Departure must be after arrival"
	}
	return ""
}

// PetSchema returns the pet form schema.
func PetSchema() *formschema.Schema {
	return formschema.MustNew(
		field.ID{Base: field.Base{FieldName: "id", FieldLabel: "ID"}},
		[]field.Descriptor{
			field.Relation{Base: field.Base{FieldName: "owner", FieldLabel: "Owner", IsRequired: true}, Entity: User},
			field.String{Base: field.Base{FieldName: "name", FieldLabel: "Name", IsRequired: true}, MaxLength: 255},
			field.Enum{Base: field.Base{FieldName: "type", FieldLabel: "Type", IsRequired: true}, Options: petTypes},
			field.String{Base: field.Base{FieldName: "breed", FieldLabel: "Breed", IsRequired: true}, MaxLength: 255},
			field.Enum{Base: field.Base{FieldName: "size", FieldLabel: "Size", IsRequired: true}, Options: petSizes},
			field.Relations{Base: field.Base{FieldName: "bookings", FieldLabel: "Bookings"}, Entity: Booking},
		},
	)
}

// SettingsSchema returns the settings form schema. Settings have no
// identifier of their own.
func SettingsSchema(themeIDs ...string) *formschema.Schema {
	if len(themeIDs) == 0 {
		themeIDs = theme.DefaultThemes
	}
	return formschema.MustNew(
		field.ID{Base: field.Base{FieldName: "id"}},
		[]field.Descriptor{
			field.Enum{Base: field.Base{FieldName: "theme", FieldLabel: "Theme", IsRequired: true}, Options: ThemeOptions(themeIDs)},
			field.Decimal{Base: field.Base{FieldName: "dailyFee", FieldLabel: "Daily Fee", IsRequired: true}, Min: field.AtLeast(0), Scale: 2},
			field.Integer{Base: field.Base{FieldName: "capacity", FieldLabel: "Capacity", IsRequired: true}, Min: field.AtLeast(0)},
		},
	)
}

// ThemeOptions labels theme ids for the settings select ("geek-blue" reads
// "Geek Blue").
func ThemeOptions(ids []string) []field.Option {
	caser := cases.Title(language.English)
	out := make([]field.Option, 0, len(ids))
	for _, id := range ids {
		out = append(out, field.Option{ID: id, Label: caser.String(strings.ReplaceAll(id, "-", " "))})
	}
	return out
}

// Registry resolves schemas by entity name.
type Registry struct {
	schemas map[string]*formschema.Schema
}

// NewRegistry builds the registry of every editable entity.
func NewRegistry(themeIDs ...string) *Registry {
	return &Registry{schemas: map[string]*formschema.Schema{
		Booking:  BookingSchema(),
		Pet:      PetSchema(),
		Settings: SettingsSchema(themeIDs...),
	}}
}

// Schema returns the schema of entity.
func (r *Registry) Schema(entity string) (*formschema.Schema, error) {
	schema, ok := r.schemas[entity]
	if !ok {
		return nil, fmt.Errorf("entities: unknown entity %q", entity)
	}
	return schema, nil
}

// Names returns the registered entity names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Schemas returns a copy of the entity to schema map.
func (r *Registry) Schemas() map[string]*formschema.Schema {
	out := make(map[string]*formschema.Schema, len(r.schemas))
	for name, schema := range r.schemas {
		out[name] = schema
	}
	return out
}
