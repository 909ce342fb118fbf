// Package schemaexport describes form schemas as OpenAPI 3 component
// schemas, one "<Entity>Input" per entity.
package schemaexport

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/formschema"
)

// Document builds an OpenAPI document whose components describe schemas,
// keyed by entity name.
func Document(title, version string, schemas map[string]*formschema.Schema) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
		},
	}
	doc.Components.Schemas[fileRefName] = openapi3.NewSchemaRef("", fileRefSchema())

	entities := make([]string, 0, len(schemas))
	for entity := range schemas {
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	for _, entity := range entities {
		doc.Components.Schemas[ComponentName(entity)] = openapi3.NewSchemaRef("", Schema(schemas[entity]))
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("schemaexport: %w", err)
	}
	return doc, nil
}

// ComponentName returns the component key of entity ("booking" becomes
// "BookingInput").
func ComponentName(entity string) string {
	caser := cases.Title(language.English)
	return strings.ReplaceAll(caser.String(strings.ReplaceAll(entity, "-", " ")), " ", "") + "Input"
}

const fileRefName = "FileReference"

// Schema describes the cast payload of one form schema. The identifier is
// not part of the payload.
func Schema(schema *formschema.Schema) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	for _, desc := range schema.Fields() {
		spec := desc.Describe()
		prop := propertySchema(spec)
		if spec.Label != "" {
			prop.Title = spec.Label
		}
		if spec.Hint != "" {
			prop.Description = spec.Hint
		}
		if spec.Required {
			out.Required = append(out.Required, spec.Name)
		} else if spec.Kind != field.KindFiles && spec.Kind != field.KindImages && spec.Kind != field.KindRelations {
			prop.Nullable = true
		}
		out.WithProperty(spec.Name, prop)
	}
	return out
}

func propertySchema(spec field.Spec) *openapi3.Schema {
	switch spec.Kind {
	case field.KindString, field.KindText:
		s := openapi3.NewStringSchema()
		if spec.MaxLength > 0 {
			s.WithMaxLength(int64(spec.MaxLength))
		}
		return s
	case field.KindEnum:
		values := make([]any, 0, len(spec.Options))
		for _, opt := range spec.Options {
			values = append(values, opt.ID)
		}
		return openapi3.NewStringSchema().WithEnum(values...)
	case field.KindDateTime:
		return openapi3.NewDateTimeSchema()
	case field.KindDecimal:
		return withBounds(openapi3.NewFloat64Schema(), spec)
	case field.KindInteger:
		return withBounds(openapi3.NewInt64Schema(), spec)
	case field.KindRelation:
		s := openapi3.NewStringSchema()
		s.Description = "Id of the related " + spec.Entity
		return s
	case field.KindRelations:
		s := openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
		s.Description = "Ids of the related " + spec.Entity + " records"
		return s
	case field.KindFiles, field.KindImages:
		s := openapi3.NewArraySchema()
		s.Items = openapi3.NewSchemaRef("#/components/schemas/"+fileRefName, fileRefSchema())
		if spec.MaxFiles > 0 {
			s.WithMaxItems(int64(spec.MaxFiles))
		}
		return s
	default:
		return openapi3.NewStringSchema()
	}
}

func withBounds(s *openapi3.Schema, spec field.Spec) *openapi3.Schema {
	if spec.Min != nil {
		s.WithMin(*spec.Min)
	}
	if spec.Max != nil {
		s.WithMax(*spec.Max)
	}
	return s
}

func fileRefSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("sizeInBytes", openapi3.NewInt64Schema()).
		WithProperty("publicUrl", openapi3.NewStringSchema()).
		WithProperty("privateUrl", openapi3.NewStringSchema())
}
