package components

import (
	"bytes"
	"fmt"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/render"
)

const templatePrefix = "templates/components/"

// Script names served from the renderer's asset bundle.
const (
	AutocompleteScript = "autocomplete.js"
	UploadScript       = "upload.js"
)

// NewDefaultRegistry returns a registry with a template per item component.
// assetsPath prefixes script URLs.
func NewDefaultRegistry(assetsPath string) *Registry {
	registry := New()

	for _, name := range []string{
		field.ComponentView,
		field.ComponentInput,
		field.ComponentTextarea,
		field.ComponentSelect,
		field.ComponentDatePicker,
	} {
		registry.MustRegister(name, Descriptor{Renderer: TemplateRenderer(templatePrefix + name + ".tpl")})
	}

	autocomplete := []Script{{Src: assetsPath + "/" + AutocompleteScript, Defer: true}}
	registry.MustRegister(field.ComponentAutocomplete, Descriptor{
		Renderer: TemplateRenderer(templatePrefix + "autocomplete.tpl"),
		Scripts:  autocomplete,
	})
	registry.MustRegister(field.ComponentMultiSelect, Descriptor{
		Renderer: TemplateRenderer(templatePrefix + "autocomplete.tpl"),
		Scripts:  autocomplete,
	})

	upload := []Script{{Src: assetsPath + "/" + UploadScript, Defer: true}}
	registry.MustRegister(field.ComponentFiles, Descriptor{
		Renderer: TemplateRenderer(templatePrefix + "files.tpl"),
		Scripts:  upload,
	})
	registry.MustRegister(field.ComponentImages, Descriptor{
		Renderer: TemplateRenderer(templatePrefix + "files.tpl"),
		Scripts:  upload,
	})

	return registry
}

// TemplateRenderer renders an item through templateName with "field" and
// "control" in context.
func TemplateRenderer(templateName string) Renderer {
	return func(buf *bytes.Buffer, item render.FieldView, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}
		rendered, err := data.Template.RenderTemplate(templateName, map[string]any{
			"field":   item,
			"control": data.Control,
		})
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", templateName, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}
