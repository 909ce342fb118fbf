// Package html renders forms as server side HTML. Items are rendered by
// component templates from a components.Registry and wrapped by a form
// template with hidden inputs and actions. RenderPage adds the page shell
// with the theme stylesheet link and its websocket swap script.
package html

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	gotheme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-boarding/components/autocomplete"
	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/render"
	rendertemplate "github.com/goliatone/go-boarding/pkg/render/template"
	"github.com/goliatone/go-boarding/pkg/render/template/gotemplate"
	"github.com/goliatone/go-boarding/pkg/renderers/html/components"
	"github.com/goliatone/go-boarding/pkg/theme"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateDir      string
	templateRenderer rendertemplate.TemplateRenderer
	registry         *components.Registry
	assetsPath       string
	creatable        map[string]bool
}

// WithTemplatesFS replaces the embedded template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk first, falling
// back to the bundle for files it does not contain.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.templateDir = strings.TrimSpace(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithComponents replaces the default component registry.
func WithComponents(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.registry = registry
		}
	}
}

// WithAssetsPath sets the URL prefix the asset bundle is served from.
func WithAssetsPath(path string) Option {
	return func(cfg *config) {
		cfg.assetsPath = strings.TrimRight(strings.TrimSpace(path), "/")
	}
}

// WithCreatable lists the entities autocomplete items may link a blank form
// for.
func WithCreatable(entities ...string) Option {
	return func(cfg *config) {
		for _, entity := range entities {
			cfg.creatable[entity] = true
		}
	}
}

type Renderer struct {
	templates  rendertemplate.TemplateRenderer
	registry   *components.Registry
	assetsPath string
	creatable  map[string]bool
}

// New constructs the HTML renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS: TemplatesFS(),
		assetsPath: "/assets",
		creatable:  make(map[string]bool),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	templates := cfg.templateRenderer
	if templates == nil {
		engineOpts := []gotemplate.Option{gotemplate.WithName("html"), gotemplate.WithFS(cfg.templateFS)}
		if cfg.templateDir != "" {
			engineOpts = append(engineOpts, gotemplate.WithBaseDir(cfg.templateDir))
		}
		engine, err := gotemplate.New(engineOpts...)
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		templates = engine
	}
	registry := cfg.registry
	if registry == nil {
		registry = components.NewDefaultRegistry(cfg.assetsPath)
	}

	return &Renderer{
		templates:  templates,
		registry:   registry,
		assetsPath: cfg.assetsPath,
		creatable:  cfg.creatable,
	}, nil
}

func (r *Renderer) Name() string {
	return "html"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render returns the form fragment: the loading view while the record is
// loading, the form element otherwise.
func (r *Renderer) Render(_ context.Context, form render.Form, opts render.RenderOptions) ([]byte, error) {
	out, _, err := r.render(form, opts)
	return out, err
}

func (r *Renderer) render(form render.Form, opts render.RenderOptions) ([]byte, []string, error) {
	if r.templates == nil {
		return nil, nil, fmt.Errorf("html renderer: template renderer is nil")
	}
	render.LocalizeForm(&form, opts)

	if form.Phase == render.PhaseLoadingRecord {
		out, err := r.templates.RenderTemplate("templates/loading.tpl", map[string]any{"form": form})
		if err != nil {
			return nil, nil, fmt.Errorf("html renderer: render loading view: %w", err)
		}
		return []byte(out), nil, nil
	}

	views := form.Fields
	if form.ID != nil {
		views = append([]render.FieldView{*form.ID}, views...)
	}

	items := make([]string, 0, len(views))
	used := make([]string, 0, len(views))
	focused := false
	for _, view := range views {
		descriptor, ok := r.registry.Descriptor(view.Component)
		if !ok {
			return nil, nil, fmt.Errorf("html renderer: no component %q for item %q", view.Component, view.Name)
		}
		control := r.control(form, view, opts)
		if !focused && view.Component != field.ComponentView {
			control.Autofocus = true
			focused = true
		}

		var buf bytes.Buffer
		if err := descriptor.Renderer(&buf, view, components.ComponentData{Template: r.templates, Control: control}); err != nil {
			return nil, nil, fmt.Errorf("html renderer: item %q: %w", view.Name, err)
		}
		items = append(items, buf.String())
		used = append(used, view.Component)
	}

	method, override := render.FormMethod(opts.Method)
	var extra []render.HiddenField
	if override != nil {
		extra = append(extra, *override)
	}
	hidden := render.SortedHiddenFields(render.MergeHiddenFields(opts.Hidden, extra...))

	out, err := r.templates.RenderTemplate("templates/form.tpl", map[string]any{
		"form":          form,
		"items":         items,
		"method":        method,
		"action":        opts.Action,
		"hidden_fields": hidden,
		"submitting":    form.Submitting(),
		"cancel_url":    opts.CancelURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("html renderer: render form: %w", err)
	}
	return []byte(out), used, nil
}

func (r *Renderer) control(form render.Form, view render.FieldView, opts render.RenderOptions) components.Control {
	control := components.Control{
		ID:         form.Entity + "-" + view.Name,
		Class:      "input",
		ShowErrors: view.Invalid,
		Disabled:   form.Submitting(),
	}
	if view.Size != "" {
		control.Class += " input-" + view.Size
	}
	if view.Invalid {
		control.Class += " is-invalid"
	}
	if view.Min != nil {
		control.Min = strconv.FormatFloat(*view.Min, 'f', -1, 64)
	}
	if view.Max != nil {
		control.Max = strconv.FormatFloat(*view.Max, 'f', -1, 64)
	}

	switch view.Kind {
	case field.KindDecimal:
		control.Step = "any"
	case field.KindInteger:
		control.Step = "1"
	case field.KindRelation, field.KindRelations:
		control.SearchURL = autocomplete.URL(opts.BasePath, view.Entity)
		if opts.AutocompleteURL != "" {
			control.SearchURL = strings.TrimRight(opts.AutocompleteURL, "/") + "/" + view.Entity
		}
		if !opts.Modal && r.creatable[view.Entity] {
			control.CreateURL = strings.TrimRight(opts.BasePath, "/") + "/" + view.Entity + "/new"
		}
	case field.KindFiles, field.KindImages:
		control.UploadURL = strings.TrimRight(opts.BasePath, "/") + "/uploads/" + view.Name
		if opts.UploadURL != "" {
			control.UploadURL = strings.TrimRight(opts.UploadURL, "/") + "/" + view.Name
		}
		control.Accept = accept(view)
		control.Files = files(view)
		control.CanAdd = view.MaxFiles == 0 || len(view.Files) < view.MaxFiles
	}
	return control
}

func accept(view render.FieldView) string {
	if len(view.Formats) == 0 {
		if view.Kind == field.KindImages {
			return "image/*"
		}
		return ""
	}
	exts := make([]string, 0, len(view.Formats))
	for _, format := range view.Formats {
		exts = append(exts, "."+strings.TrimPrefix(strings.ToLower(format), "."))
	}
	return strings.Join(exts, ",")
}

func files(view render.FieldView) []components.File {
	out := make([]components.File, 0, len(view.Files))
	for _, ref := range view.Files {
		value, err := json.Marshal(ref)
		if err != nil {
			continue
		}
		url := ref.PublicURL
		if url == "" {
			url = ref.PrivateURL
		}
		out = append(out, components.File{
			ID:    ref.ID,
			Name:  ref.Name,
			URL:   url,
			Image: view.Kind == field.KindImages,
			Value: string(value),
		})
	}
	return out
}

// Page describes the document around a form.
type Page struct {
	Title  string
	Locale string
	// Links are the head links, including the theme stylesheet link.
	Links []theme.Link
	// ThemeSocket is the websocket path pages subscribe to for theme swaps.
	// Empty disables live swapping.
	ThemeSocket string
}

// themeContext is the page view of the active go-theme selection.
type themeContext struct {
	Name    string `json:"name"`
	Variant string `json:"variant,omitempty"`
	// Icon is the resolved "icon" asset, if the theme ships one.
	Icon string `json:"icon,omitempty"`
}

func buildThemeContext(cfg *gotheme.RendererConfig) themeContext {
	if cfg == nil {
		return themeContext{}
	}
	ctx := themeContext{Name: cfg.Theme, Variant: cfg.Variant}
	if cfg.AssetURL != nil {
		ctx.Icon = cfg.AssetURL("icon")
	}
	return ctx
}

type navItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Href  string `json:"href"`
}

// RenderPage renders the form inside a full HTML document with the assets
// its items need.
func (r *Renderer) RenderPage(_ context.Context, form render.Form, opts render.RenderOptions, page Page) ([]byte, error) {
	content, used, err := r.render(form, opts)
	if err != nil {
		return nil, err
	}

	stylesheets, scripts := r.registry.Assets(used)
	stylesheets = append([]string{r.assetsPath + "/" + StylesheetName}, stylesheets...)
	scripts = append([]components.Script{{Src: r.assetsPath + "/" + FormScriptName, Defer: true}}, scripts...)
	if page.ThemeSocket != "" {
		scripts = append(scripts, components.Script{Src: r.assetsPath + "/" + ThemeScriptName, Defer: true})
	}
	locale := page.Locale
	if locale == "" {
		locale = opts.Locale
	}

	base := strings.TrimRight(opts.BasePath, "/")
	nav := []navItem{
		{Key: "nav.settings", Label: "Settings", Href: base + "/settings"},
		{Key: "nav.newBooking", Label: "New booking", Href: base + "/booking/new"},
		{Key: "nav.newPet", Label: "New pet", Href: base + "/pet/new"},
	}
	// Missing nav keys render empty so the template falls back to Label.
	funcs := render.TemplateI18nFuncs(opts.Translator, render.TemplateI18nConfig{
		OnMissing: func(string, string, []any, error) string { return "" },
	})

	data := map[string]any{
		"nav":          nav,
		"theme":        buildThemeContext(opts.Theme),
		"title":        page.Title,
		"locale":       locale,
		"links":        page.Links,
		"stylesheets":  stylesheets,
		"scripts":      scripts,
		"theme_socket": page.ThemeSocket,
		"content":      string(content),
	}
	for name, fn := range funcs {
		data[name] = fn
	}
	out, err := r.templates.RenderTemplate("templates/page.tpl", data)
	if err != nil {
		return nil, fmt.Errorf("html renderer: render page: %w", err)
	}
	return []byte(out), nil
}

var _ render.Renderer = (*Renderer)(nil)
