package tui

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/form"
	"github.com/goliatone/go-boarding/pkg/formschema"
	"github.com/goliatone/go-boarding/pkg/formstate"
	"github.com/goliatone/go-boarding/pkg/render"
)

const defaultSearchLimit = 10

// Renderer prints form summaries and fills form containers interactively.
type Renderer struct {
	driver   PromptDriver
	options  OptionSource
	uploader Uploader
	out      io.Writer
	limit    int
	theme    Theme
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer backed by survey prompts unless a driver is
// supplied.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		limit: defaultSearchLimit,
		theme: Theme{InfoPrefix: "", ErrorPrefix: "! "},
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = newSurveyDriver(r.out)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the format produced by Render.
func (r *Renderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

// Render prints a read-only summary of form: one line per item plus any
// displayed errors.
func (r *Renderer) Render(ctx context.Context, f render.Form, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	render.LocalizeForm(&f, opts)

	var b strings.Builder
	if f.Phase == render.PhaseLoadingRecord {
		fmt.Fprintf(&b, "%s...\n", f.Labels.Loading)
		return []byte(b.String()), nil
	}
	if f.ID != nil {
		fmt.Fprintf(&b, "%s: %s\n", displayLabel(f.ID.Spec), f.ID.Display)
	}
	for _, view := range f.Fields {
		fmt.Fprintf(&b, "%s: %s\n", displayLabel(view.Spec), summarize(view))
		for _, msg := range view.Errors {
			fmt.Fprintf(&b, "  %s%s\n", r.theme.ErrorPrefix, msg)
		}
	}
	for _, msg := range f.FormErrors {
		fmt.Fprintf(&b, "%s%s\n", r.theme.ErrorPrefix, msg)
	}
	return []byte(b.String()), nil
}

// Fill prompts for every item of c, then offers to save. Validation and
// server failures send the user back to the failing items; declining to save
// runs the container's cancel hook and returns ErrDiscarded.
func (r *Renderer) Fill(ctx context.Context, c *form.Container) (map[string]any, error) {
	if c.Phase() == render.PhaseLoadingRecord {
		return nil, form.ErrNotReady
	}
	state := c.State()
	view := c.View()
	if view.ID != nil {
		r.info(ctx, fmt.Sprintf("Editing %s %s", view.Entity, view.ID.Display))
	}

	pending := c.Schema().Names()
	for {
		for _, name := range pending {
			if err := r.promptField(ctx, c, state, name); err != nil {
				return nil, err
			}
		}

		save, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Save %s?", view.Entity),
			Default: true,
		})
		if err != nil {
			return nil, err
		}
		if !save {
			c.Cancel()
			return nil, ErrDiscarded
		}

		saved, err := c.Submit(ctx)
		if err == nil {
			r.info(ctx, fmt.Sprintf("Saved %s", view.Entity))
			return saved, nil
		}

		pending = failingFields(c.Schema(), err, state)
		for _, msg := range state.GlobalErrors() {
			r.error(ctx, msg)
		}
		if len(pending) == 0 {
			return nil, err
		}
	}
}

func failingFields(schema *formschema.Schema, err error, state *formstate.State) []string {
	var failing map[string][]string
	if verr, ok := formschema.AsValidationError(err); ok {
		failing = verr.Fields
	} else {
		failing = state.Errors()
	}
	var out []string
	for _, name := range schema.Names() {
		if len(failing[name]) > 0 {
			out = append(out, name)
		}
	}
	return out
}

func (r *Renderer) promptField(ctx context.Context, c *form.Container, state *formstate.State, name string) error {
	for {
		view, ok := fieldView(c.View(), name)
		if !ok {
			return nil
		}
		for _, msg := range view.Errors {
			r.error(ctx, fmt.Sprintf("%s: %s", displayLabel(view.Spec), msg))
		}

		switch view.Component {
		case field.ComponentFiles, field.ComponentImages:
			return r.promptFiles(ctx, c, state, view)
		}

		value, retry, err := r.ask(ctx, view)
		if err != nil {
			return err
		}
		if retry {
			continue
		}
		if err := state.Set(name, value); err != nil {
			return err
		}
		if len(state.ErrorsFor(name)) == 0 {
			return nil
		}
	}
}

// ask prompts for one value. retry asks the caller to prompt again without
// writing anything.
func (r *Renderer) ask(ctx context.Context, view render.FieldView) (any, bool, error) {
	label := displayLabel(view.Spec)
	switch view.Component {
	case field.ComponentTextarea:
		out, err := r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: view.Display, Help: view.Hint})
		return out, false, err

	case field.ComponentSelect:
		return r.askEnum(ctx, view)

	case field.ComponentDatePicker:
		help := "YYYY-MM-DD"
		if view.TimeInput {
			help = "YYYY-MM-DDTHH:MM"
		}
		out, err := r.driver.Input(ctx, InputConfig{Message: label, Default: view.Display, Help: help})
		return strings.TrimSpace(out), false, err

	case field.ComponentAutocomplete:
		return r.askRelation(ctx, view)

	case field.ComponentMultiSelect:
		return r.askRelations(ctx, view)

	default:
		out, err := r.driver.Input(ctx, InputConfig{Message: label, Default: view.Display, Help: view.Hint})
		return out, false, err
	}
}

const noneOption = "(none)"

func (r *Renderer) askEnum(ctx context.Context, view render.FieldView) (any, bool, error) {
	labels := make([]string, 0, len(view.Options)+1)
	ids := make([]string, 0, len(view.Options)+1)
	if !view.Required {
		labels = append(labels, noneOption)
		ids = append(ids, "")
	}
	for _, opt := range view.Options {
		labels = append(labels, opt.Label)
		ids = append(ids, opt.ID)
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      displayLabel(view.Spec),
		Options:      labels,
		DefaultIndex: slices.Index(ids, view.Display),
		Help:         view.Hint,
	})
	if err != nil {
		return nil, false, err
	}
	if idx < 0 || idx >= len(ids) {
		return nil, true, nil
	}
	if ids[idx] == "" {
		return nil, false, nil
	}
	return ids[idx], false, nil
}

func (r *Renderer) askRelation(ctx context.Context, view render.FieldView) (any, bool, error) {
	label := displayLabel(view.Spec)
	query, err := r.driver.Input(ctx, InputConfig{
		Message: fmt.Sprintf("Search %s", label),
		Help:    "leave blank to keep the current value",
	})
	if err != nil {
		return nil, false, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return optionsValue(view.Selected), false, nil
	}
	if r.options == nil {
		return query, false, nil
	}

	found, err := r.options.Autocomplete(ctx, view.Entity, query, r.limit)
	if err != nil {
		r.error(ctx, fmt.Sprintf("%s: %v", label, err))
		return nil, true, nil
	}
	if len(found) == 0 {
		r.info(ctx, fmt.Sprintf("No %s matches %q", label, query))
		return nil, true, nil
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: label, Options: optionLabels(found), DefaultIndex: -1})
	if err != nil {
		return nil, false, err
	}
	if idx < 0 || idx >= len(found) {
		return nil, true, nil
	}
	return map[string]any{"id": found[idx].ID, "label": found[idx].Label}, false, nil
}

func (r *Renderer) askRelations(ctx context.Context, view render.FieldView) (any, bool, error) {
	label := displayLabel(view.Spec)
	query, err := r.driver.Input(ctx, InputConfig{
		Message: fmt.Sprintf("Search %s", label),
		Help:    "leave blank to edit the current selection",
	})
	if err != nil {
		return nil, false, err
	}

	choices := slices.Clone(view.Selected)
	if query = strings.TrimSpace(query); query != "" && r.options != nil {
		found, err := r.options.Autocomplete(ctx, view.Entity, query, r.limit)
		if err != nil {
			r.error(ctx, fmt.Sprintf("%s: %v", label, err))
			return nil, true, nil
		}
		for _, opt := range found {
			if !slices.ContainsFunc(choices, func(o field.Option) bool { return o.ID == opt.ID }) {
				choices = append(choices, opt)
			}
		}
	} else if query != "" {
		choices = append(choices, field.Option{ID: query, Label: query})
	}
	if len(choices) == 0 {
		return []any{}, false, nil
	}

	defaults := make([]int, 0, len(view.Selected))
	for i := range view.Selected {
		defaults = append(defaults, i)
	}
	indices, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  label,
		Options:  optionLabels(choices),
		Defaults: defaults,
	})
	if err != nil {
		return nil, false, err
	}
	picked := make([]field.Option, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(choices) {
			picked = append(picked, choices[idx])
		}
	}
	return optionsValue(picked), false, nil
}

func (r *Renderer) promptFiles(ctx context.Context, c *form.Container, state *formstate.State, view render.FieldView) error {
	label := displayLabel(view.Spec)
	if r.uploader == nil {
		r.info(ctx, fmt.Sprintf("%s: uploads are not available here, keeping %d file(s)", label, len(view.Files)))
		return nil
	}
	desc, ok := c.Schema().Field(view.Name)
	files, isFiles := desc.(field.Files)
	if !ok || !isFiles {
		return nil
	}

	raw, err := r.driver.Input(ctx, InputConfig{
		Message: fmt.Sprintf("%s: files to attach", label),
		Help:    "comma separated paths; blank keeps the current files, - removes them",
	})
	if err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return nil
	case "-":
		return state.Set(view.Name, []field.FileRef{})
	}
	for _, path := range strings.Split(raw, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		ref, err := r.uploader.AttachPath(ctx, state, files, path)
		if err != nil {
			r.error(ctx, fmt.Sprintf("%s: %v", label, err))
			continue
		}
		r.info(ctx, fmt.Sprintf("%s: attached %s", label, ref.Name))
	}
	return nil
}

func (r *Renderer) info(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Renderer) error(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}

func fieldView(f render.Form, name string) (render.FieldView, bool) {
	for _, view := range f.Fields {
		if view.Name == name {
			return view, true
		}
	}
	return render.FieldView{}, false
}

func displayLabel(spec field.Spec) string {
	label := spec.Label
	if strings.TrimSpace(label) == "" {
		label = spec.Name
	}
	if spec.Required {
		label += " *"
	}
	return label
}

func summarize(view render.FieldView) string {
	switch view.Kind {
	case field.KindFiles, field.KindImages:
		names := make([]string, 0, len(view.Files))
		for _, ref := range view.Files {
			names = append(names, ref.Name)
		}
		return strings.Join(names, ", ")
	case field.KindEnum, field.KindRelation, field.KindRelations:
		return strings.Join(optionLabels(view.Selected), ", ")
	default:
		return view.Display
	}
}

func optionLabels(opts []field.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Label
		if out[i] == "" {
			out[i] = o.ID
		}
	}
	return out
}

func optionsValue(opts []field.Option) []any {
	out := make([]any, 0, len(opts))
	for _, opt := range opts {
		out = append(out, map[string]any{"id": opt.ID, "label": opt.Label})
	}
	return out
}
