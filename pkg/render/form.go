package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/formschema"
	"github.com/goliatone/go-boarding/pkg/formstate"
)

// Phase is the lifecycle state of a form container.
type Phase string

const (
	PhaseLoadingRecord Phase = "loading-record"
	PhaseReady         Phase = "ready"
	PhaseSubmitting    Phase = "submitting"
)

// Labels holds the translated action captions.
type Labels struct {
	Save    string `json:"save"`
	Reset   string `json:"reset"`
	Cancel  string `json:"cancel"`
	Loading string `json:"loading"`
}

// DefaultLabels returns the untranslated captions.
func DefaultLabels() Labels {
	return Labels{Save: "Save", Reset: "Reset", Cancel: "Cancel", Loading: "Loading"}
}

// Form is the render-facing snapshot of one entity form: descriptors, the
// current Form State and the container phase. Renderers never read Form State
// directly.
type Form struct {
	Entity     string      `json:"entity"`
	Phase      Phase       `json:"phase"`
	Editing    bool        `json:"editing"`
	ID         *FieldView  `json:"id,omitempty"`
	Fields     []FieldView `json:"fields"`
	FormErrors []string    `json:"formErrors,omitempty"`
	// Dirty is set once any field was edited or touched.
	Dirty  bool   `json:"dirty"`
	Labels Labels `json:"labels"`
}

// Submitting reports whether actions must be disabled.
func (f Form) Submitting() bool {
	return f.Phase == PhaseSubmitting
}

// FieldView pairs a descriptor snapshot with its current value and errors.
type FieldView struct {
	field.Spec
	// Display is the controlled string value for single-value inputs.
	Display string `json:"display"`
	// Selected holds the chosen entries of select and autocomplete items.
	Selected []field.Option `json:"selected,omitempty"`
	// Files holds upload references of files and images items.
	Files   []field.FileRef `json:"files,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
	Touched bool            `json:"touched"`
	Invalid bool            `json:"invalid"`
}

// BuildForm snapshots schema and state into a Form. The identifier item is
// only present when state carries an identifier, i.e. when editing.
func BuildForm(entity string, schema *formschema.Schema, state *formstate.State, phase Phase) Form {
	form := Form{
		Entity: entity,
		Phase:  phase,
		Labels: DefaultLabels(),
	}
	if schema == nil {
		return form
	}
	if phase == "" {
		form.Phase = PhaseReady
	}

	values := state.Values()
	idName := schema.ID().Name()
	if id, ok := values[idName]; ok && !field.IsBlank(id) {
		view := buildFieldView(schema.ID(), id, state)
		view.Component = field.ComponentView
		form.ID = &view
		form.Editing = true
	}

	form.Fields = make([]FieldView, 0, len(schema.Fields()))
	for _, desc := range schema.Fields() {
		form.Fields = append(form.Fields, buildFieldView(desc, state.Value(desc.Name()), state))
	}
	form.FormErrors = state.GlobalErrors()
	form.Dirty = state.Dirty()
	return form
}

func buildFieldView(desc field.Descriptor, value any, state *formstate.State) FieldView {
	spec := desc.Describe()
	view := FieldView{
		Spec:    spec,
		Errors:  state.ErrorsFor(spec.Name),
		Touched: state.Touched(spec.Name),
	}
	view.Invalid = len(view.Errors) > 0

	switch spec.Kind {
	case field.KindFiles, field.KindImages:
		refs, _ := field.FileRefs(value)
		view.Files = refs
	case field.KindRelation, field.KindRelations:
		view.Selected = selectedOptions(value)
		if len(view.Selected) == 1 && spec.Kind == field.KindRelation {
			view.Display = view.Selected[0].ID
		}
	case field.KindEnum:
		view.Display = displayString(value)
		for _, opt := range spec.Options {
			if opt.ID == view.Display {
				view.Selected = []field.Option{opt}
			}
		}
	case field.KindDateTime:
		view.Display = inputTime(value, spec.TimeInput)
	default:
		view.Display = displayString(value)
	}
	return view
}

// selectedOptions keeps labels when the value carries them and falls back to
// the id otherwise.
func selectedOptions(value any) []field.Option {
	var out []field.Option
	var walk func(v any)
	walk = func(v any) {
		switch typed := v.(type) {
		case nil:
		case field.Option:
			out = append(out, optionWithLabel(typed.ID, typed.Label))
		case []field.Option:
			for _, opt := range typed {
				walk(opt)
			}
		case map[string]any:
			id, _ := typed["id"].(string)
			if id == "" {
				id, _ = typed["value"].(string)
			}
			label, _ := typed["label"].(string)
			if strings.TrimSpace(id) != "" {
				out = append(out, optionWithLabel(id, label))
			}
		case []any:
			for _, item := range typed {
				walk(item)
			}
		default:
			ids, err := field.RelationIDs(v)
			if err != nil {
				return
			}
			for _, id := range ids {
				out = append(out, optionWithLabel(id, ""))
			}
		}
	}
	walk(value)
	return out
}

func optionWithLabel(id, label string) field.Option {
	id = strings.TrimSpace(id)
	if strings.TrimSpace(label) == "" {
		label = id
	}
	return field.Option{ID: id, Label: label}
}

func displayString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) == 1 {
			return v[0]
		}
		return strings.Join(v, ", ")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// inputTime formats value for the browser date or datetime-local control.
// Unparseable input is echoed back so the user can correct it.
func inputTime(value any, withTime bool) string {
	raw := displayString(value)
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	parsed, err := field.ParseTime(raw)
	if err != nil {
		return raw
	}
	if withTime {
		return parsed.UTC().Format("2006-01-02T15:04")
	}
	return parsed.UTC().Format(time.DateOnly)
}
