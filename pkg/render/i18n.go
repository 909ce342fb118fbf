package render

import (
	"errors"
	"fmt"
	"strings"
)

// Translator resolves a message key for a locale. pkg/i18n provides the
// YAML-backed implementation.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler decides the string shown when a key cannot be
// translated. params carries a {"default": fallback} map as first element
// when a fallback exists.
type MissingTranslationHandler func(locale, key string, params []any, err error) string

// ErrMissingTranslator is reported to MissingTranslationHandler when no
// translator was configured.
var ErrMissingTranslator = errors.New("render: translator not configured")

// FieldLabelKey is the catalog key of a field label.
func FieldLabelKey(entity, name string) string {
	return fmt.Sprintf("entities.%s.fields.%s", entity, name)
}

// FieldHintKey is the catalog key of a field hint.
func FieldHintKey(entity, name string) string {
	return fmt.Sprintf("entities.%s.hints.%s", entity, name)
}

// FieldOptionKey is the catalog key of an enum option label.
func FieldOptionKey(entity, name, option string) string {
	return fmt.Sprintf("entities.%s.enumerators.%s.%s", entity, name, option)
}

// LocalizeForm translates labels, hints and action captions in place.
// Missing keys keep the descriptor's own label.
func LocalizeForm(form *Form, opts RenderOptions) {
	if form == nil || (opts.Translator == nil && opts.OnMissing == nil) {
		return
	}
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	tr := func(key, fallback string) string {
		return translate(opts.Locale, key, fallback, opts.Translator, onMissing)
	}

	if form.ID != nil {
		localizeField(form.ID, form.Entity, tr)
	}
	for i := range form.Fields {
		localizeField(&form.Fields[i], form.Entity, tr)
	}
	form.Labels = Labels{
		Save:    tr("common.save", form.Labels.Save),
		Reset:   tr("common.reset", form.Labels.Reset),
		Cancel:  tr("common.cancel", form.Labels.Cancel),
		Loading: tr("common.loading", form.Labels.Loading),
	}
}

func localizeField(view *FieldView, entity string, tr func(key, fallback string) string) {
	view.Label = tr(FieldLabelKey(entity, view.Name), view.Label)
	if view.Hint != "" {
		view.Hint = tr(FieldHintKey(entity, view.Name), view.Hint)
	}
	labels := make(map[string]string, len(view.Options))
	for i, opt := range view.Options {
		view.Options[i].Label = tr(FieldOptionKey(entity, view.Name, opt.ID), opt.Label)
		labels[opt.ID] = view.Options[i].Label
	}
	for i, sel := range view.Selected {
		if label, ok := labels[sel.ID]; ok {
			view.Selected[i].Label = label
		}
	}
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	if t == nil {
		return onMissing(locale, key, []any{map[string]any{"default": fallback}}, ErrMissingTranslator)
	}
	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, []any{map[string]any{"default": fallback}}, err)
}

// missingTranslationDefault returns the fallback carried in params, or the
// key itself.
func missingTranslationDefault(_ string, key string, params []any, _ error) string {
	if len(params) > 0 {
		if m, ok := params[0].(map[string]any); ok {
			if fallback, ok := m["default"].(string); ok && strings.TrimSpace(fallback) != "" {
				return fallback
			}
		}
	}
	return key
}
