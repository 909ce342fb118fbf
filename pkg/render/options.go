package render

import (
	theme "github.com/goliatone/go-theme"
)

// RenderOptions describe per-request presentation data. Form contents travel
// in Form; everything here only changes how they are shown.
type RenderOptions struct {
	// Action is the submit URL. Empty posts back to the current page.
	Action string
	// Method overrides POST. Renderers translate verbs browsers cannot submit
	// into POST plus a hidden _method input.
	Method string
	// Modal hides the "create" shortcuts of autocomplete items.
	Modal bool
	// BasePath prefixes links rendered inside items, such as the "create"
	// shortcut of autocomplete items.
	BasePath string
	// CancelURL enables the cancel action. Without it no cancel button is
	// rendered.
	CancelURL string
	// Hidden carries extra inputs such as CSRF tokens.
	Hidden map[string]string

	// Locale and Translator localize labels through entities.<entity>.fields.*
	// and common.* keys.
	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler

	// Theme is the resolved selection of the active theme.
	Theme *theme.RendererConfig
	// UploadURL is the endpoint prefix upload items post to.
	UploadURL string
	// AutocompleteURL is the endpoint prefix autocomplete items query.
	AutocompleteURL string
}
