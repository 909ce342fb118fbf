package tui

import (
	"context"
	"io"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/formstate"
)

// OptionSource looks up autocomplete options for an entity.
type OptionSource interface {
	Autocomplete(ctx context.Context, entity, query string, limit int) ([]field.Option, error)
}

// Uploader attaches a local file to an upload field. *upload.Manager
// satisfies it.
type Uploader interface {
	AttachPath(ctx context.Context, state *formstate.State, desc field.Files, path string) (field.FileRef, error)
}

// Theme captures message prefixes the renderer applies when printing.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOptionSource enables searching autocomplete items. Without it the
// renderer asks for raw ids.
func WithOptionSource(source OptionSource) Option {
	return func(r *Renderer) {
		r.options = source
	}
}

// WithUploader enables upload items. Without it they are left untouched.
func WithUploader(uploader Uploader) Option {
	return func(r *Renderer) {
		r.uploader = uploader
	}
}

// WithOutput sets where the default driver prints messages.
func WithOutput(out io.Writer) Option {
	return func(r *Renderer) {
		r.out = out
	}
}

// WithSearchLimit caps the autocomplete results offered per prompt.
func WithSearchLimit(limit int) Option {
	return func(r *Renderer) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}
