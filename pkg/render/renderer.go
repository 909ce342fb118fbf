package render

import (
	"context"
)

// Renderer turns a Form snapshot into a byte representation (HTML, terminal
// prompts summary, etc.).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form Form, options RenderOptions) ([]byte, error)
}
