package theme

import (
	"bytes"
	"fmt"
	"sort"
)

// Token names every palette defines.
const (
	TokenPrimary    = "color-primary"
	TokenBackground = "color-bg"
	TokenText       = "color-text"
	TokenBorder     = "color-border"
	TokenError      = "color-error"
)

var primaries = map[string]string{
	"default":     "#1677ff",
	"dark":        "#1668dc",
	"light":       "#1677ff",
	"cyan":        "#13c2c2",
	"geek-blue":   "#2f54eb",
	"gold":        "#faad14",
	"lime":        "#a0d911",
	"magenta":     "#eb2f96",
	"orange":      "#fa8c16",
	"polar-green": "#52c41a",
	"purple":      "#722ed1",
	"red":         "#f5222d",
	"volcano":     "#fa541c",
	"yellow":      "#fadb14",
}

// Palette returns the design tokens of theme id. Unknown ids get the default
// colors so operators can register extra themes without code changes.
func Palette(id string) map[string]string {
	primary, ok := primaries[id]
	if !ok {
		primary = primaries["default"]
	}
	tokens := map[string]string{
		"theme":         id,
		TokenPrimary:    primary,
		TokenBackground: "#ffffff",
		TokenText:       "#1f1f1f",
		TokenBorder:     "#d9d9d9",
		TokenError:      "#ff4d4f",
	}
	if id == "dark" {
		tokens[TokenBackground] = "#141414"
		tokens[TokenText] = "#f0f0f0"
		tokens[TokenBorder] = "#424242"
		tokens[TokenError] = "#dc4446"
	}
	return tokens
}

// Stylesheet renders the CSS served for theme id: its tokens as custom
// properties plus the rules that consume them.
func (c *Catalog) Stylesheet(id string) ([]byte, error) {
	manifest, ok := c.manifests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, id)
	}
	names := make([]string, 0, len(manifest.Tokens))
	for name := range manifest.Tokens {
		if name != "theme" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "/* theme: %s */\n:root {\n", id)
	for _, name := range names {
		fmt.Fprintf(&buf, "  --%s: %s;\n", name, manifest.Tokens[name])
	}
	buf.WriteString("}\n")
	buf.WriteString("body { background: var(--color-bg); color: var(--color-text); }\n")
	buf.WriteString(".input { border: 1px solid var(--color-border); background: var(--color-bg); color: var(--color-text); }\n")
	buf.WriteString(".btn-primary { background: var(--color-primary); border-color: var(--color-primary); color: #fff; }\n")
	buf.WriteString("a { color: var(--color-primary); }\n")
	return buf.Bytes(), nil
}
