// Package theme resolves stylesheet variants and swaps the single active
// theme stylesheet of the admin pages.
package theme

import (
	"fmt"
	"slices"
	"strings"

	gotheme "github.com/goliatone/go-theme"
)

// StylesheetAsset is the asset key holding a theme's stylesheet file.
const StylesheetAsset = "stylesheet"

// DefaultThemes lists the stylesheet variants shipped with the admin.
var DefaultThemes = []string{
	"default", "dark", "light",
	"cyan", "geek-blue", "gold", "lime", "magenta", "orange",
	"polar-green", "purple", "red", "volcano", "yellow",
}

// Catalog is the set of known themes, one go-theme manifest per theme id.
// It implements the go-theme ThemeSelector.
type Catalog struct {
	base      string
	order     []string
	manifests map[string]*gotheme.Manifest
}

var _ gotheme.ThemeSelector = (*Catalog)(nil)

// NewCatalog registers ids (DefaultThemes when empty) with stylesheets served
// from <basePath>/theme/<id>.css.
func NewCatalog(basePath string, ids ...string) (*Catalog, error) {
	if len(ids) == 0 {
		ids = DefaultThemes
	}
	c := &Catalog{
		base:      strings.TrimRight(basePath, "/"),
		manifests: make(map[string]*gotheme.Manifest, len(ids)),
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || strings.ContainsAny(id, "/\\.") {
			return nil, fmt.Errorf("theme: invalid theme id %q", id)
		}
		if _, exists := c.manifests[id]; exists {
			return nil, fmt.Errorf("theme: duplicate theme id %q", id)
		}
		c.manifests[id] = &gotheme.Manifest{
			Name:    id,
			Version: "1",
			Tokens:  Palette(id),
			Assets: gotheme.Assets{
				Prefix: c.base + "/theme",
				Files:  map[string]string{StylesheetAsset: id + ".css"},
			},
		}
		c.order = append(c.order, id)
	}
	return c, nil
}

// IDs returns the registered theme ids in registration order.
func (c *Catalog) IDs() []string {
	return slices.Clone(c.order)
}

// Has reports whether id is registered.
func (c *Catalog) Has(id string) bool {
	_, ok := c.manifests[id]
	return ok
}

// Select resolves a theme manifest. Variants are not used by the admin and
// are echoed back untouched.
func (c *Catalog) Select(name, variant string, _ ...gotheme.QueryOption) (*gotheme.Selection, error) {
	manifest, ok := c.manifests[name]
	if !ok {
		return nil, fmt.Errorf("theme: unknown theme %q", name)
	}
	return &gotheme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// StylesheetURL returns the stylesheet address of id.
func (c *Catalog) StylesheetURL(id string) (string, error) {
	manifest, ok := c.manifests[id]
	if !ok {
		return "", fmt.Errorf("theme: unknown theme %q", id)
	}
	return assetURL(manifest.Assets.Prefix, manifest.Assets.Files[StylesheetAsset]), nil
}

// RendererConfig derives the renderer theme configuration of id.
func (c *Catalog) RendererConfig(id string) (*gotheme.RendererConfig, error) {
	selection, err := c.Select(id, "")
	if err != nil {
		return nil, err
	}
	href, _ := c.StylesheetURL(id)
	tokens := selection.Manifest.Tokens
	return &gotheme.RendererConfig{
		Theme:  selection.Theme,
		Tokens: tokens,
		AssetURL: func(key string) string {
			if key == StylesheetAsset {
				return href
			}
			if file, ok := selection.Manifest.Assets.Files[key]; ok {
				return assetURL(selection.Manifest.Assets.Prefix, file)
			}
			return ""
		},
	}, nil
}

func assetURL(prefix, file string) string {
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(file, "/")
}
