// Package i18n loads YAML message catalogs and translates form labels.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var defaultLocales embed.FS

// ErrMissing is returned when a key has no translation in the catalog chain.
var ErrMissing = errors.New("i18n: missing translation")

// Catalog holds flattened messages per locale.
type Catalog struct {
	mu       sync.RWMutex
	fallback string
	messages map[string]map[string]string
	tags     []language.Tag
	names    []string
	matcher  language.Matcher
}

// New returns a catalog with the embedded locales loaded. fallback is used
// when a key is missing in the requested locale.
func New(fallback string) (*Catalog, error) {
	c := NewEmpty(fallback)
	if err := c.LoadFS(defaultLocales, "locales"); err != nil {
		return nil, err
	}
	return c, nil
}

// NewEmpty returns a catalog without messages.
func NewEmpty(fallback string) *Catalog {
	if fallback == "" {
		fallback = "en"
	}
	return &Catalog{fallback: fallback, messages: make(map[string]map[string]string)}
}

// LoadFS reads every <locale>.yaml file of dir.
func (c *Catalog) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("i18n: read %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (path.Ext(name) != ".yaml" && path.Ext(name) != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("i18n: read %s: %w", name, err)
		}
		if err := c.Load(strings.TrimSuffix(name, path.Ext(name)), data); err != nil {
			return err
		}
	}
	return nil
}

// Load merges a nested YAML document into locale.
func (c *Catalog) Load(locale string, data []byte) error {
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("i18n: locale %q: %w", locale, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("i18n: parse %s: %w", locale, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := tag.String()
	if _, ok := c.messages[key]; !ok {
		c.messages[key] = make(map[string]string)
		c.names = append(c.names, key)
		sort.Strings(c.names)
		c.rebuildMatcherLocked()
	}
	flatten("", doc, c.messages[key])
	return nil
}

func (c *Catalog) rebuildMatcherLocked() {
	c.tags = c.tags[:0]
	// The fallback goes first so unmatched requests resolve to it.
	if _, ok := c.messages[c.fallback]; ok {
		c.tags = append(c.tags, language.Make(c.fallback))
	}
	for _, name := range c.names {
		if name != c.fallback {
			c.tags = append(c.tags, language.Make(name))
		}
	}
	c.matcher = language.NewMatcher(c.tags)
}

func flatten(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flatten(next, child, out)
		}
	case nil:
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

// Locales returns the loaded locales, sorted.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.names...)
}

// Match picks the best loaded locale for an Accept-Language header value.
func (c *Catalog) Match(acceptLanguage string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.matcher == nil || len(c.tags) == 0 {
		return c.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.fallback
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.fallback
	}
	return c.tags[idx].String()
}

// Translate resolves key in locale, then its base language, then the
// fallback. args are applied with fmt.Sprintf.
func (c *Catalog) Translate(locale, key string, args ...any) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, candidate := range c.chain(locale) {
		if msg, ok := c.messages[candidate][key]; ok {
			if len(args) > 0 {
				return fmt.Sprintf(msg, args...), nil
			}
			return msg, nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrMissing, key, locale)
}

func (c *Catalog) chain(locale string) []string {
	var out []string
	if tag, err := language.Parse(locale); err == nil {
		out = append(out, tag.String())
		if base, conf := tag.Base(); conf != language.No && base.String() != tag.String() {
			out = append(out, base.String())
		}
	}
	return append(out, c.fallback)
}
