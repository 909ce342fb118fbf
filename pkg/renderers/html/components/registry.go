// Package components maps item components to the code that renders them as
// HTML.
package components

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-boarding/pkg/render"
	rendertemplate "github.com/goliatone/go-boarding/pkg/render/template"
)

// Renderer writes the HTML of one item into buf.
type Renderer func(buf *bytes.Buffer, item render.FieldView, data ComponentData) error

// ComponentData carries helpers and per-render configuration.
type ComponentData struct {
	Template rendertemplate.TemplateRenderer
	Control  Control
}

// Control holds the derived attributes every item template needs.
type Control struct {
	ID         string `json:"id"`
	Class      string `json:"class"`
	ShowErrors bool   `json:"showErrors"`
	Disabled   bool   `json:"disabled"`
	Autofocus  bool   `json:"autofocus"`
	Step       string `json:"step,omitempty"`
	Min        string `json:"min,omitempty"`
	Max        string `json:"max,omitempty"`
	Accept     string `json:"accept,omitempty"`
	// SearchURL is the autocomplete endpoint of the related entity.
	SearchURL string `json:"searchUrl,omitempty"`
	// CreateURL links to a blank form of the related entity. Empty in modal
	// mode.
	CreateURL string `json:"createUrl,omitempty"`
	UploadURL string `json:"uploadUrl,omitempty"`
	// Files lists the attached files of upload items.
	Files []File `json:"files,omitempty"`
	// CanAdd is false once an upload item holds its maximum file count.
	CanAdd bool `json:"canAdd"`
}

// File is an attached file as shown by upload items.
type File struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Image bool   `json:"image"`
	// Value is the JSON encoded reference posted back with the form.
	Value string `json:"value"`
}

// Script describes JavaScript a component needs once per page.
type Script struct {
	Src    string `json:"src,omitempty"`
	Inline string `json:"inline,omitempty"`
	Defer  bool   `json:"defer,omitempty"`
	Module bool   `json:"module,omitempty"`
}

// Descriptor bundles the renderer with its asset dependencies.
type Descriptor struct {
	Name        string
	Renderer    Renderer
	Stylesheets []string
	Scripts     []Script
}

// Registry tracks descriptors keyed by component name.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{components: make(map[string]Descriptor)}
}

// Clone returns a copy that can be changed without affecting r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := New()
	for name, descriptor := range r.components {
		cloned.components[name] = cloneDescriptor(descriptor)
	}
	return cloned
}

// Register associates descriptor with name, replacing existing entries.
func (r *Registry) Register(name string, descriptor Descriptor) error {
	if name = normalize(name); name == "" {
		return fmt.Errorf("components: component name is required")
	}
	if descriptor.Renderer == nil {
		return fmt.Errorf("components: renderer for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	descriptor.Name = name
	r.components[name] = cloneDescriptor(descriptor)
	return nil
}

// MustRegister mirrors Register but panics on error.
func (r *Registry) MustRegister(name string, descriptor Descriptor) {
	if err := r.Register(name, descriptor); err != nil {
		panic(err)
	}
}

// Descriptor fetches a descriptor by name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.components[normalize(name)]
	if !ok {
		return Descriptor{}, false
	}
	return cloneDescriptor(descriptor), true
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Assets collects the stylesheets and scripts of names without duplicates,
// in first use order.
func (r *Registry) Assets(names []string) (stylesheets []string, scripts []Script) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seenStyles := make(map[string]struct{})
	seenScripts := make(map[string]struct{})
	for _, name := range names {
		descriptor, ok := r.components[normalize(name)]
		if !ok {
			continue
		}
		for _, href := range descriptor.Stylesheets {
			if _, exists := seenStyles[href]; href == "" || exists {
				continue
			}
			seenStyles[href] = struct{}{}
			stylesheets = append(stylesheets, href)
		}
		for _, script := range descriptor.Scripts {
			key := "inline:" + script.Inline
			if script.Src != "" {
				key = "src:" + script.Src
			}
			if _, exists := seenScripts[key]; exists {
				continue
			}
			seenScripts[key] = struct{}{}
			scripts = append(scripts, script)
		}
	}
	return stylesheets, scripts
}

func cloneDescriptor(src Descriptor) Descriptor {
	return Descriptor{
		Name:        src.Name,
		Renderer:    src.Renderer,
		Stylesheets: slices.Clone(src.Stylesheets),
		Scripts:     slices.Clone(src.Scripts),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
