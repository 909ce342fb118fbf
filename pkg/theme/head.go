package theme

import (
	"slices"
	"sync"
)

// LinkID is the element id of the single active theme stylesheet.
const LinkID = "theme-link"

// Link is a stylesheet reference in the page head.
type Link struct {
	ID   string `json:"id"`
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Head is the server-side model of the links every admin page mounts.
// Readers never observe a state without, or with two, theme links.
type Head struct {
	mu    sync.RWMutex
	links []Link
}

// NewHead builds a head holding links.
func NewHead(links ...Link) *Head {
	return &Head{links: slices.Clone(links)}
}

// Swap replaces the link carrying next.ID in place and drops any duplicates
// of it. The link is appended when none exists. It returns the link that was
// replaced.
func (h *Head) Swap(next Link) (Link, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var old Link
	replaced := false
	out := make([]Link, 0, len(h.links)+1)
	for _, link := range h.links {
		if link.ID != next.ID {
			out = append(out, link)
			continue
		}
		if !replaced {
			old = link
			replaced = true
			out = append(out, next)
		}
	}
	if !replaced {
		out = append(out, next)
	}
	h.links = out
	return old, replaced
}

// Links returns a copy of the current links.
func (h *Head) Links() []Link {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.links)
}

// Active returns the theme stylesheet links.
func (h *Head) Active() []Link {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []Link
	for _, link := range h.links {
		if link.ID == LinkID {
			out = append(out, link)
		}
	}
	return out
}
