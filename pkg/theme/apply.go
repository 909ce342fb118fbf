package theme

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-boarding/pkg/appstate"
)

// ErrUnknownTheme is returned when applying a theme missing from the catalog.
var ErrUnknownTheme = errors.New("theme: unknown theme")

// Swap describes a stylesheet replacement pushed to open pages.
type Swap struct {
	Theme string `json:"theme"`
	Old   Link   `json:"old"`
	New   Link   `json:"new"`
}

// Broadcaster fans swaps out to open pages.
type Broadcaster interface {
	Broadcast(swap Swap)
}

// ApplierOption configures an Applier.
type ApplierOption func(*Applier)

// WithBroadcaster pushes every effective swap to b.
func WithBroadcaster(b Broadcaster) ApplierOption {
	return func(a *Applier) {
		a.hub = b
	}
}

// WithLogger overrides the applier logger.
func WithLogger(logger *zap.Logger) ApplierOption {
	return func(a *Applier) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Applier installs the active theme stylesheet.
type Applier struct {
	// mu keeps the head link and the app context on the same theme.
	mu sync.Mutex

	catalog *Catalog
	head    *Head
	app     *appstate.Context
	hub     Broadcaster
	logger  *zap.Logger
}

// NewApplier wires the catalog, the shared head and the application context.
func NewApplier(catalog *Catalog, head *Head, app *appstate.Context, options ...ApplierOption) (*Applier, error) {
	if catalog == nil || head == nil || app == nil {
		return nil, errors.New("theme: catalog, head and app context are required")
	}
	a := &Applier{catalog: catalog, head: head, app: app, logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// ApplyTheme removes the previous theme stylesheet and installs the one of
// id in a single swap. Applying the active theme again is a no-op.
func (a *Applier) ApplyTheme(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	href, err := a.catalog.StylesheetURL(id)
	if err != nil {
		return fmt.Errorf("%w %q", ErrUnknownTheme, id)
	}
	next := Link{ID: LinkID, Rel: "stylesheet", Href: href}

	a.mu.Lock()
	defer a.mu.Unlock()
	old, _ := a.head.Swap(next)
	a.app.SetTheme(id, href)
	if old == next {
		return nil
	}
	a.logger.Info("theme applied", zap.String("theme", id), zap.String("previous", old.Href))
	if a.hub != nil {
		a.hub.Broadcast(Swap{Theme: id, Old: old, New: next})
	}
	return nil
}

// Current returns the active theme link, if any.
func (a *Applier) Current() (Link, bool) {
	active := a.head.Active()
	if len(active) == 0 {
		return Link{}, false
	}
	return active[0], true
}

// Catalog returns the theme catalog.
func (a *Applier) Catalog() *Catalog { return a.catalog }
