package autocomplete

import (
	"context"
	"net/http"

	"github.com/goliatone/go-boarding/pkg/field"
)

// Source searches the records of an entity.
type Source interface {
	Autocomplete(ctx context.Context, entity, query string, limit int) ([]field.Option, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, entity, query string, limit int) ([]field.Option, error)

func (f SourceFunc) Autocomplete(ctx context.Context, entity, query string, limit int) ([]field.Option, error) {
	return f(ctx, entity, query, limit)
}

type EmptySearchMode string

const (
	// EmptySearchNone answers an empty query with no options.
	EmptySearchNone EmptySearchMode = "none"
	// EmptySearchTop forwards the empty query to the source.
	EmptySearchTop EmptySearchMode = "top"
)

type GuardFunc func(r *http.Request) error

// EntityFunc extracts the entity name from a request.
type EntityFunc func(r *http.Request) string

type Options struct {
	RoutePath       string
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode
	Guard           GuardFunc
	Entity          EntityFunc
	// Entities restricts lookups. Empty allows any entity the source knows.
	Entities []string

	Source Source
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:       "/api/autocomplete/{entity}",
		SearchParam:     "q",
		LimitParam:      "limit",
		DefaultLimit:    10,
		MaxLimit:        50,
		EmptySearchMode: EmptySearchTop,
		Entity:          pathEntity,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 50
	}
	if opts.EmptySearchMode == "" {
		opts.EmptySearchMode = EmptySearchTop
	}
	if opts.RoutePath == "" {
		opts.RoutePath = "/api/autocomplete/{entity}"
	}
	if opts.SearchParam == "" {
		opts.SearchParam = "q"
	}
	if opts.LimitParam == "" {
		opts.LimitParam = "limit"
	}
	if opts.Entity == nil {
		opts.Entity = pathEntity
	}
	if opts.Entities != nil {
		opts.Entities = append([]string{}, opts.Entities...)
	}
	return opts
}

func pathEntity(r *http.Request) string {
	if entity := r.PathValue("entity"); entity != "" {
		return entity
	}
	return r.URL.Query().Get("entity")
}

func WithSource(source Source) OptionFn {
	return func(o *Options) { o.Source = source }
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) { o.RoutePath = path }
}

func WithSearchParam(name string) OptionFn {
	return func(o *Options) { o.SearchParam = name }
}

func WithLimitParam(name string) OptionFn {
	return func(o *Options) { o.LimitParam = name }
}

func WithDefaultLimit(limit int) OptionFn {
	return func(o *Options) { o.DefaultLimit = limit }
}

func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) { o.MaxLimit = limit }
}

func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) { o.EmptySearchMode = mode }
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) { o.Guard = guard }
}

// WithEntityFunc overrides how the entity is read from the request, e.g. to
// use a router's URL parameters.
func WithEntityFunc(fn EntityFunc) OptionFn {
	return func(o *Options) { o.Entity = fn }
}

func WithEntities(entities ...string) OptionFn {
	return func(o *Options) { o.Entities = append([]string{}, entities...) }
}

func clampLimit(limit int, opts Options) int {
	if limit <= 0 {
		limit = opts.DefaultLimit
	}
	if opts.MaxLimit > 0 && limit > opts.MaxLimit {
		return opts.MaxLimit
	}
	return limit
}

func (o Options) allows(entity string) bool {
	if entity == "" {
		return false
	}
	if len(o.Entities) == 0 {
		return true
	}
	for _, allowed := range o.Entities {
		if allowed == entity {
			return true
		}
	}
	return false
}
