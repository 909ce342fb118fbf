// Package server assembles the admin HTTP handlers: entity forms, uploads,
// autocomplete, theme stylesheets and their websocket swap feed.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-boarding/components/autocomplete"
	"github.com/goliatone/go-boarding/internal/storage"
	"github.com/goliatone/go-boarding/pkg/appstate"
	"github.com/goliatone/go-boarding/pkg/entities"
	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/graphql"
	"github.com/goliatone/go-boarding/pkg/i18n"
	"github.com/goliatone/go-boarding/pkg/renderers/html"
	"github.com/goliatone/go-boarding/pkg/service"
	"github.com/goliatone/go-boarding/pkg/theme"
	"github.com/goliatone/go-boarding/pkg/upload"
)

// FileStore stores uploads and reads them back.
type FileStore interface {
	upload.Store
	Open(ctx context.Context, id string) (io.ReadCloser, storage.File, error)
}

// Deps are the collaborators the handlers use.
type Deps struct {
	Entities  *entities.Registry
	Directory *service.Directory
	Settings  *service.SettingsService
	Themes    *theme.Applier
	Head      *theme.Head
	Hub       *theme.Hub
	Uploads   *upload.Manager
	Files     FileStore
	Renderer  *html.Renderer
	Messages  *i18n.Catalog
	// App, when set, supplies the active theme to renderers.
	App    *appstate.Context
	Logger *zap.Logger
}

// Options are the presentation settings of the server.
type Options struct {
	BasePath string
	Title    string
	// Locale is used when the request carries no usable Accept-Language.
	Locale string
}

// Server serves the admin pages.
type Server struct {
	Deps
	opts   Options
	logger *zap.Logger
}

// New validates deps and builds a server.
func New(opts Options, deps Deps) (*Server, error) {
	var errs []error
	if deps.Entities == nil {
		errs = append(errs, errors.New("entities registry is required"))
	}
	if deps.Directory == nil {
		errs = append(errs, errors.New("service directory is required"))
	}
	if deps.Settings == nil {
		errs = append(errs, errors.New("settings service is required"))
	}
	if deps.Themes == nil || deps.Head == nil || deps.Hub == nil {
		errs = append(errs, errors.New("theme applier, head and hub are required"))
	}
	if deps.Uploads == nil || deps.Files == nil {
		errs = append(errs, errors.New("upload manager and file store are required"))
	}
	if deps.Renderer == nil {
		errs = append(errs, errors.New("html renderer is required"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(append([]error{errors.New("server: invalid dependencies")}, errs...)...)
	}

	opts.BasePath = strings.TrimRight(strings.TrimSpace(opts.BasePath), "/")
	if opts.Title == "" {
		opts.Title = "Boarding"
	}
	if opts.Locale == "" {
		opts.Locale = "en"
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Deps: deps, opts: opts, logger: logger}, nil
}

// path prefixes p with the base path.
func (s *Server) path(p string) string {
	return s.opts.BasePath + p
}

// Handler returns the routed handler with logging and panic recovery.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recovery, s.logging)

	routes := func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, s.path("/settings"), http.StatusSeeOther)
		})
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Handle("/assets/*", http.StripPrefix(s.path("/assets/"), http.FileServer(http.FS(html.AssetsFS()))))
		r.Get("/theme/{file}", s.stylesheet)
		r.Handle("/ws/theme", s.Hub)
		r.Get("/openapi.json", s.openAPI)
		r.Get("/files/{id}", s.file)

		lookup := autocomplete.New(
			autocomplete.WithSource(autocomplete.SourceFunc(s.autocomplete)),
			autocomplete.WithEntities(s.Directory.Entities()...),
			autocomplete.WithEntityFunc(func(req *http.Request) string { return chi.URLParam(req, "entity") }),
		)
		if _, err := lookup.RegisterRoutes(r, ""); err != nil {
			s.logger.Error("register autocomplete routes", zap.Error(err))
		}

		r.Group(func(r chi.Router) {
			r.Use(s.checkCSRF)
			r.Post("/uploads/{field}", s.upload)
			r.Get("/settings", s.settingsForm)
			r.Post("/settings", s.saveSettings)
			r.Get("/{entity}/new", s.entityForm)
			r.Post("/{entity}/new", s.saveEntity)
			r.Get("/{entity}/{id}", s.entityForm)
			r.Post("/{entity}/{id}", s.saveEntity)
		})
	}

	if s.opts.BasePath == "" {
		routes(r)
	} else {
		r.Route(s.opts.BasePath, routes)
	}
	return r
}

// autocomplete maps backend failures onto HTTP statuses for the options
// endpoint.
func (s *Server) autocomplete(ctx context.Context, entity, query string, limit int) ([]field.Option, error) {
	opts, err := s.Directory.Autocomplete(ctx, entity, query, limit)
	if err != nil {
		if errors.Is(err, graphql.ErrUnauthenticated) {
			return nil, autocomplete.StatusError{Code: http.StatusUnauthorized, Err: err}
		}
		s.logger.Warn("autocomplete", zap.String("entity", entity), zap.Error(err))
		return nil, err
	}
	return opts, nil
}
