package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-boarding/pkg/entities"
	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/form"
	"github.com/goliatone/go-boarding/pkg/formschema"
	"github.com/goliatone/go-boarding/pkg/render"
	"github.com/goliatone/go-boarding/pkg/renderers/html"
	"github.com/goliatone/go-boarding/pkg/service"
)

// editable lists the entities with create and edit pages.
var editable = map[string]bool{
	entities.Booking: true,
	entities.Pet:     true,
}

func (s *Server) entityService(w http.ResponseWriter, entity string) (*service.Records, *formschema.Schema, bool) {
	if !editable[entity] {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown entity "+entity)
		return nil, nil, false
	}
	records, err := s.Directory.Records(entity)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return nil, nil, false
	}
	schema, err := s.Entities.Schema(entity)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return nil, nil, false
	}
	return records, schema, true
}

func (s *Server) entityForm(w http.ResponseWriter, r *http.Request) {
	entity, id := chi.URLParam(r, "entity"), chi.URLParam(r, "id")
	records, schema, ok := s.entityService(w, entity)
	if !ok {
		return
	}

	var record map[string]any
	if id != "" {
		found, err := records.Find(r.Context(), id).Unwrap()
		if err != nil {
			status, code := statusFor(err)
			s.logger.Warn("find record", zap.String("entity", entity), zap.String("id", id), zap.Error(err))
			s.writeError(w, status, code, "could not load "+entity)
			return
		}
		record = found
	}

	c, err := form.New(entity, schema, s.formOptions(r, form.WithRecord(record), form.WithSubmit(records.Submit))...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	s.renderForm(w, r, c, http.StatusOK)
}

func (s *Server) saveEntity(w http.ResponseWriter, r *http.Request) {
	entity, id := chi.URLParam(r, "entity"), chi.URLParam(r, "id")
	records, schema, ok := s.entityService(w, entity)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid form body")
		return
	}

	var baseline map[string]any
	if id != "" {
		found, err := records.Find(r.Context(), id).Unwrap()
		if err != nil {
			s.logger.Warn("find record baseline", zap.String("entity", entity), zap.String("id", id), zap.Error(err))
			found = map[string]any{schema.ID().Name(): id}
		}
		baseline = found
	}
	c, err := form.New(entity, schema, s.formOptions(r, form.WithRecord(baseline), form.WithSubmit(records.Submit))...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if err := applyPosted(c, schema, r.PostForm); err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	saved, err := c.Submit(r.Context())
	if err != nil {
		s.renderForm(w, r, c, submitStatus(err))
		return
	}
	if savedID, _ := saved[schema.ID().Name()].(string); savedID != "" {
		id = savedID
	}
	target := s.path("/" + entity + "/" + id)
	if id == "" {
		target = s.path("/" + entity + "/new")
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) settingsForm(w http.ResponseWriter, r *http.Request) {
	schema, err := s.Entities.Schema(entities.Settings)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	current, err := s.Settings.Find(r.Context()).Unwrap()
	if err != nil {
		status, code := statusFor(err)
		s.logger.Warn("find settings", zap.Error(err))
		s.writeError(w, status, code, "could not load settings")
		return
	}
	c, err := form.New(entities.Settings, schema, s.formOptions(r, form.WithRecord(current.Map()), form.WithSubmit(s.submitSettings))...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	s.renderForm(w, r, c, http.StatusOK)
}

func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request) {
	schema, err := s.Entities.Schema(entities.Settings)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid form body")
		return
	}
	var baseline map[string]any
	if current, err := s.Settings.Find(r.Context()).Unwrap(); err == nil {
		baseline = current.Map()
	} else {
		s.logger.Warn("find settings baseline", zap.Error(err))
	}
	c, err := form.New(entities.Settings, schema, s.formOptions(r, form.WithRecord(baseline), form.WithSubmit(s.submitSettings))...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if err := applyPosted(c, schema, r.PostForm); err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if _, err := c.Submit(r.Context()); err != nil {
		s.renderForm(w, r, c, submitStatus(err))
		return
	}
	http.Redirect(w, r, s.path("/settings"), http.StatusSeeOther)
}

// submitSettings saves the whole settings record, then applies its theme.
func (s *Server) submitSettings(ctx context.Context, _ string, data map[string]any) (map[string]any, error) {
	settings := service.SettingsFromMap(data)
	if _, err := s.Settings.Save(ctx, settings).Unwrap(); err != nil {
		return nil, err
	}
	if err := s.Settings.ApplyTheme(ctx, settings.Theme); err != nil {
		return nil, err
	}
	return settings.Map(), nil
}

// formOptions adds the cancel hook when the page was opened with a return
// address.
func (s *Server) formOptions(r *http.Request, options ...form.Option) []form.Option {
	options = append(options, form.WithLogger(s.logger))
	if back := returnURL(r); back != "" {
		options = append(options, form.WithCancel(func() {}))
	}
	return options
}

// returnURL accepts only local paths.
func returnURL(r *http.Request) string {
	back := strings.TrimSpace(r.URL.Query().Get("return"))
	if !strings.HasPrefix(back, "/") || strings.HasPrefix(back, "//") {
		return ""
	}
	return back
}

func submitStatus(err error) int {
	var fe form.FieldErrorer
	switch {
	case errors.Is(err, form.ErrSubmitInProgress):
		return http.StatusConflict
	case errors.As(err, &fe):
		return http.StatusUnprocessableEntity
	}
	if _, ok := formschema.AsValidationError(err); ok {
		return http.StatusUnprocessableEntity
	}
	status, _ := statusFor(err)
	return status
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, c *form.Container, status int) {
	locale := s.locale(r)
	opts := render.RenderOptions{
		Action:   r.URL.RequestURI(),
		BasePath: s.opts.BasePath,
		Modal:    r.URL.Query().Get("modal") == "1",
		Hidden:   render.MergeHiddenFields(nil, render.CSRFToken(csrfField, s.csrfToken(w, r))),
		Locale:   locale,
	}
	if c.CanCancel() {
		opts.CancelURL = returnURL(r)
	}
	if s.Messages != nil {
		opts.Translator = s.Messages
	}
	if s.App != nil {
		if cfg, err := s.Themes.Catalog().RendererConfig(s.App.Snapshot().Theme); err == nil {
			opts.Theme = cfg
		}
	}

	page := html.Page{
		Title:       s.title(c.Entity(), locale),
		Locale:      locale,
		Links:       s.Head.Links(),
		ThemeSocket: s.path("/ws/theme"),
	}
	out, err := s.Renderer.RenderPage(r.Context(), c.View(), opts, page)
	if err != nil {
		s.logger.Error("render form", zap.String("entity", c.Entity()), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "could not render form")
		return
	}
	w.Header().Set("Content-Type", s.Renderer.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func (s *Server) locale(r *http.Request) string {
	if s.Messages == nil {
		return s.opts.Locale
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		return s.Messages.Match(header)
	}
	return s.opts.Locale
}

func (s *Server) title(entity, locale string) string {
	name := cases.Title(language.English).String(entity)
	if s.Messages != nil {
		if msg, err := s.Messages.Translate(locale, "entities."+entity+".name"); err == nil {
			name = msg
		}
	}
	return name + " | " + s.opts.Title
}

// applyPosted writes the posted inputs over the container's stored record,
// which stays the reset baseline.
func applyPosted(c *form.Container, schema *formschema.Schema, posted url.Values) error {
	state := c.State()
	for name, value := range formValues(schema, posted) {
		if err := state.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// formValues reads the posted inputs of schema. Files items post one JSON
// reference per hidden input and relations items one id per option.
func formValues(schema *formschema.Schema, posted url.Values) map[string]any {
	values := make(map[string]any, len(schema.Fields()))
	for _, desc := range schema.Fields() {
		name := desc.Name()
		raw, ok := posted[name]
		switch desc.Kind() {
		case field.KindRelations, field.KindFiles, field.KindImages:
			values[name] = nonEmpty(raw)
		default:
			if ok && len(raw) > 0 {
				values[name] = raw[0]
			} else {
				values[name] = desc.Empty()
			}
		}
	}
	return values
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
