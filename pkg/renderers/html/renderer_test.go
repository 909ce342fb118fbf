package html_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gotheme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-boarding/pkg/entities"
	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/formschema"
	"github.com/goliatone/go-boarding/pkg/formstate"
	"github.com/goliatone/go-boarding/pkg/render"
	"github.com/goliatone/go-boarding/pkg/renderers/html"
	"github.com/goliatone/go-boarding/pkg/testsupport"
	"github.com/goliatone/go-boarding/pkg/theme"
)

func newRenderer(t *testing.T) *html.Renderer {
	t.Helper()
	r, err := html.New(html.WithCreatable(entities.Booking, entities.Pet), html.WithAssetsPath("/admin/assets"))
	require.NoError(t, err)
	return r
}

func buildForm(schema *formschema.Schema, entity string, record map[string]any, phase render.Phase) (render.Form, *formstate.State) {
	state := formstate.New(schema, schema.InitialValues(record))
	return render.BuildForm(entity, schema, state, phase), state
}

func renderString(t *testing.T, r *html.Renderer, form render.Form, opts render.RenderOptions) string {
	t.Helper()
	out, err := r.Render(context.Background(), form, opts)
	require.NoError(t, err)
	return string(out)
}

func TestRender_NewPetForm(t *testing.T) {
	r := newRenderer(t)
	form, _ := buildForm(entities.PetSchema(), entities.Pet, nil, render.PhaseReady)

	out := renderString(t, r, form, render.RenderOptions{
		Action:   "/admin/pet/new",
		BasePath: "/admin",
		Hidden:   map[string]string{"csrf_token": "tok"},
	})

	assert.Contains(t, out, `id="pet-form"`)
	assert.Contains(t, out, `method="post"`)
	assert.Contains(t, out, `action="/admin/pet/new"`)
	assert.Contains(t, out, `<input type="hidden" name="csrf_token" value="tok">`)
	assert.NotContains(t, out, `readonly`, "new records have no identifier item")
	assert.Contains(t, out, `<option value="cat">Cat</option>`)
	assert.Contains(t, out, `data-autocomplete="/admin/api/autocomplete/user"`)
	assert.NotContains(t, out, `autocomplete-create`, "users cannot be created from the pet form")
	assert.Contains(t, out, `>Save</button>`)
	assert.NotContains(t, out, `btn-cancel`, "no cancel action without a cancel hook")
	assert.Equal(t, 1, strings.Count(out, "autofocus"))
	assert.NotContains(t, out, `aria-invalid`)
}

func TestRender_EditingShowsIdentifierAndMethodOverride(t *testing.T) {
	r := newRenderer(t)
	form, _ := buildForm(entities.PetSchema(), entities.Pet, map[string]any{
		"id":    "p1",
		"name":  "<b>Rex</b>",
		"owner": map[string]any{"id": "u1", "label": "Ann"},
		"size":  "large",
	}, render.PhaseReady)

	out := renderString(t, r, form, render.RenderOptions{Method: "PUT", CancelURL: "/admin/pet"})

	assert.Contains(t, out, `id="pet-id"`)
	assert.Contains(t, out, `value="p1" readonly`)
	assert.Contains(t, out, `<input type="hidden" name="_method" value="PUT">`)
	assert.Contains(t, out, `value="&lt;b&gt;Rex&lt;/b&gt;"`)
	assert.Contains(t, out, `<option value="large" selected>Large</option>`)
	assert.Contains(t, out, `<option value="u1" selected>Ann</option>`)
	assert.Contains(t, out, `<a class="btn btn-cancel" href="/admin/pet">Cancel</a>`)
}

func TestRender_BookingRecord(t *testing.T) {
	r := newRenderer(t)
	form, _ := buildForm(entities.BookingSchema(), entities.Booking, testsupport.MustLoadRecord(t, entities.Booking), render.PhaseReady)

	out := renderString(t, r, form, render.RenderOptions{BasePath: "/admin"})

	assert.Contains(t, out, `<option value="u1" selected>Ann Smith</option>`)
	assert.Contains(t, out, `<option value="p1" selected>Rex</option>`)
	assert.Contains(t, out, `<option value="booked" selected>Booked</option>`)
	assert.Contains(t, out, "Feed twice a day.")
	assert.Contains(t, out, `href="/files/f1"`)
	assert.NotContains(t, out, `aria-invalid`)
}

func TestRender_TouchedErrorsOnly(t *testing.T) {
	r := newRenderer(t)
	schema := entities.PetSchema()
	state := formstate.New(schema, schema.InitialValues(nil))
	state.Touch("name")

	out := renderString(t, r, render.BuildForm(entities.Pet, schema, state, render.PhaseReady), render.RenderOptions{})

	assert.Equal(t, 1, strings.Count(out, `aria-invalid="true"`))
	assert.Contains(t, out, `<li>Name is required</li>`)
	assert.Contains(t, out, `class="input is-invalid"`)
}

func TestRender_SubmittingDisablesActions(t *testing.T) {
	r := newRenderer(t)
	form, _ := buildForm(entities.SettingsSchema(), entities.Settings, map[string]any{"theme": "dark"}, render.PhaseSubmitting)

	out := renderString(t, r, form, render.RenderOptions{CancelURL: "/admin"})

	assert.Contains(t, out, `aria-busy="true"`)
	assert.Contains(t, out, `<button type="submit" class="btn btn-primary" disabled>`)
	assert.Contains(t, out, `<button type="reset" class="btn" disabled>`)
	assert.Contains(t, out, `<a class="btn btn-cancel" aria-disabled="true">`)
	assert.Contains(t, out, `step="1"`)
}

func TestRender_DirtyFormResetsThroughAction(t *testing.T) {
	r := newRenderer(t)
	schema := entities.PetSchema()
	state := formstate.New(schema, schema.InitialValues(map[string]any{"id": "p1", "name": "Rex"}))
	require.NoError(t, state.Set("name", "Max"))

	out := renderString(t, r, render.BuildForm(entities.Pet, schema, state, render.PhaseReady), render.RenderOptions{Action: "/pet/p1"})
	assert.Contains(t, out, `<a class="btn btn-reset" href="/pet/p1">Reset</a>`)
	assert.NotContains(t, out, `type="reset"`)

	state.Reset()
	out = renderString(t, r, render.BuildForm(entities.Pet, schema, state, render.PhaseReady), render.RenderOptions{Action: "/pet/p1"})
	assert.Contains(t, out, `<button type="reset" class="btn">Reset</button>`)
}

func TestRender_LoadingView(t *testing.T) {
	r := newRenderer(t)
	form, _ := buildForm(entities.BookingSchema(), entities.Booking, nil, render.PhaseLoadingRecord)

	out := renderString(t, r, form, render.RenderOptions{})

	assert.Contains(t, out, `class="spinner"`)
	assert.Contains(t, out, `Loading`)
	assert.NotContains(t, out, `<form`)
}

func TestRender_BookingUploadsAndCreateLinks(t *testing.T) {
	r := newRenderer(t)
	photos := []field.FileRef{
		{ID: "f1", Name: "a.png", PublicURL: "/files/f1"},
		{ID: "f2", Name: "b.png", PublicURL: "/files/f2"},
		{ID: "f3", Name: "c.png", PublicURL: "/files/f3"},
	}
	form, _ := buildForm(entities.BookingSchema(), entities.Booking, map[string]any{"photos": photos}, render.PhaseReady)

	out := renderString(t, r, form, render.RenderOptions{BasePath: "/admin"})

	assert.Contains(t, out, `data-upload="/admin/uploads/photos"`)
	assert.Contains(t, out, `accept=".pdf,.png,.jpg,.jpeg"`)
	assert.Contains(t, out, `<img class="file-thumb" src="/files/f1" alt="a.png">`)
	assert.NotContains(t, out, `id="booking-photos" class="input" type="file"`, "photos are full")
	assert.Contains(t, out, `id="booking-receipt" class="input" type="file"`)
	assert.Contains(t, out, `href="/admin/pet/new"`)

	modal := renderString(t, r, form, render.RenderOptions{BasePath: "/admin", Modal: true})
	assert.NotContains(t, modal, `autocomplete-create`)
}

type staticTranslator map[string]string

func (s staticTranslator) Translate(_, key string, _ ...any) (string, error) {
	if msg, ok := s[key]; ok {
		return msg, nil
	}
	return "", assert.AnError
}

func TestRender_Localized(t *testing.T) {
	r := newRenderer(t)
	form, _ := buildForm(entities.PetSchema(), entities.Pet, nil, render.PhaseReady)

	out := renderString(t, r, form, render.RenderOptions{
		Locale: "es",
		Translator: staticTranslator{
			render.FieldLabelKey(entities.Pet, "name"):           "Nombre",
			render.FieldOptionKey(entities.Pet, "size", "small"): "Pequeño",
			"common.save": "Guardar",
		},
	})

	assert.Contains(t, out, `>Nombre <span class="field-required"`)
	assert.Contains(t, out, `<option value="small">Pequeño</option>`)
	assert.Contains(t, out, `>Guardar</button>`)
	assert.Contains(t, out, `>Breed <span`, "missing keys keep the descriptor label")
}

func TestRenderPage_ThemeLinkAndAssets(t *testing.T) {
	r := newRenderer(t)
	form, _ := buildForm(entities.BookingSchema(), entities.Booking, nil, render.PhaseReady)

	out, err := r.RenderPage(context.Background(), form, render.RenderOptions{BasePath: "/admin"}, html.Page{
		Title:       "Booking",
		Links:       []theme.Link{{ID: theme.LinkID, Rel: "stylesheet", Href: "/admin/theme/dark.css"}},
		ThemeSocket: "/admin/ws/theme",
	})
	require.NoError(t, err)
	page := string(out)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Equal(t, 1, strings.Count(page, `id="theme-link"`))
	assert.Contains(t, page, `href="/admin/theme/dark.css"`)
	assert.Contains(t, page, `data-theme-socket="/admin/ws/theme"`)
	assert.Equal(t, 1, strings.Count(page, `src="/admin/assets/autocomplete.js"`))
	assert.Equal(t, 1, strings.Count(page, `src="/admin/assets/upload.js"`))
	assert.Contains(t, page, `src="/admin/assets/theme.js"`)
	assert.Equal(t, 1, strings.Count(page, `src="/admin/assets/form.js"`))
	assert.Contains(t, page, `data-submit-lock`)
	assert.Contains(t, page, `href="/admin/assets/boarding.css"`)
	assert.Contains(t, page, `<a href="/admin/booking/new">New booking</a>`)
}

func TestRenderPage_ThemeSelection(t *testing.T) {
	r := newRenderer(t)
	form, _ := buildForm(entities.PetSchema(), entities.Pet, nil, render.PhaseReady)

	out, err := r.RenderPage(context.Background(), form, render.RenderOptions{
		Theme: &gotheme.RendererConfig{
			Theme: "dark",
			AssetURL: func(key string) string {
				if key == "icon" {
					return "/static/dark/icon.svg"
				}
				return ""
			},
		},
	}, html.Page{Title: "Pet"})
	require.NoError(t, err)
	page := string(out)
	assert.Contains(t, page, `<html lang="en" data-theme="dark">`)
	assert.Contains(t, page, `<link rel="icon" href="/static/dark/icon.svg">`)

	out, err = r.RenderPage(context.Background(), form, render.RenderOptions{}, html.Page{Title: "Pet"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "data-theme=")
	assert.NotContains(t, string(out), `rel="icon"`)
}

func TestNew_UnknownComponent(t *testing.T) {
	r := newRenderer(t)
	form := render.Form{Entity: "x", Phase: render.PhaseReady, Fields: []render.FieldView{
		{Spec: field.Spec{Name: "odd", Component: "slider"}},
	}}
	_, err := r.Render(context.Background(), form, render.RenderOptions{})
	assert.Error(t, err)
}
