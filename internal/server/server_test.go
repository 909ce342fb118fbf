package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goliatone/go-boarding/internal/storage"
	"github.com/goliatone/go-boarding/pkg/appstate"
	"github.com/goliatone/go-boarding/pkg/entities"
	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/form"
	"github.com/goliatone/go-boarding/pkg/graphql"
	"github.com/goliatone/go-boarding/pkg/i18n"
	"github.com/goliatone/go-boarding/pkg/renderers/html"
	"github.com/goliatone/go-boarding/pkg/service"
	"github.com/goliatone/go-boarding/pkg/testsupport"
	"github.com/goliatone/go-boarding/pkg/theme"
	"github.com/goliatone/go-boarding/pkg/upload"
)

// fakeBackend answers GraphQL operations with canned JSON.
type fakeBackend struct {
	mu      sync.Mutex
	ops     []string
	results map[string]string
	errs    map[string]error
}

func (f *fakeBackend) Do(_ context.Context, op, _ string, _ map[string]any, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
	if err := f.errs[op]; err != nil {
		return err
	}
	raw, ok := f.results[op]
	if !ok {
		return graphql.ErrNotFound
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

func (f *fakeBackend) called(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, got := range f.ops {
		if got == op {
			return true
		}
	}
	return false
}

func newTestServer(t *testing.T, backend *fakeBackend) *Server {
	t.Helper()

	app := appstate.New()
	catalog, err := theme.NewCatalog("")
	require.NoError(t, err)
	head := theme.NewHead()
	var applier *theme.Applier
	hub := theme.NewHub(func() (theme.Link, bool) { return applier.Current() }, nil)
	t.Cleanup(hub.Close)
	applier, err = theme.NewApplier(catalog, head, app, theme.WithBroadcaster(hub))
	require.NoError(t, err)
	require.NoError(t, applier.ApplyTheme(context.Background(), "default"))

	directory, err := service.NewDefaultDirectory(backend)
	require.NoError(t, err)
	settings, err := service.NewSettings(backend, applier)
	require.NoError(t, err)

	dir := t.TempDir()
	files, err := storage.Open(filepath.Join(dir, "files.db"), filepath.Join(dir, "files"), "/files")
	require.NoError(t, err)
	t.Cleanup(func() { _ = files.Close() })
	uploads, err := upload.NewManager(files)
	require.NoError(t, err)

	renderer, err := html.New(html.WithCreatable(entities.Booking, entities.Pet))
	require.NoError(t, err)
	messages, err := i18n.New("en")
	require.NoError(t, err)

	srv, err := New(Options{}, Deps{
		Entities:  entities.NewRegistry(catalog.IDs()...),
		Directory: directory,
		Settings:  settings,
		Themes:    applier,
		Head:      head,
		Hub:       hub,
		Uploads:   uploads,
		Files:     files,
		Renderer:  renderer,
		Messages:  messages,
		App:       app,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	return srv
}

func postForm(t *testing.T, h http.Handler, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	values.Set(csrfField, "token-1")
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookie, Value: "token-1"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entities registry is required")
	assert.Contains(t, err.Error(), "html renderer is required")
}

func TestHandler_HealthAndRedirect(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()

	rec := get(h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(h, "/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/settings", rec.Header().Get("Location"))
}

func TestEntityForm_NewPetPage(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()

	rec := get(h, "/pet/new")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, `name="csrf_token"`)
	assert.Contains(t, body, `href="/theme/default.css"`)
	assert.Contains(t, body, `data-theme-socket="/ws/theme"`)
	assert.Contains(t, body, "<title>Pet | Boarding</title>")
	assert.Contains(t, body, `data-theme="default"`)
	assert.Contains(t, body, `data-submit-lock`)
	assert.Contains(t, body, `src="/assets/form.js"`)
	assert.Contains(t, body, `<button type="reset"`)
	assert.NotEmpty(t, rec.Result().Cookies())
}

func TestEntityForm_LoadsRecord(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{
		"petFind":     testsupport.MustRawRecord(t, "pet"),
		"bookingFind": testsupport.MustRawRecord(t, "booking"),
	}}
	h := newTestServer(t, backend).Handler()

	rec := get(h, "/pet/p1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Rex"`)
	assert.True(t, backend.called("petFind"))

	rec = get(h, "/booking/b1?return=/pet/p1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/files/f1"`)
	assert.Contains(t, body, `data-upload="/uploads/photos"`)
	assert.Contains(t, body, `href="/pet/p1"`)
}

func TestEntityForm_ModalHidesCreateLinks(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()

	assert.Contains(t, get(h, "/booking/new").Body.String(), `class="autocomplete-create" href="/pet/new"`)
	assert.NotContains(t, get(h, "/booking/new?modal=1").Body.String(), `autocomplete-create`)
}

func TestEntityForm_Localized(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/pet/new", nil)
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<html lang="es">`)
	assert.Contains(t, body, ">Nueva mascota</a>")
	assert.Contains(t, body, ">Guardar</button>")
}

func TestEntityForm_UnknownEntity(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()
	rec := get(h, "/invoice/new")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveEntity_RequiresCSRF(t *testing.T) {
	backend := &fakeBackend{}
	h := newTestServer(t, backend).Handler()

	req := httptest.NewRequest(http.MethodPost, "/pet/new", strings.NewReader("name=Rex"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, backend.called("petCreate"))
}

func TestSaveEntity_InvalidFormIsNotSent(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{"petCreate": `{"id":"p1"}`}}
	h := newTestServer(t, backend).Handler()

	rec := postForm(t, h, "/pet/new", url.Values{"name": {"Rex"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Breed is required")
	assert.Contains(t, rec.Body.String(), `value="Rex"`)
	assert.False(t, backend.called("petCreate"))
}

func TestSaveEntity_CreatesAndRedirects(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{"petCreate": `{"id":"p1","name":"Rex"}`}}
	h := newTestServer(t, backend).Handler()

	rec := postForm(t, h, "/pet/new", url.Values{
		"owner": {"u1"},
		"name":  {"Rex"},
		"type":  {"dog"},
		"breed": {"Labrador"},
		"size":  {"small"},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/pet/p1", rec.Header().Get("Location"))
	assert.True(t, backend.called("petCreate"))
}

func TestSaveEntity_ServerFieldErrors(t *testing.T) {
	backend := &fakeBackend{
		results: map[string]string{"petFind": testsupport.MustRawRecord(t, "pet")},
		errs: map[string]error{"petUpdate": graphql.Errors{
			{Message: "Name taken", Extensions: map[string]any{"field": "data.name"}},
		}},
	}
	h := newTestServer(t, backend).Handler()

	rec := postForm(t, h, "/pet/p1?return=/booking/b1", url.Values{
		"owner": {"u1"},
		"name":  {"Max"},
		"type":  {"dog"},
		"breed": {"Labrador"},
		"size":  {"small"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Name taken")
	assert.Contains(t, body, `value="Max"`)
	// Reset goes back to the stored record instead of the posted values.
	assert.Contains(t, body, `class="btn btn-reset" href="/pet/p1?return=/booking/b1"`)
	assert.NotContains(t, body, `<button type="reset"`)
	assert.True(t, backend.called("petFind"))
}

func TestSaveEntity_ResetBaselineIsStoredRecord(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{"petFind": testsupport.MustRawRecord(t, "pet")}}
	srv := newTestServer(t, backend)
	records, schema, ok := srv.entityService(httptest.NewRecorder(), entities.Pet)
	require.True(t, ok)

	record, err := records.Find(context.Background(), "p1").Unwrap()
	require.NoError(t, err)
	c, err := form.New(entities.Pet, schema, form.WithRecord(record), form.WithSubmit(records.Submit))
	require.NoError(t, err)
	require.NoError(t, applyPosted(c, schema, url.Values{"name": {"Max"}}))
	assert.Equal(t, "Max", c.State().Value("name"))

	c.Reset()
	assert.Equal(t, "Rex", c.State().Value("name"))
	assert.Equal(t, "p1", c.State().Value("id"))
}

func TestSaveSettings_AppliesTheme(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{"settingsSave": `true`}}
	srv := newTestServer(t, backend)
	h := srv.Handler()

	rec := postForm(t, h, "/settings", url.Values{
		"theme":    {"dark"},
		"dailyFee": {"12.5"},
		"capacity": {"8"},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/settings", rec.Header().Get("Location"))
	link, ok := srv.Themes.Current()
	require.True(t, ok)
	assert.Equal(t, "/theme/dark.css", link.Href)
	assert.Len(t, srv.Head.Active(), 1)
}

func TestSettingsForm_BackendFailure(t *testing.T) {
	backend := &fakeBackend{errs: map[string]error{"settingsFind": graphql.ErrUnauthenticated}}
	h := newTestServer(t, backend).Handler()

	rec := get(h, "/settings")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStylesheet(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()

	rec := get(h, "/theme/dark.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.Contains(t, rec.Body.String(), "--color-primary")

	rec = get(h, "/theme/nope.css")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpenAPI(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()

	rec := get(h, "/openapi.json")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	assert.Contains(t, schemas, "PetInput")
	assert.Contains(t, schemas, "BookingInput")
}

func TestAutocomplete(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{
		"userAutocomplete": `[{"id":"u1","label":"Ann"}]`,
	}}
	h := newTestServer(t, backend).Handler()

	rec := get(h, "/api/autocomplete/user?q=an")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[{"value":"u1","label":"Ann"}]}`, rec.Body.String())

	rec = get(h, "/api/autocomplete/invoice?q=an")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartUpload(t *testing.T, name string, content []byte, current ...string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for _, ref := range current {
		require.NoError(t, mw.WriteField("current", ref))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func postUpload(h http.Handler, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(csrfHeader, "token-1")
	req.AddCookie(&http.Cookie{Name: csrfCookie, Value: "token-1"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUploadAndServeFile(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()

	body, contentType := multipartUpload(t, "receipt.pdf", []byte("%PDF-1.4 receipt"))
	rec := postUpload(h, "/uploads/receipt", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ref field.FileRef
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ref))
	assert.Equal(t, "receipt.pdf", ref.Name)
	assert.Equal(t, "/files/"+ref.ID, ref.PublicURL)

	rec = get(h, ref.PublicURL)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	data, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 receipt", string(data))

	// The receipt field holds a single file.
	current, err := json.Marshal(ref)
	require.NoError(t, err)
	body, contentType = multipartUpload(t, "second.pdf", []byte("%PDF"), string(current))
	rec = postUpload(h, "/uploads/receipt", body, contentType)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors"`)
}

func TestUpload_RejectsFormat(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()

	body, contentType := multipartUpload(t, "receipt.exe", []byte("MZ"))
	rec := postUpload(h, "/uploads/receipt", body, contentType)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = get(h, "/files/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_RequiresCSRF(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()

	body, contentType := multipartUpload(t, "receipt.pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/uploads/receipt", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// A token in the multipart body is not read.
	var payload bytes.Buffer
	mw := multipart.NewWriter(&payload)
	require.NoError(t, mw.WriteField(csrfField, "token-1"))
	part, err := mw.CreateFormFile("file", "receipt.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/uploads/receipt", &payload)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: csrfCookie, Value: "token-1"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpload_RejectsOversizedBody(t *testing.T) {
	h := newTestServer(t, &fakeBackend{}).Handler()

	// The receipt field accepts 2 MiB per file.
	body, contentType := multipartUpload(t, "receipt.pdf", bytes.Repeat([]byte("x"), 4<<20))
	rec := postUpload(h, "/uploads/receipt", body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds the 2097152 bytes limit")
}

func TestHandler_BasePath(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})
	srv.opts.BasePath = "/admin"
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, get(h, "/admin/healthz").Code)
	assert.Equal(t, http.StatusOK, get(h, "/admin/assets/"+html.StylesheetName).Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/healthz").Code)
}

func testToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, appstate.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestReauthenticate_RestoresSignedOutSession(t *testing.T) {
	backend := &fakeBackend{errs: map[string]error{"settingsFind": errors.New("connection refused")}}
	srv := newTestServer(t, backend)
	settings, err := service.NewSettings(backend, srv.Themes, service.WithPolicy(service.SignOutPolicy(srv.App)))
	require.NoError(t, err)
	srv.Settings = settings
	require.NoError(t, srv.App.SignIn(testToken(t, "ann")))

	srv.ApplyInitialTheme(context.Background())
	assert.False(t, srv.App.Snapshot().Authenticated)

	backend.mu.Lock()
	backend.errs = nil
	backend.results = map[string]string{"settingsFind": `{"theme":"dark","dailyFee":10,"capacity":4}`}
	backend.mu.Unlock()

	reload := make(chan os.Signal, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchTokenReload(ctx, srv, reload, func() (string, error) { return testToken(t, "bob"), nil }, zap.NewNop())
	}()
	reload <- syscall.SIGHUP

	require.Eventually(t, func() bool {
		snap := srv.App.Snapshot()
		return snap.Authenticated && snap.Theme == "dark"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "bob", srv.App.Snapshot().Subject)
	cancel()
	<-done

	assert.Error(t, srv.Reauthenticate(context.Background(), ""))
}
