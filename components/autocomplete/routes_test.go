package autocomplete

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-boarding/pkg/field"
)

func TestRegisterRoutes_UsesPathEntity(t *testing.T) {
	source := &recordingSource{opts: []field.Option{{ID: "p1", Label: "Rex"}}}
	mux := http.NewServeMux()

	pattern, err := New(WithSource(source)).RegisterRoutes(mux, "/admin/")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if pattern != "/admin/api/autocomplete/{entity}" {
		t.Fatalf("unexpected pattern %q", pattern)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/api/autocomplete/pet?q=re", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if source.entity != "pet" {
		t.Fatalf("expected pet lookup, got %q", source.entity)
	}
}

func TestRegisterRoutes_RequiresSource(t *testing.T) {
	if _, err := RegisterRoutes(http.NewServeMux(), ""); err == nil {
		t.Fatalf("expected missing source error")
	}
	if _, err := RegisterRoutes(nil, "", WithSource(&recordingSource{})); err == nil {
		t.Fatalf("expected missing mux error")
	}
}

func TestURL(t *testing.T) {
	if got := URL("/admin", "user"); got != "/admin/api/autocomplete/user" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := New().URL("", "pet"); got != "/api/autocomplete/pet" {
		t.Fatalf("unexpected url %q", got)
	}
}
