package i18n_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-boarding/pkg/i18n"
	"github.com/goliatone/go-boarding/pkg/render"
)

func TestCatalog_TranslateWithFallbacks(t *testing.T) {
	catalog, err := i18n.New("en")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if diff := cmp.Diff([]string{"en", "es", "pt-BR"}, catalog.Locales()); diff != "" {
		t.Fatalf("locales mismatch (-want +got):\n%s", diff)
	}

	cases := []struct {
		locale, key, want string
	}{
		{"es", render.FieldLabelKey("pet", "name"), "Nombre"},
		{"es-MX", render.FieldOptionKey("pet", "size", "small"), "Pequeño"},
		{"pt-BR", render.FieldLabelKey("pet", "bookings"), "Bookings"},
		{"fr", "common.save", "Save"},
	}
	for _, tc := range cases {
		got, err := catalog.Translate(tc.locale, tc.key)
		if err != nil || got != tc.want {
			t.Fatalf("translate(%s, %s) = %q, %v; want %q", tc.locale, tc.key, got, err, tc.want)
		}
	}

	if got, _ := catalog.Translate("es", "common.saved", "Mascota"); got != "Mascota guardado" {
		t.Fatalf("unexpected formatted message %q", got)
	}
	if _, err := catalog.Translate("es", "nope"); !errors.Is(err, i18n.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}

func TestCatalog_Match(t *testing.T) {
	catalog, err := i18n.New("en")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cases := map[string]string{
		"es-MX,es;q=0.9": "es",
		"pt-BR":          "pt-BR",
		"fr-FR":          "en",
		"":               "en",
	}
	for header, want := range cases {
		if got := catalog.Match(header); got != want {
			t.Fatalf("Match(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestCatalog_Load(t *testing.T) {
	catalog := i18n.NewEmpty("en")
	if err := catalog.Load("en", []byte("common:\n  save: Store\n")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, _ := catalog.Translate("en", "common.save"); got != "Store" {
		t.Fatalf("unexpected %q", got)
	}
	if err := catalog.Load("en", []byte("common: [unclosed")); err == nil {
		t.Fatalf("expected parse error")
	}
}
