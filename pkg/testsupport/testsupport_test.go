package testsupport_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-boarding/pkg/entities"
	"github.com/goliatone/go-boarding/pkg/testsupport"
)

func TestFixturesMatchSchemas(t *testing.T) {
	registry := entities.NewRegistry()
	for _, name := range []string{entities.Booking, entities.Pet, entities.Settings} {
		record := testsupport.MustLoadRecord(t, name)
		schema, err := registry.Schema(name)
		if err != nil {
			t.Fatalf("schema %s: %v", name, err)
		}
		values := schema.InitialValues(record)
		if errs := schema.ValidateAll(values); len(errs) > 0 {
			t.Fatalf("fixture %s does not validate: %v", name, errs)
		}
		var keys []string
		for key := range record {
			if _, ok := schema.Field(key); !ok && key != schema.ID().Name() {
				keys = append(keys, key)
			}
		}
		if diff := cmp.Diff([]string(nil), keys); diff != "" {
			t.Fatalf("fixture %s has unknown keys (-want +got):\n%s", name, diff)
		}
	}
}

func TestLoadRecord_Unknown(t *testing.T) {
	if _, err := testsupport.LoadRecord("invoice"); err == nil {
		t.Fatalf("expected error for unknown fixture")
	}
}
