package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/goliatone/go-boarding/pkg/field"
)

// Directory routes per-entity calls to their Records service.
type Directory struct {
	records map[string]*Records
}

// NewDirectory indexes services by entity name.
func NewDirectory(services ...*Records) *Directory {
	d := &Directory{records: make(map[string]*Records, len(services))}
	for _, svc := range services {
		if svc != nil {
			d.records[svc.Entity()] = svc
		}
	}
	return d
}

// Records returns the service of entity.
func (d *Directory) Records(entity string) (*Records, error) {
	svc, ok := d.records[entity]
	if !ok {
		return nil, fmt.Errorf("service: no service for entity %q", entity)
	}
	return svc, nil
}

// Entities lists the registered entity names, sorted.
func (d *Directory) Entities() []string {
	out := make([]string, 0, len(d.records))
	for name := range d.records {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Autocomplete searches entity. It backs autocomplete items in every
// renderer.
func (d *Directory) Autocomplete(ctx context.Context, entity, query string, limit int) ([]field.Option, error) {
	svc, err := d.Records(entity)
	if err != nil {
		return nil, err
	}
	return svc.Autocomplete(ctx, query, limit).Unwrap()
}

// NewDefaultDirectory wires the booking, pet and user services.
func NewDefaultDirectory(client Doer) (*Directory, error) {
	var services []*Records
	for _, entry := range []struct {
		entity string
		ops    Operations
	}{
		{"booking", BookingOperations},
		{"pet", PetOperations},
		{"user", UserOperations},
	} {
		svc, err := NewRecords(client, entry.entity, entry.ops)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return NewDirectory(services...), nil
}
