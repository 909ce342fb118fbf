package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/form"
	"github.com/goliatone/go-boarding/pkg/graphql"
)

// Operations names the GraphQL operations of one entity. Empty names disable
// the matching method.
type Operations struct {
	Find         string
	Create       string
	Update       string
	Autocomplete string
	// Input is the GraphQL input type of create and update.
	Input string
	// Selection is the selection set read back from find, create and update.
	Selection string
}

// Records is the remote access service of one entity.
type Records struct {
	client Doer
	entity string
	ops    Operations
}

// NewRecords builds a service for entity.
func NewRecords(client Doer, entity string, ops Operations) (*Records, error) {
	if client == nil {
		return nil, errors.New("service: client is required")
	}
	if strings.TrimSpace(entity) == "" {
		return nil, errors.New("service: entity is required")
	}
	return &Records{client: client, entity: entity, ops: ops}, nil
}

// Entity returns the entity name.
func (r *Records) Entity() string { return r.entity }

// Find fetches the record with id.
func (r *Records) Find(ctx context.Context, id string) graphql.Result[map[string]any] {
	if r.ops.Find == "" {
		return graphql.Err[map[string]any](fmt.Errorf("service: %s: find is not supported", r.entity))
	}
	query := fmt.Sprintf("query %[1]s($id: String!) {\n  %[1]s(id: $id) %[2]s\n}", r.ops.Find, r.ops.Selection)
	var out map[string]any
	if err := r.client.Do(ctx, r.ops.Find, query, map[string]any{"id": id}, &out); err != nil {
		return graphql.Err[map[string]any](fmt.Errorf("service: %s find %s: %w", r.entity, id, err))
	}
	return graphql.Ok(out)
}

// Save creates a record when id is empty and updates it otherwise. The whole
// data payload is sent; there is no partial save.
func (r *Records) Save(ctx context.Context, id string, data map[string]any) graphql.Result[map[string]any] {
	op, query, vars := r.ops.Create, "", map[string]any{"data": data}
	if id == "" {
		query = fmt.Sprintf("mutation %[1]s($data: %[2]s!) {\n  %[1]s(data: $data) %[3]s\n}", op, r.ops.Input, r.ops.Selection)
	} else {
		op = r.ops.Update
		vars["id"] = id
		query = fmt.Sprintf("mutation %[1]s($id: String!, $data: %[2]s!) {\n  %[1]s(id: $id, data: $data) %[3]s\n}", op, r.ops.Input, r.ops.Selection)
	}
	if op == "" {
		return graphql.Err[map[string]any](fmt.Errorf("service: %s: save is not supported", r.entity))
	}
	var out map[string]any
	if err := r.client.Do(ctx, op, query, vars, &out); err != nil {
		return graphql.Err[map[string]any](fmt.Errorf("service: %s save: %w", r.entity, err))
	}
	return graphql.Ok(out)
}

// Autocomplete searches records by query.
func (r *Records) Autocomplete(ctx context.Context, query string, limit int) graphql.Result[[]field.Option] {
	if r.ops.Autocomplete == "" {
		return graphql.Err[[]field.Option](fmt.Errorf("service: %s: autocomplete is not supported", r.entity))
	}
	gql := fmt.Sprintf("query %[1]s($query: String, $limit: Int) {\n  %[1]s(query: $query, limit: $limit) {\n    id\n    label\n  }\n}", r.ops.Autocomplete)
	var out []field.Option
	if err := r.client.Do(ctx, r.ops.Autocomplete, gql, map[string]any{"query": query, "limit": limit}, &out); err != nil {
		if errors.Is(err, graphql.ErrNotFound) {
			return graphql.Ok([]field.Option{})
		}
		return graphql.Err[[]field.Option](fmt.Errorf("service: %s autocomplete: %w", r.entity, err))
	}
	return graphql.Ok(out)
}

// Loader adapts Find to a form container load function.
func (r *Records) Loader(id string) form.LoadFunc {
	return func(ctx context.Context) (map[string]any, error) {
		return r.Find(ctx, id).Unwrap()
	}
}

// Submit adapts Save to a form container submit handler.
func (r *Records) Submit(ctx context.Context, id string, data map[string]any) (map[string]any, error) {
	return r.Save(ctx, id, data).Unwrap()
}

var _ form.SubmitFunc = (*Records)(nil).Submit

const fileSelection = "{\n      id\n      name\n      sizeInBytes\n      publicUrl\n      privateUrl\n    }"

// BookingOperations are the booking operations.
var BookingOperations = Operations{
	Find:         "bookingFind",
	Create:       "bookingCreate",
	Update:       "bookingUpdate",
	Autocomplete: "bookingAutocomplete",
	Input:        "BookingInput",
	Selection: `{
    id
    owner { id label: fullName }
    pet { id label: name }
    arrival
    departure
    clientNotes
    employeeNotes
    photos ` + fileSelection + `
    status
    cancellationNotes
    fee
    receipt ` + fileSelection + `
  }`,
}

// PetOperations are the pet operations.
var PetOperations = Operations{
	Find:         "petFind",
	Create:       "petCreate",
	Update:       "petUpdate",
	Autocomplete: "petAutocomplete",
	Input:        "PetInput",
	Selection: `{
    id
    owner { id label: fullName }
    name
    type
    breed
    size
    bookings { id label: arrival }
  }`,
}

// UserOperations only support the owner autocomplete.
var UserOperations = Operations{
	Autocomplete: "userAutocomplete",
}
