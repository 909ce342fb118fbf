package field

import (
	"fmt"
	"strings"
)

// Relation is an autocomplete bound to a single record of Entity.
type Relation struct {
	Base
	Entity string
}

func (f Relation) Kind() Kind { return KindRelation }

func (f Relation) Describe() Spec {
	spec := f.spec(KindRelation, ComponentAutocomplete)
	spec.Entity = f.Entity
	return spec
}

func (f Relation) Empty() any { return nil }

func (f Relation) Validate(value any) []string {
	ids, err := RelationIDs(value)
	if err != nil || len(ids) > 1 {
		return []string{fmt.Sprintf("%s is invalid", f.displayName())}
	}
	if len(ids) == 0 && f.IsRequired {
		return []string{f.requiredMessage()}
	}
	return nil
}

// Cast collapses the selection to the related record id.
func (f Relation) Cast(value any) (any, error) {
	ids, err := RelationIDs(value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.FieldName, err)
	}
	switch len(ids) {
	case 0:
		return nil, nil
	case 1:
		return ids[0], nil
	default:
		return nil, fmt.Errorf("field %s: expected one relation, got %d", f.FieldName, len(ids))
	}
}

// Relations is a multi-select autocomplete over Entity.
type Relations struct {
	Base
	Entity string
	Max    int
}

func (f Relations) Kind() Kind { return KindRelations }

func (f Relations) Describe() Spec {
	spec := f.spec(KindRelations, ComponentMultiSelect)
	spec.Entity = f.Entity
	spec.Multiple = true
	return spec
}

func (f Relations) Empty() any { return []string{} }

func (f Relations) Validate(value any) []string {
	ids, err := RelationIDs(value)
	if err != nil {
		return []string{fmt.Sprintf("%s is invalid", f.displayName())}
	}
	if len(ids) == 0 && f.IsRequired {
		return []string{f.requiredMessage()}
	}
	if f.Max > 0 && len(ids) > f.Max {
		return []string{fmt.Sprintf("%s accepts at most %d items", f.displayName(), f.Max)}
	}
	return nil
}

// Cast collapses the selection to a list of ids.
func (f Relations) Cast(value any) (any, error) {
	ids, err := RelationIDs(value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.FieldName, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// RelationIDs extracts record ids from the shapes an autocomplete can hold:
// plain ids, {id,label} options, decoded JSON records with an "id" key, and
// lists of any of those. Blank entries are dropped and duplicates removed.
func RelationIDs(value any) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	var walk func(v any) error
	walk = func(v any) error {
		switch typed := v.(type) {
		case nil:
			return nil
		case string:
			add(typed)
		case []string:
			for _, id := range typed {
				add(id)
			}
		case Option:
			add(typed.ID)
		case []Option:
			for _, opt := range typed {
				add(opt.ID)
			}
		case map[string]any:
			raw, ok := typed["id"]
			if !ok {
				raw = typed["value"]
			}
			id, ok := raw.(string)
			if !ok {
				return fmt.Errorf("relation record without string id")
			}
			add(id)
		case []any:
			for _, item := range typed {
				if err := walk(item); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unsupported relation %T", v)
		}
		return nil
	}

	if err := walk(value); err != nil {
		return nil, err
	}
	return out, nil
}
