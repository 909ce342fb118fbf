package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/form"
	"github.com/goliatone/go-boarding/pkg/formschema"
	"github.com/goliatone/go-boarding/pkg/render"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, _ SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

type stubOptions map[string][]field.Option

func (s stubOptions) Autocomplete(_ context.Context, entity, _ string, _ int) ([]field.Option, error) {
	return s[entity], nil
}

func petSchema(t *testing.T) *formschema.Schema {
	t.Helper()
	schema, err := formschema.New(
		field.ID{Base: field.Base{FieldName: "id", FieldLabel: "ID"}},
		[]field.Descriptor{
			field.String{Base: field.Base{FieldName: "name", FieldLabel: "Name", IsRequired: true}},
			field.Enum{Base: field.Base{FieldName: "size", FieldLabel: "Size"}, Options: []field.Option{
				{ID: "small", Label: "Small"},
				{ID: "large", Label: "Large"},
			}},
			field.Relation{Base: field.Base{FieldName: "owner", FieldLabel: "Owner", IsRequired: true}, Entity: "user"},
		},
	)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return schema
}

func TestRender_SummaryListsValuesAndErrors(t *testing.T) {
	r, err := New(WithPromptDriver(&stubDriver{}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	c, _ := form.New("pet", petSchema(t), form.WithRecord(map[string]any{
		"id":    "p1",
		"size":  "large",
		"owner": map[string]any{"id": "u1", "label": "Ann"},
	}))
	c.State().Touch("name")

	out, err := r.Render(context.Background(), c.View(), render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(out)
	for _, want := range []string{"ID: p1", "Size: Large", "Owner *: Ann", "! Name is required"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in summary:\n%s", want, got)
		}
	}
}

func TestFill_RepromptsUntilValidAndSaves(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"", "Rex", "ann"},
		selectIdx: []int{2, 0},
		confirm:   []bool{true},
	}
	r, _ := New(
		WithPromptDriver(driver),
		WithOptionSource(stubOptions{"user": {{ID: "u1", Label: "Ann"}}}),
	)

	var gotID string
	var gotData map[string]any
	c, _ := form.New("pet", petSchema(t),
		form.WithRecord(nil),
		form.WithSubmit(func(_ context.Context, id string, data map[string]any) (map[string]any, error) {
			gotID, gotData = id, data
			return map[string]any{"id": "p9", "name": "Rex"}, nil
		}),
	)

	saved, err := r.Fill(context.Background(), c)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if gotID != "" {
		t.Fatalf("new record must submit without id, got %q", gotID)
	}
	want := map[string]any{"name": "Rex", "size": "large", "owner": "u1"}
	if diff := cmp.Diff(want, gotData); diff != "" {
		t.Fatalf("submitted data mismatch (-want +got):\n%s", diff)
	}
	if saved["id"] != "p9" {
		t.Fatalf("expected saved record, got %v", saved)
	}
	if driver.inputPos != 3 {
		t.Fatalf("expected name to be asked twice, consumed %d inputs", driver.inputPos)
	}
}

func TestFill_DecliningSaveCancels(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Rex", "u7"},
		selectIdx: []int{0},
		confirm:   []bool{false},
	}
	r, _ := New(WithPromptDriver(driver))

	cancelled := false
	c, _ := form.New("pet", petSchema(t),
		form.WithRecord(nil),
		form.WithCancel(func() { cancelled = true }),
		form.WithSubmit(func(context.Context, string, map[string]any) (map[string]any, error) {
			t.Fatalf("submit must not run")
			return nil, nil
		}),
	)

	if _, err := r.Fill(context.Background(), c); !errors.Is(err, ErrDiscarded) {
		t.Fatalf("expected ErrDiscarded, got %v", err)
	}
	if !cancelled {
		t.Fatalf("expected cancel hook to run")
	}
}

func TestFill_LoadingContainerIsRejected(t *testing.T) {
	r, _ := New(WithPromptDriver(&stubDriver{}))
	c, _ := form.New("pet", petSchema(t))

	if _, err := r.Fill(context.Background(), c); !errors.Is(err, form.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}
