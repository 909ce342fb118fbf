package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/form"
	"github.com/goliatone/go-boarding/pkg/formschema"
	"github.com/goliatone/go-boarding/pkg/graphql"
	"github.com/goliatone/go-boarding/pkg/service"
)

type call struct {
	op        string
	query     string
	variables map[string]any
}

// fakeClient answers operations with canned JSON results or errors.
type fakeClient struct {
	calls   []call
	results map[string]string
	errs    map[string]error
}

func (f *fakeClient) Do(_ context.Context, op, query string, variables map[string]any, out any) error {
	f.calls = append(f.calls, call{op: op, query: query, variables: variables})
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

type themeRecorder struct {
	applied []string
}

func (t *themeRecorder) ApplyTheme(_ context.Context, id string) error {
	t.applied = append(t.applied, id)
	return nil
}

type sessionCounter struct {
	signOuts int
}

func (s *sessionCounter) SignOut() { s.signOuts++ }

func TestFetchAndApply_AppliesTheme(t *testing.T) {
	client := &fakeClient{results: map[string]string{
		"settingsFind": `{"theme":"dark","dailyFee":10,"capacity":4}`,
	}}
	themes := &themeRecorder{}
	svc, err := service.NewSettings(client, themes)
	require.NoError(t, err)

	settings, err := svc.FetchAndApply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.Settings{Theme: "dark", DailyFee: 10, Capacity: 4}, settings)
	assert.Equal(t, []string{"dark"}, themes.applied)
}

func TestFetchAndApply_FailureSignsOutExactlyOnce(t *testing.T) {
	boom := errors.New("connection refused")
	client := &fakeClient{errs: map[string]error{"settingsFind": boom}}
	themes := &themeRecorder{}
	session := &sessionCounter{}
	svc, err := service.NewSettings(client, themes, service.WithPolicy(service.SignOutPolicy(session)))
	require.NoError(t, err)

	_, err = svc.FetchAndApply(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, session.signOuts)
	assert.Empty(t, themes.applied)
	assert.Len(t, client.calls, 1)
}

func TestSettingsSave_SendsWholeRecord(t *testing.T) {
	client := &fakeClient{results: map[string]string{"settingsSave": `true`}}
	svc, _ := service.NewSettings(client, &themeRecorder{})

	ack, err := svc.Save(context.Background(), service.Settings{Theme: "gold", DailyFee: 12.5, Capacity: 8}).Unwrap()
	require.NoError(t, err)
	assert.True(t, ack)
	require.Len(t, client.calls, 1)
	assert.Equal(t, service.Settings{Theme: "gold", DailyFee: 12.5, Capacity: 8}, client.calls[0].variables["settings"])
}

func TestSettingsFromMap(t *testing.T) {
	got := service.SettingsFromMap(map[string]any{"theme": "red", "dailyFee": 9.5, "capacity": int64(3)})
	assert.Equal(t, service.Settings{Theme: "red", DailyFee: 9.5, Capacity: 3}, got)
	assert.Equal(t, got, service.SettingsFromMap(got.Map()))
}

func TestRecords_SaveCreatesOrUpdates(t *testing.T) {
	client := &fakeClient{results: map[string]string{
		"petCreate": `{"id":"p1","name":"Rex"}`,
		"petUpdate": `{"id":"p1","name":"Max"}`,
	}}
	pets, err := service.NewRecords(client, "pet", service.PetOperations)
	require.NoError(t, err)

	created, err := pets.Save(context.Background(), "", map[string]any{"name": "Rex"}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "p1", created["id"])

	_, err = pets.Save(context.Background(), "p1", map[string]any{"name": "Max"}).Unwrap()
	require.NoError(t, err)

	require.Len(t, client.calls, 2)
	assert.Equal(t, "petCreate", client.calls[0].op)
	assert.NotContains(t, client.calls[0].variables, "id")
	assert.True(t, strings.Contains(client.calls[0].query, "$data: PetInput!"))
	assert.Equal(t, "petUpdate", client.calls[1].op)
	assert.Equal(t, "p1", client.calls[1].variables["id"])
}

func petSchema(t *testing.T) *formschema.Schema {
	t.Helper()
	schema, err := formschema.New(
		field.ID{Base: field.Base{FieldName: "id"}},
		[]field.Descriptor{
			field.String{Base: field.Base{FieldName: "name", FieldLabel: "Name", IsRequired: true}},
		},
	)
	require.NoError(t, err)
	return schema
}

func TestRecords_FailedSaveKeepsFormValues(t *testing.T) {
	client := &fakeClient{errs: map[string]error{"petCreate": graphql.Errors{
		{Message: "Name taken", Extensions: map[string]any{"field": "data.name"}},
	}}}
	pets, _ := service.NewRecords(client, "pet", service.PetOperations)
	schema := petSchema(t)
	c, err := form.New("pet", schema, form.WithRecord(nil), form.WithSubmit(pets.Submit))
	require.NoError(t, err)
	require.NoError(t, c.State().Set("name", "Rex"))

	_, err = c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Rex", c.State().Value("name"))
	assert.Equal(t, []string{"Name taken"}, c.State().ErrorsFor("name"))
}

func TestDirectory_Autocomplete(t *testing.T) {
	client := &fakeClient{results: map[string]string{
		"userAutocomplete": `[{"id":"u1","label":"Ann"}]`,
	}}
	dir, err := service.NewDefaultDirectory(client)
	require.NoError(t, err)
	assert.Equal(t, []string{"booking", "pet", "user"}, dir.Entities())

	opts, err := dir.Autocomplete(context.Background(), "user", "an", 5)
	require.NoError(t, err)
	assert.Equal(t, []field.Option{{ID: "u1", Label: "Ann"}}, opts)
	assert.Equal(t, 5, client.calls[0].variables["limit"])

	opts, err = dir.Autocomplete(context.Background(), "pet", "zz", 5)
	require.NoError(t, err)
	assert.Empty(t, opts)

	_, err = dir.Autocomplete(context.Background(), "invoice", "x", 5)
	assert.Error(t, err)

	users, _ := dir.Records("user")
	_, err = users.Find(context.Background(), "u1").Unwrap()
	assert.Error(t, err)
}
