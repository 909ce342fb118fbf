package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-boarding/pkg/graphql"
)

// Settings is the process-wide settings record.
type Settings struct {
	Theme    string  `json:"theme"`
	DailyFee float64 `json:"dailyFee"`
	Capacity int     `json:"capacity"`
}

// Map returns s in the form shape used by the settings schema.
func (s Settings) Map() map[string]any {
	return map[string]any{"theme": s.Theme, "dailyFee": s.DailyFee, "capacity": s.Capacity}
}

// SettingsFromMap reads cast form values.
func SettingsFromMap(values map[string]any) Settings {
	out := Settings{}
	out.Theme, _ = values["theme"].(string)
	switch v := values["dailyFee"].(type) {
	case float64:
		out.DailyFee = v
	case int64:
		out.DailyFee = float64(v)
	}
	switch v := values["capacity"].(type) {
	case int64:
		out.Capacity = int(v)
	case float64:
		out.Capacity = int(v)
	case int:
		out.Capacity = v
	}
	return out
}

const (
	settingsFindQuery = `query settingsFind {
  settingsFind {
    theme
    dailyFee
    capacity
  }
}`
	settingsSaveQuery = `mutation settingsSave($settings: SettingsInput!) {
  settingsSave(settings: $settings)
}`
)

// Doer runs a named GraphQL operation. *graphql.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, op, query string, variables map[string]any, out any) error
}

// ThemeApplier installs the active stylesheet. *theme.Applier satisfies it.
type ThemeApplier interface {
	ApplyTheme(ctx context.Context, id string) error
}

// SessionEnder ends the operator session. *appstate.Context satisfies it.
type SessionEnder interface {
	SignOut()
}

// Policy decides how a failed session-sensitive read escalates. It returns
// the error handed to the caller.
type Policy func(ctx context.Context, err error) error

// SignOutPolicy signs the operator out once and propagates err, so a stale
// session never keeps using cached settings.
func SignOutPolicy(session SessionEnder) Policy {
	return func(_ context.Context, err error) error {
		if session != nil {
			session.SignOut()
		}
		return err
	}
}

// InlinePolicy propagates err without touching the session.
func InlinePolicy() Policy {
	return func(_ context.Context, err error) error { return err }
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithPolicy overrides the escalation applied when FetchAndApply fails to
// read settings.
func WithPolicy(policy Policy) SettingsOption {
	return func(s *SettingsService) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithSettingsLogger overrides the service logger.
func WithSettingsLogger(logger *zap.Logger) SettingsOption {
	return func(s *SettingsService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// SettingsService reads and writes the settings record and reflects its
// theme into the presentation layer.
type SettingsService struct {
	client Doer
	themes ThemeApplier
	policy Policy
	logger *zap.Logger
}

// NewSettings builds the settings service. The default policy propagates
// errors inline; wire SignOutPolicy to sign out on failed reads.
func NewSettings(client Doer, themes ThemeApplier, options ...SettingsOption) (*SettingsService, error) {
	if client == nil || themes == nil {
		return nil, errors.New("service: settings needs a client and a theme applier")
	}
	s := &SettingsService{client: client, themes: themes, policy: InlinePolicy(), logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Find fetches the current settings.
func (s *SettingsService) Find(ctx context.Context) graphql.Result[Settings] {
	var out Settings
	if err := s.client.Do(ctx, "settingsFind", settingsFindQuery, nil, &out); err != nil {
		return graphql.Err[Settings](fmt.Errorf("service: settings find: %w", err))
	}
	return graphql.Ok(out)
}

// Save replaces the settings wholesale and returns the server
// acknowledgement.
func (s *SettingsService) Save(ctx context.Context, settings Settings) graphql.Result[bool] {
	var ack bool
	err := s.client.Do(ctx, "settingsSave", settingsSaveQuery, map[string]any{"settings": settings}, &ack)
	if err != nil {
		return graphql.Err[bool](fmt.Errorf("service: settings save: %w", err))
	}
	return graphql.Ok(ack)
}

// FetchAndApply reads the settings and applies their theme. A failed read is
// escalated through the service policy exactly once and returned.
func (s *SettingsService) FetchAndApply(ctx context.Context) (Settings, error) {
	settings, err := s.Find(ctx).Unwrap()
	if err != nil {
		s.logger.Warn("settings fetch failed", zap.Error(err))
		return Settings{}, s.policy(ctx, err)
	}
	if err := s.ApplyTheme(ctx, settings.Theme); err != nil {
		return settings, err
	}
	return settings, nil
}

// ApplyTheme swaps the active stylesheet to id.
func (s *SettingsService) ApplyTheme(ctx context.Context, id string) error {
	if err := s.themes.ApplyTheme(ctx, id); err != nil {
		return fmt.Errorf("service: apply theme: %w", err)
	}
	return nil
}
