// Package appstate holds the process-wide application context: the active
// theme and the operator session. Readers get immutable snapshots; writes go
// through the explicit entry points below and the last writer wins.
package appstate

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when an operation needs a session and none
// is active.
var ErrUnauthenticated = errors.New("appstate: not signed in")

// Snapshot is a read-only view of the application context.
type Snapshot struct {
	Theme         string
	Stylesheet    string
	Authenticated bool
	Token         string
	Subject       string
	ExpiresAt     time.Time
}

// Claims are the session token claims the admin reads.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Option configures a Context.
type Option func(*Context)

// WithVerifyKey makes SignIn verify HS256 token signatures with key. Without
// it tokens are decoded but their signature is left to the API.
func WithVerifyKey(key []byte) Option {
	return func(c *Context) {
		c.key = key
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}

// Context is the single shared application context.
type Context struct {
	current atomic.Pointer[Snapshot]
	key     []byte
	now     func() time.Time
}

// New returns an empty context. Call Init before serving.
func New(options ...Option) *Context {
	c := &Context{now: time.Now}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.current.Store(&Snapshot{})
	return c
}

// Init sets the initial theme. The session is left as is.
func (c *Context) Init(theme, stylesheet string) {
	c.update(func(s Snapshot) Snapshot {
		s.Theme = theme
		s.Stylesheet = stylesheet
		return s
	})
}

// Snapshot returns the current state.
func (c *Context) Snapshot() Snapshot {
	return *c.current.Load()
}

// SetTheme records the active theme and its stylesheet reference.
func (c *Context) SetTheme(theme, stylesheet string) {
	c.Init(theme, stylesheet)
}

// SignIn installs token as the active session.
func (c *Context) SignIn(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrUnauthenticated
	}
	claims, err := c.parse(token)
	if err != nil {
		return err
	}
	c.update(func(s Snapshot) Snapshot {
		s.Authenticated = true
		s.Token = token
		s.Subject = claims.Subject
		s.ExpiresAt = time.Time{}
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
		return s
	})
	return nil
}

func (c *Context) parse(token string) (*Claims, error) {
	claims := &Claims{}
	if len(c.key) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("appstate: decode token: %w", err)
		}
		if claims.ExpiresAt != nil && !claims.ExpiresAt.After(c.now()) {
			return nil, fmt.Errorf("appstate: token expired at %s", claims.ExpiresAt.Time.Format(time.RFC3339))
		}
		return claims, nil
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, fmt.Errorf("appstate: verify token: %w", err)
	}
	return claims, nil
}

// SignOut clears the session. The theme is kept.
func (c *Context) SignOut() {
	c.update(func(s Snapshot) Snapshot {
		s.Authenticated = false
		s.Token = ""
		s.Subject = ""
		s.ExpiresAt = time.Time{}
		return s
	})
}

// Token returns the bearer token of an active, unexpired session.
func (c *Context) Token() (string, error) {
	s := c.Snapshot()
	if !s.Authenticated {
		return "", ErrUnauthenticated
	}
	if !s.ExpiresAt.IsZero() && !s.ExpiresAt.After(c.now()) {
		return "", ErrUnauthenticated
	}
	return s.Token, nil
}

func (c *Context) update(fn func(Snapshot) Snapshot) {
	for {
		old := c.current.Load()
		next := fn(*old)
		if c.current.CompareAndSwap(old, &next) {
			return
		}
	}
}
