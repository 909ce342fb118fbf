package form

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-boarding/pkg/formschema"
	"github.com/goliatone/go-boarding/pkg/formstate"
	"github.com/goliatone/go-boarding/pkg/render"
)

var (
	// ErrSubmitInProgress is returned when a submit arrives while a save is
	// still in flight. The running save is not cancelled.
	ErrSubmitInProgress = errors.New("form: submit already in progress")
	// ErrNotReady is returned when submitting before the record was loaded.
	ErrNotReady = errors.New("form: record still loading")
	// ErrNoSubmitHandler is returned when no submit handler was configured.
	ErrNoSubmitHandler = errors.New("form: submit handler is required")
)

// SubmitFunc persists cast values. id is empty for new records. The returned
// record, when non-nil, becomes the container's new baseline.
type SubmitFunc func(ctx context.Context, id string, data map[string]any) (map[string]any, error)

// LoadFunc fetches the record being edited.
type LoadFunc func(ctx context.Context) (map[string]any, error)

// FieldErrorer is implemented by errors that carry server-side messages keyed
// by field path.
type FieldErrorer interface {
	FieldErrors() map[string][]string
}

// Option configures a Container.
type Option func(*Container)

// WithSubmit sets the caller-supplied submit handler.
func WithSubmit(fn SubmitFunc) Option {
	return func(c *Container) {
		c.submit = fn
	}
}

// WithCancel sets the cancel hook. Without one the cancel action is hidden.
func WithCancel(fn func()) Option {
	return func(c *Container) {
		c.cancel = fn
	}
}

// WithRecord starts the container in the ready phase editing record.
func WithRecord(record map[string]any) Option {
	return func(c *Container) {
		c.pending = record
		c.hasRecord = true
	}
}

// WithLogger overrides the container logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Container drives one entity form through loading-record, ready and
// submitting.
type Container struct {
	mu sync.Mutex

	entity string
	schema *formschema.Schema
	logger *zap.Logger

	submit SubmitFunc
	cancel func()

	phase  render.Phase
	record map[string]any
	state  *formstate.State

	pending   map[string]any
	hasRecord bool
}

// New builds a container for entity. Without WithRecord the container waits
// in loading-record until Load or Ready is called.
func New(entity string, schema *formschema.Schema, options ...Option) (*Container, error) {
	if schema == nil {
		return nil, fmt.Errorf("form: schema is required for %q", entity)
	}
	c := &Container{
		entity: entity,
		schema: schema,
		logger: zap.NewNop(),
		phase:  render.PhaseLoadingRecord,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	if c.hasRecord {
		c.readyLocked(c.pending)
		c.pending = nil
	}
	return c, nil
}

// Entity returns the entity name.
func (c *Container) Entity() string { return c.entity }

// Schema returns the schema driving the form.
func (c *Container) Schema() *formschema.Schema { return c.schema }

// Load fetches the record and moves to ready. On failure the container stays
// in loading-record and the error is returned to the caller.
func (c *Container) Load(ctx context.Context, load LoadFunc) error {
	if load == nil {
		c.Ready(nil)
		return nil
	}
	record, err := load(ctx)
	if err != nil {
		return fmt.Errorf("form: load %s: %w", c.entity, err)
	}
	c.Ready(record)
	return nil
}

// Ready installs record (nil for a new record) and moves to ready.
func (c *Container) Ready(record map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyLocked(record)
}

func (c *Container) readyLocked(record map[string]any) {
	c.record = maps.Clone(record)
	c.state = formstate.New(c.schema, c.schema.InitialValues(record))
	c.phase = render.PhaseReady
}

// Phase returns the current lifecycle phase.
func (c *Container) Phase() render.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// State returns the live Form State, or nil while loading.
func (c *Container) State() *formstate.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Record returns a copy of the record the form was initialised from.
func (c *Container) Record() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.record)
}

// CanCancel reports whether a cancel hook exists.
func (c *Container) CanCancel() bool {
	return c.cancel != nil
}

// View snapshots the container for rendering.
func (c *Container) View() render.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return render.Form{Entity: c.entity, Phase: c.phase, Labels: render.DefaultLabels()}
	}
	return render.BuildForm(c.entity, c.schema, c.state, c.phase)
}

// Submit casts the current values and hands them to the submit handler.
// Validation failures return a *formschema.ValidationError without calling
// the handler. A failed save keeps entered values and records server errors
// on the state.
func (c *Container) Submit(ctx context.Context) (map[string]any, error) {
	c.mu.Lock()
	switch c.phase {
	case render.PhaseSubmitting:
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	case render.PhaseLoadingRecord:
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	if c.submit == nil {
		c.mu.Unlock()
		return nil, ErrNoSubmitHandler
	}
	state := c.state
	state.TouchAll(append([]string{c.schema.ID().Name()}, c.schema.Names()...))
	cast, err := c.schema.Cast(state.Values())
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.phase = render.PhaseSubmitting
	c.mu.Unlock()

	id, data := c.schema.Split(cast)
	c.logger.Debug("form submit", zap.String("entity", c.entity), zap.String("id", id))
	saved, err := c.submit(ctx, id, data)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = render.PhaseReady
	if err != nil {
		c.recordServerErrorLocked(state, err)
		c.logger.Warn("form submit failed", zap.String("entity", c.entity), zap.Error(err))
		return nil, err
	}
	if saved != nil {
		c.readyLocked(saved)
	}
	return saved, nil
}

func (c *Container) recordServerErrorLocked(state *formstate.State, err error) {
	var fe FieldErrorer
	if !errors.As(err, &fe) {
		state.SetServerErrors(nil, []string{err.Error()})
		return
	}
	mapping := render.MapErrorPayload(append([]string{c.schema.ID().Name()}, c.schema.Names()...), fe.FieldErrors())
	state.SetServerErrors(mapping.Fields, mapping.Form)
}

// Reset restores the initial values. No network access happens.
func (c *Container) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != nil {
		c.state.Reset()
	}
}

// Cancel invokes the cancel hook. The record and submit handler are never
// touched. It reports whether a hook ran.
func (c *Container) Cancel() bool {
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}
