package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/formstate"
)

// Store persists uploaded bytes and returns the reference written into form
// state.
type Store interface {
	Put(ctx context.Context, folder, name string, r io.Reader, size int64) (field.FileRef, error)
}

// Remover is implemented by stores that can discard a stored upload. The
// manager uses it when a reference is rejected after its bytes were written.
type Remover interface {
	Delete(ctx context.Context, id string) error
}

// Error is an upload failure scoped to a single upload field.
type Error struct {
	Field    string
	Messages []string
	Err      error
}

func (e *Error) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("upload %s: %s", e.Field, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("upload %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Option configures a Manager.
type Option func(*Manager)

// WithLogger overrides the manager logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager uploads files through a Store and attaches the resulting
// references to form state.
type Manager struct {
	store  Store
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewManager builds a manager writing through store.
func NewManager(store Store, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("upload: store is required")
	}
	m := &Manager{store: store, logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Attach checks the file against desc, stores it and appends its reference to
// the field value. Failures are written to the field's errors only; other
// fields are untouched.
func (m *Manager) Attach(ctx context.Context, state *formstate.State, desc field.Files, name string, size int64, r io.Reader) (field.FileRef, error) {
	ref, err := m.attach(ctx, state, desc, name, size, r)
	if err != nil {
		var uerr *Error
		if !errors.As(err, &uerr) {
			uerr = &Error{Field: desc.Name(), Messages: []string{"Upload failed"}, Err: err}
		}
		state.SetFieldErrors(desc.Name(), uerr.Messages)
		m.logger.Warn("upload failed", zap.String("field", desc.Name()), zap.String("file", name), zap.Error(err))
		return field.FileRef{}, uerr
	}
	return ref, nil
}

func (m *Manager) attach(ctx context.Context, state *formstate.State, desc field.Files, name string, size int64, r io.Reader) (field.FileRef, error) {
	if state == nil {
		return field.FileRef{}, errors.New("upload: state is required")
	}
	if msgs := desc.CheckFile(name, size); len(msgs) > 0 {
		return field.FileRef{}, &Error{Field: desc.Name(), Messages: msgs}
	}
	if err := checkCount(desc, state.Value(desc.Name())); err != nil {
		return field.FileRef{}, err
	}

	ref, err := m.store.Put(ctx, desc.Path, name, r, size)
	if err != nil {
		return field.FileRef{}, fmt.Errorf("upload: store %s: %w", name, err)
	}

	var countErr error
	if err := state.Update(desc.Name(), func(current any) any {
		refs, _ := field.FileRefs(current)
		if countErr = checkCount(desc, refs); countErr != nil {
			return current
		}
		return append(refs, ref)
	}); err != nil {
		return field.FileRef{}, err
	}
	if countErr != nil {
		m.discard(ctx, ref)
		return field.FileRef{}, countErr
	}
	m.logger.Debug("upload attached", zap.String("field", desc.Name()), zap.String("id", ref.ID))
	return ref, nil
}

// discard drops bytes stored for a reference that never reached the form.
func (m *Manager) discard(ctx context.Context, ref field.FileRef) {
	remover, ok := m.store.(Remover)
	if !ok {
		return
	}
	if err := remover.Delete(context.WithoutCancel(ctx), ref.ID); err != nil {
		m.logger.Warn("discard upload", zap.String("id", ref.ID), zap.Error(err))
	}
}

func checkCount(desc field.Files, current any) error {
	if desc.MaxFiles <= 0 {
		return nil
	}
	refs, _ := field.FileRefs(current)
	if len(refs) < desc.MaxFiles {
		return nil
	}
	label := desc.Label()
	if label == "" {
		label = desc.Name()
	}
	return &Error{
		Field:    desc.Name(),
		Messages: []string{fmt.Sprintf("%s accepts at most %d file(s)", label, desc.MaxFiles)},
	}
}

// AttachPath uploads a local file.
func (m *Manager) AttachPath(ctx context.Context, state *formstate.State, desc field.Files, path string) (field.FileRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return field.FileRef{}, fmt.Errorf("upload: open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return field.FileRef{}, fmt.Errorf("upload: stat %s: %w", path, err)
	}
	return m.Attach(ctx, state, desc, filepath.Base(path), info.Size(), f)
}

// Task is an upload running in the background.
type Task struct {
	Field string
	done  chan struct{}
	ref   field.FileRef
	err   error
}

// Done is closed once the upload finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the upload finished or ctx ends.
func (t *Task) Wait(ctx context.Context) (field.FileRef, error) {
	select {
	case <-t.done:
		return t.ref, t.err
	case <-ctx.Done():
		return field.FileRef{}, ctx.Err()
	}
}

// Start runs Attach in a goroutine so edits of other fields continue while
// bytes are transferred. r is closed when it implements io.Closer.
func (m *Manager) Start(ctx context.Context, state *formstate.State, desc field.Files, name string, size int64, r io.Reader) *Task {
	task := &Task{Field: desc.Name(), done: make(chan struct{})}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(task.done)
		if c, ok := r.(io.Closer); ok {
			defer c.Close()
		}
		task.ref, task.err = m.Attach(ctx, state, desc, name, size, r)
	}()
	return task
}

// Wait blocks until every started upload finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Remove detaches the reference with id from the field. Stored bytes are
// kept.
func Remove(state *formstate.State, desc field.Files, id string) error {
	return state.Update(desc.Name(), func(current any) any {
		refs, _ := field.FileRefs(current)
		out := make([]field.FileRef, 0, len(refs))
		for _, ref := range refs {
			if ref.ID != id {
				out = append(out, ref)
			}
		}
		return out
	})
}
