package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-pos-ledger/internal/model"
)

type document[T any] interface {
	Clone() T
}

type documentStore[T any] interface {
	Load(ctx context.Context) (T, error)
	Save(ctx context.Context, doc T) error
}

// Workspace owns one live state document. Mutations run one at a time
// against a clone; the clone is persisted and swapped in only when the
// mutation and the save both succeed, so a failed operation leaves no trace.
type Workspace[T document[T]] struct {
	mu   sync.RWMutex
	repo documentStore[T]
	doc  T
	loc  *time.Location
	now  func() time.Time
}

type (
	PosWorkspace     = Workspace[*model.PosState]
	TrackerWorkspace = Workspace[*model.Tracker]
)

// NewWorkspace loads the document from repo.
func NewWorkspace[T document[T]](ctx context.Context, repo documentStore[T], loc *time.Location) (*Workspace[T], error) {
	doc, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Workspace[T]{repo: repo, doc: doc, loc: loc, now: time.Now}, nil
}

// SetClock overrides the time source.
func (w *Workspace[T]) SetClock(now func() time.Time) {
	w.now = now
}

func (w *Workspace[T]) Location() *time.Location { return w.loc }

// Now returns the current time in the workspace location.
func (w *Workspace[T]) Now() time.Time { return w.now().In(w.loc) }

// View runs fn against the live document under a read lock. fn must not
// modify the document or keep references to it.
func (w *Workspace[T]) View(fn func(doc T) error) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return fn(w.doc)
}

// Snapshot returns a private copy of the live document.
func (w *Workspace[T]) Snapshot() T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.doc.Clone()
}

// Mutate applies fn to a clone and commits it.
func (w *Workspace[T]) Mutate(ctx context.Context, fn func(doc T) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	draft := w.doc.Clone()
	if err := fn(draft); err != nil {
		return err
	}
	if err := w.repo.Save(ctx, draft); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	w.doc = draft
	return nil
}
