// Package voteclient renders one vote widget's state optimistically and
// reconciles it with the vote API as calls settle.
package voteclient

import (
	"context"
	"errors"
	"sync"

	"github.com/emilythestrangee/designarena/backend/internal/vote"
)

const (
	NoticeSignIn = "Please sign in to vote"
	NoticeFailed = "Failed to process vote"
)

// API is the subset of the vote HTTP surface a widget needs.
type API interface {
	CurrentVote(ctx context.Context, t vote.Target) (vote.Direction, error)
	Cast(ctx context.Context, t vote.Target, dir vote.Direction) (vote.Counts, error)
	Remove(ctx context.Context, t vote.Target) (vote.Counts, error)
}

// State is what a widget renders.
type State struct {
	Direction vote.Direction
	Counts    vote.Counts
	// Pending is the number of calls still in flight.
	Pending int
	// Seq is the sequence number of the most recent click.
	Seq uint64
}

type Option func(*Widget)

// WithIdentity tells the widget whether the viewer is signed in. Without an
// identity Load does nothing.
func WithIdentity(signedIn bool) Option {
	return func(w *Widget) { w.signedIn = signedIn }
}

// WithNotifier receives user-visible notices after failed calls.
func WithNotifier(fn func(notice string)) Option {
	return func(w *Widget) { w.notify = fn }
}

// WithObserver is called on every state change with the widget lock held;
// it must not call back into the widget.
func WithObserver(fn func(State)) Option {
	return func(w *Widget) { w.observe = fn }
}

// Widget is the per-target optimistic vote state machine. It is safe for
// concurrent use.
type Widget struct {
	api      API
	target   vote.Target
	signedIn bool
	notify   func(string)
	observe  func(State)

	mu       sync.Mutex
	state    State
	loadOnce sync.Once
	inflight sync.WaitGroup
}

// New returns a widget showing initial counts and no vote of its own.
func New(api API, t vote.Target, initial vote.Counts, opts ...Option) *Widget {
	w := &Widget{
		api:    api,
		target: t,
		state:  State{Direction: vote.None, Counts: initial},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current rendered state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Load fetches the viewer's existing vote. It runs at most once per widget
// and only when an identity is present. A click that happens before the
// query returns takes precedence over its answer.
func (w *Widget) Load(ctx context.Context) error {
	var err error
	w.loadOnce.Do(func() {
		if !w.signedIn {
			return
		}
		var dir vote.Direction
		dir, err = w.api.CurrentVote(ctx, w.target)
		if err != nil {
			return
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.state.Seq == 0 {
			w.state.Direction = dir
			w.changed()
		}
	})
	return err
}

// Vote applies dir optimistically and sends the matching call in the
// background. A repeat of the current direction is sent as a removal.
func (w *Widget) Vote(ctx context.Context, dir vote.Direction) {
	if dir != vote.Up && dir != vote.Down {
		return
	}

	w.mu.Lock()
	before := w.state
	next := vote.Transition(w.state.Direction, dir)
	remove := next == vote.None

	w.state.Counts = w.state.Counts.Move(w.state.Direction, next)
	w.state.Direction = next
	w.state.Seq++
	w.state.Pending++
	w.changed()
	w.mu.Unlock()

	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()

		var counts vote.Counts
		var err error
		if remove {
			counts, err = w.api.Remove(ctx, w.target)
		} else {
			counts, err = w.api.Cast(ctx, w.target, dir)
		}
		w.settle(before, next, counts, err)
	}()
}

// Wait blocks until every call started by Vote has settled.
func (w *Widget) Wait() {
	w.inflight.Wait()
}

// settle applies a finished call. Calls are reconciled in completion order:
// whichever settles last decides the rendered state.
func (w *Widget) settle(before State, next vote.Direction, counts vote.Counts, err error) {
	w.mu.Lock()
	w.state.Pending--
	if err != nil {
		w.state.Direction = before.Direction
		w.state.Counts = before.Counts
	} else {
		w.state.Direction = next
		w.state.Counts = counts
	}
	w.changed()
	w.mu.Unlock()

	if err != nil && w.notify != nil {
		w.notify(noticeFor(err))
	}
}

func (w *Widget) changed() {
	if w.observe != nil {
		w.observe(w.state)
	}
}

func noticeFor(err error) string {
	if errors.Is(err, vote.ErrUnauthenticated) {
		return NoticeSignIn
	}
	return NoticeFailed
}
