package vote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/emilythestrangee/designarena/backend/internal/events"
	"github.com/emilythestrangee/designarena/backend/internal/score"
)

// Invalidator is notified after a committed vote changes someone's score.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Result describes a committed vote operation.
type Result struct {
	Target   Target
	Previous Direction
	Current  Direction
	Counts   Counts
}

// Changed reports whether the operation modified the ledger.
func (r Result) Changed() bool {
	return r.Previous != r.Current
}

type Service struct {
	ledger      Ledger
	publisher   events.Publisher
	invalidator Invalidator
	now         func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithInvalidator(i Invalidator) Option {
	return func(s *Service) { s.invalidator = i }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(ledger Ledger, opts ...Option) *Service {
	s := &Service{
		ledger:    ledger,
		publisher: events.NopPublisher{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentVote returns userID's direction on t. A zero userID is an anonymous
// caller and always gets None.
func (s *Service) CurrentVote(ctx context.Context, t Target, userID int) (Direction, error) {
	if err := t.Validate(); err != nil {
		return None, err
	}
	if userID == 0 {
		return None, nil
	}
	r, err := s.ledger.FindVote(ctx, userID, t)
	if err != nil {
		return None, fmt.Errorf("failed to look up vote on %s: %w", t, err)
	}
	if r == nil {
		return None, nil
	}
	return r.Direction, nil
}

// CastOrSwitch records dir as userID's vote on t. Casting the direction the
// user already holds succeeds without changes; clearing a vote is Remove.
func (s *Service) CastOrSwitch(ctx context.Context, t Target, userID int, dir Direction) (Result, error) {
	if userID == 0 {
		return Result{}, ErrUnauthenticated
	}
	if err := t.Validate(); err != nil {
		return Result{}, err
	}
	if _, err := ParseDirection(string(dir)); err != nil {
		return Result{}, err
	}
	return s.apply(ctx, t, userID, func(Direction) Direction {
		return dir
	})
}

// Remove clears userID's vote on t. Removing a vote that does not exist
// succeeds without changes.
func (s *Service) Remove(ctx context.Context, t Target, userID int) (Result, error) {
	if userID == 0 {
		return Result{}, ErrUnauthenticated
	}
	if err := t.Validate(); err != nil {
		return Result{}, err
	}
	return s.apply(ctx, t, userID, func(Direction) Direction {
		return None
	})
}

func (s *Service) apply(ctx context.Context, t Target, userID int, next func(Direction) Direction) (Result, error) {
	var res Result
	err := s.ledger.Atomically(ctx, func(tx Tx) error {
		subject, err := tx.LockSubject(ctx, t)
		if err != nil {
			return err
		}
		ok, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}

		existing, err := tx.FindVote(ctx, userID, t)
		if err != nil {
			return err
		}
		prev := None
		if existing != nil {
			prev = existing.Direction
		}
		cur := next(prev)

		res = Result{Target: t, Previous: prev, Current: cur, Counts: subject.Counts}
		if prev == cur {
			return nil
		}

		switch {
		case existing == nil:
			err = tx.InsertVote(ctx, &Record{UserID: userID, Target: t, Direction: cur, CreatedAt: s.now()})
		case cur == None:
			err = tx.DeleteVote(ctx, existing.ID)
		default:
			err = tx.UpdateDirection(ctx, existing.ID, cur)
		}
		if err != nil {
			return err
		}

		up, down := countDelta(prev, cur)
		if res.Counts, err = tx.AdjustCounts(ctx, t, up, down); err != nil {
			return err
		}

		if up == 0 {
			return nil
		}
		received := score.Delta{UpvotesReceived: up}
		given := score.Delta{UpvotesGiven: up}
		if subject.AuthorID == userID {
			return tx.ApplyStats(ctx, userID, received.Add(given))
		}
		// stats rows are locked in ascending user id order
		first, firstDelta, second, secondDelta := subject.AuthorID, received, userID, given
		if userID < subject.AuthorID {
			first, firstDelta, second, secondDelta = userID, given, subject.AuthorID, received
		}
		if err := tx.ApplyStats(ctx, first, firstDelta); err != nil {
			return err
		}
		return tx.ApplyStats(ctx, second, secondDelta)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			log.Printf("vote on %s by user %d failed: %v", t, userID, err)
		}
		return Result{}, err
	}

	if res.Changed() {
		s.afterCommit(ctx, userID, res)
	}
	return res, nil
}

func (s *Service) afterCommit(ctx context.Context, userID int, res Result) {
	event := events.VoteChanged{
		EntityType:     string(res.Target.Kind),
		EntityID:       res.Target.ID,
		UserID:         userID,
		Previous:       string(res.Previous),
		Current:        string(res.Current),
		UpvotesCount:   res.Counts.Upvotes,
		DownvotesCount: res.Counts.Downvotes,
		OccurredAt:     s.now(),
	}
	if err := s.publisher.PublishVoteChanged(ctx, event); err != nil {
		log.Printf("failed to publish vote event for %s: %v", res.Target, err)
	}

	if s.invalidator != nil && (res.Previous == Up || res.Current == Up) {
		s.invalidator.Invalidate(ctx)
	}
}
