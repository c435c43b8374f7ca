package vote

import (
	"context"
	"time"

	"github.com/emilythestrangee/designarena/backend/internal/score"
)

// Record is one ledger entry.
type Record struct {
	ID        int
	UserID    int
	Target    Target
	Direction Direction
	CreatedAt time.Time
}

// Subject is a locked target row.
type Subject struct {
	Target   Target
	AuthorID int
	Counts   Counts
}

// Ledger is the persistence surface of the voting engine. Every mutation
// runs inside Atomically: either all of the ledger, counter and stats writes
// made through the Tx commit, or none of them do.
type Ledger interface {
	Atomically(ctx context.Context, fn func(tx Tx) error) error
	FindVote(ctx context.Context, userID int, t Target) (*Record, error)
}

// Tx is a unit of work on the ledger. LockSubject must be called first; it
// serializes concurrent mutations of the same target.
type Tx interface {
	LockSubject(ctx context.Context, t Target) (Subject, error)
	UserExists(ctx context.Context, userID int) (bool, error)
	FindVote(ctx context.Context, userID int, t Target) (*Record, error)
	InsertVote(ctx context.Context, r *Record) error
	UpdateDirection(ctx context.Context, id int, d Direction) error
	DeleteVote(ctx context.Context, id int) error
	// AdjustCounts adds the deltas to the target's counters, flooring at
	// zero, and returns the stored result.
	AdjustCounts(ctx context.Context, t Target, up, down int) (Counts, error)
	ApplyStats(ctx context.Context, userID int, d score.Delta) error
}
