// Package vote implements the polymorphic voting engine: a ledger of
// one-per-user directional votes on challenges, solutions and comments, and
// the denormalized counters kept on each target.
package vote

import (
	"fmt"
	"strconv"
)

// Kind names the type of entity a vote applies to.
type Kind string

const (
	KindChallenge Kind = "challenge"
	KindSolution  Kind = "solution"
	KindComment   Kind = "comment"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindChallenge, KindSolution, KindComment:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown entity type %q", ErrInvalidTarget, s)
}

// Target identifies exactly one votable entity.
type Target struct {
	Kind Kind
	ID   int
}

func Challenge(id int) Target { return Target{Kind: KindChallenge, ID: id} }
func Solution(id int) Target  { return Target{Kind: KindSolution, ID: id} }
func Comment(id int) Target   { return Target{Kind: KindComment, ID: id} }

// ParseTarget builds a Target from the entityType/entityId pair used on the
// wire.
func ParseTarget(kind, id string) (Target, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Target{}, err
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return Target{}, fmt.Errorf("%w: bad entity id %q", ErrInvalidTarget, id)
	}
	t := Target{Kind: k, ID: n}
	return t, t.Validate()
}

func (t Target) Validate() error {
	if _, err := ParseKind(string(t.Kind)); err != nil {
		return err
	}
	if t.ID <= 0 {
		return fmt.Errorf("%w: entity id must be positive", ErrInvalidTarget)
	}
	return nil
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// Direction is the caller's vote on a target. None means no vote is held.
type Direction string

const (
	None Direction = ""
	Up   Direction = "upvote"
	Down Direction = "downvote"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down:
		return d, nil
	}
	return None, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Transition is the vote widget's click rule: a new vote is cast, an opposite
// vote is switched, and a repeat clears the vote. The service never applies it
// to casts; a repeat click must be sent as a removal.
func Transition(cur, dir Direction) Direction {
	if cur == dir {
		return None
	}
	return dir
}

// Counts are a target's denormalized tallies.
type Counts struct {
	Upvotes   int `json:"upvotesCount"`
	Downvotes int `json:"downvotesCount"`
}

// Add applies a delta, flooring each counter at zero.
func (c Counts) Add(up, down int) Counts {
	return Counts{Upvotes: max(c.Upvotes+up, 0), Downvotes: max(c.Downvotes+down, 0)}
}

// Move returns c after one voter moves from prev to next.
func (c Counts) Move(prev, next Direction) Counts {
	up, down := countDelta(prev, next)
	return c.Add(up, down)
}

// countDelta is the counter change caused by moving from prev to next.
func countDelta(prev, next Direction) (up, down int) {
	switch prev {
	case Up:
		up--
	case Down:
		down--
	}
	switch next {
	case Up:
		up++
	case Down:
		down++
	}
	return up, down
}
