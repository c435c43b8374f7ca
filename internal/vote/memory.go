package vote

import (
	"context"
	"fmt"
	"sync"

	"github.com/emilythestrangee/designarena/backend/internal/models"
	"github.com/emilythestrangee/designarena/backend/internal/score"
)

// MemoryLedger is an in-process Ledger. Transactions are serialized by a
// single mutex and work on a copy of the state that replaces the original
// only when fn succeeds.
type MemoryLedger struct {
	mu     sync.Mutex
	state  *memState
	faults map[string]error
}

type voteKey struct {
	userID int
	target Target
}

type memState struct {
	nextID   int
	users    map[int]bool
	subjects map[Target]Subject
	votes    map[voteKey]Record
	stats    map[int]models.UserStats
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		state: &memState{
			users:    make(map[int]bool),
			subjects: make(map[Target]Subject),
			votes:    make(map[voteKey]Record),
			stats:    make(map[int]models.UserStats),
		},
		faults: make(map[string]error),
	}
}

// AddUser registers a user id that may vote.
func (m *MemoryLedger) AddUser(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.users[id] = true
}

// AddTarget registers a votable target authored by authorID.
func (m *MemoryLedger) AddTarget(t Target, authorID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.subjects[t] = Subject{Target: t, AuthorID: authorID}
}

// FailOn makes the next call to the named Tx method return err. Names match
// the Tx method names, e.g. "AdjustCounts".
func (m *MemoryLedger) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = err
}

// Counts returns the stored counters for t.
func (m *MemoryLedger) Counts(t Target) Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.subjects[t].Counts
}

// Tally counts ledger records on t by direction.
func (m *MemoryLedger) Tally(t Target) Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c Counts
	for k, r := range m.state.votes {
		if k.target != t {
			continue
		}
		switch r.Direction {
		case Up:
			c.Upvotes++
		case Down:
			c.Downvotes++
		}
	}
	return c
}

// Records returns how many ledger rows userID holds on t.
func (m *MemoryLedger) Records(userID int, t Target) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.state.votes {
		if k.userID == userID && k.target == t {
			n++
		}
	}
	return n
}

func (m *MemoryLedger) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memTx{ledger: m, state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryLedger) FindVote(_ context.Context, userID int, t Target) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.state.votes[voteKey{userID, t}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// TopStats implements score.Source.
func (m *MemoryLedger) TopStats(_ context.Context, n int) ([]score.Entry, error) {
	m.mu.Lock()
	all := make([]models.UserStats, 0, len(m.state.stats))
	for _, s := range m.state.stats {
		all = append(all, s)
	}
	m.mu.Unlock()

	score.Rank(all)
	if len(all) > n {
		all = all[:n]
	}
	entries := make([]score.Entry, 0, len(all))
	for _, s := range all {
		entries = append(entries, score.Entry{
			UserID:          s.UserID,
			Score:           s.Score,
			SolutionsCount:  s.SolutionsCount,
			CommentsCount:   s.CommentsCount,
			UpvotesReceived: s.UpvotesReceived,
		})
	}
	return entries, nil
}

// UserStats implements score.Source.
func (m *MemoryLedger) UserStats(_ context.Context, userID int) (models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state.stats[userID]
	if !ok {
		return models.UserStats{}, score.ErrNoStats
	}
	return s, nil
}

// RecordActivity applies a stats delta outside of a vote, the way solution
// and comment creation do.
func (m *MemoryLedger) RecordActivity(userID int, d score.Delta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state.stats[userID]
	s.UserID = userID
	score.ApplyDelta(&s, d)
	m.state.stats[userID] = s
}

func (s *memState) clone() *memState {
	c := &memState{
		nextID:   s.nextID,
		users:    make(map[int]bool, len(s.users)),
		subjects: make(map[Target]Subject, len(s.subjects)),
		votes:    make(map[voteKey]Record, len(s.votes)),
		stats:    make(map[int]models.UserStats, len(s.stats)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.subjects {
		c.subjects[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	for k, v := range s.stats {
		c.stats[k] = v
	}
	return c
}

type memTx struct {
	ledger *MemoryLedger
	state  *memState
}

func (tx *memTx) fault(op string) error {
	if err, ok := tx.ledger.faults[op]; ok {
		delete(tx.ledger.faults, op)
		return err
	}
	return nil
}

func (tx *memTx) LockSubject(_ context.Context, t Target) (Subject, error) {
	if err := tx.fault("LockSubject"); err != nil {
		return Subject{}, err
	}
	s, ok := tx.state.subjects[t]
	if !ok {
		return Subject{}, fmt.Errorf("%w: %s", ErrNotFound, t)
	}
	return s, nil
}

func (tx *memTx) UserExists(_ context.Context, userID int) (bool, error) {
	if err := tx.fault("UserExists"); err != nil {
		return false, err
	}
	return tx.state.users[userID], nil
}

func (tx *memTx) FindVote(_ context.Context, userID int, t Target) (*Record, error) {
	if err := tx.fault("FindVote"); err != nil {
		return nil, err
	}
	r, ok := tx.state.votes[voteKey{userID, t}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (tx *memTx) InsertVote(_ context.Context, r *Record) error {
	if err := tx.fault("InsertVote"); err != nil {
		return err
	}
	key := voteKey{r.UserID, r.Target}
	if _, dup := tx.state.votes[key]; dup {
		return fmt.Errorf("%w: duplicate vote by user %d on %s", ErrConflict, r.UserID, r.Target)
	}
	tx.state.nextID++
	r.ID = tx.state.nextID
	tx.state.votes[key] = *r
	return nil
}

func (tx *memTx) UpdateDirection(_ context.Context, id int, d Direction) error {
	if err := tx.fault("UpdateDirection"); err != nil {
		return err
	}
	for k, r := range tx.state.votes {
		if r.ID == id {
			r.Direction = d
			tx.state.votes[k] = r
			return nil
		}
	}
	return fmt.Errorf("%w: vote %d", ErrNotFound, id)
}

func (tx *memTx) DeleteVote(_ context.Context, id int) error {
	if err := tx.fault("DeleteVote"); err != nil {
		return err
	}
	for k, r := range tx.state.votes {
		if r.ID == id {
			delete(tx.state.votes, k)
			return nil
		}
	}
	return nil
}

func (tx *memTx) AdjustCounts(_ context.Context, t Target, up, down int) (Counts, error) {
	if err := tx.fault("AdjustCounts"); err != nil {
		return Counts{}, err
	}
	s, ok := tx.state.subjects[t]
	if !ok {
		return Counts{}, fmt.Errorf("%w: %s", ErrNotFound, t)
	}
	s.Counts = s.Counts.Add(up, down)
	tx.state.subjects[t] = s
	return s.Counts, nil
}

func (tx *memTx) ApplyStats(_ context.Context, userID int, d score.Delta) error {
	if err := tx.fault("ApplyStats"); err != nil {
		return err
	}
	s := tx.state.stats[userID]
	s.UserID = userID
	score.ApplyDelta(&s, d)
	tx.state.stats[userID] = s
	return nil
}
