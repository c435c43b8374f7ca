package voteclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/designarena/backend/internal/vote"
)

type outcome struct {
	counts vote.Counts
	err    error
}

type call struct {
	op     string
	dir    vote.Direction
	settle chan outcome
}

// fakeAPI parks every mutation until the test settles it, so completion
// order is under the test's control.
type fakeAPI struct {
	calls chan *call

	mu      sync.Mutex
	current vote.Direction
	loadErr error
	loads   int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(chan *call, 16)}
}

func (f *fakeAPI) CurrentVote(context.Context, vote.Target) (vote.Direction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.current, f.loadErr
}

func (f *fakeAPI) Cast(_ context.Context, _ vote.Target, dir vote.Direction) (vote.Counts, error) {
	return f.park("cast", dir)
}

func (f *fakeAPI) Remove(context.Context, vote.Target) (vote.Counts, error) {
	return f.park("remove", vote.None)
}

func (f *fakeAPI) park(op string, dir vote.Direction) (vote.Counts, error) {
	c := &call{op: op, dir: dir, settle: make(chan outcome, 1)}
	f.calls <- c
	o := <-c.settle
	return o.counts, o.err
}

func (f *fakeAPI) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("no call was sent")
		return nil
	}
}

type notices struct {
	mu   sync.Mutex
	list []string
}

func (n *notices) add(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, s)
}

func (n *notices) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.list...)
}

func counts(up, down int) vote.Counts {
	return vote.Counts{Upvotes: up, Downvotes: down}
}

// loaded returns a signed-in widget whose viewer already holds dir.
func loaded(t *testing.T, api *fakeAPI, dir vote.Direction, initial vote.Counts, opts ...Option) *Widget {
	t.Helper()
	api.current = dir
	w := New(api, vote.Solution(1), initial, append([]Option{WithIdentity(true)}, opts...)...)
	require.NoError(t, w.Load(context.Background()))
	return w
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		name    string
		from    vote.Direction
		click   vote.Direction
		want    vote.Direction
		counts  vote.Counts
		op      string
		sentDir vote.Direction
	}{
		{"none up", vote.None, vote.Up, vote.Up, counts(6, 2), "cast", vote.Up},
		{"none down", vote.None, vote.Down, vote.Down, counts(5, 3), "cast", vote.Down},
		{"up up", vote.Up, vote.Up, vote.None, counts(4, 2), "remove", vote.None},
		{"up down", vote.Up, vote.Down, vote.Down, counts(4, 3), "cast", vote.Down},
		{"down down", vote.Down, vote.Down, vote.None, counts(5, 1), "remove", vote.None},
		{"down up", vote.Down, vote.Up, vote.Up, counts(6, 1), "cast", vote.Up},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI()
			w := loaded(t, api, tc.from, counts(5, 2))

			w.Vote(context.Background(), tc.click)

			st := w.State()
			assert.Equal(t, tc.want, st.Direction)
			assert.Equal(t, tc.counts, st.Counts)
			assert.Equal(t, 1, st.Pending)

			c := api.next(t)
			assert.Equal(t, tc.op, c.op)
			assert.Equal(t, tc.sentDir, c.dir)

			c.settle <- outcome{counts: tc.counts}
			w.Wait()
			assert.Equal(t, 0, w.State().Pending)
			assert.Equal(t, tc.counts, w.State().Counts)
		})
	}
}

func TestToggleOffClampsAtZero(t *testing.T) {
	api := newFakeAPI()
	w := loaded(t, api, vote.Up, counts(0, 0))

	w.Vote(context.Background(), vote.Up)
	assert.Equal(t, counts(0, 0), w.State().Counts)

	api.next(t).settle <- outcome{counts: counts(0, 0)}
	w.Wait()
}

func TestRollbackRestoresPreClickState(t *testing.T) {
	api := newFakeAPI()
	var n notices
	w := loaded(t, api, vote.Up, counts(5, 2), WithNotifier(n.add))

	w.Vote(context.Background(), vote.Down)
	assert.Equal(t, vote.Down, w.State().Direction)

	api.next(t).settle <- outcome{err: vote.ErrConflict}
	w.Wait()

	st := w.State()
	assert.Equal(t, vote.Up, st.Direction)
	assert.Equal(t, counts(5, 2), st.Counts)
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, []string{NoticeFailed}, n.all())
}

func TestUnauthenticatedNotice(t *testing.T) {
	api := newFakeAPI()
	var n notices
	w := New(api, vote.Comment(4), counts(1, 1), WithNotifier(n.add))

	w.Vote(context.Background(), vote.Up)
	assert.Equal(t, counts(2, 1), w.State().Counts)

	api.next(t).settle <- outcome{err: vote.ErrUnauthenticated}
	w.Wait()

	assert.Equal(t, vote.None, w.State().Direction)
	assert.Equal(t, counts(1, 1), w.State().Counts)
	assert.Equal(t, []string{NoticeSignIn}, n.all())
}

func TestLastSettledWins(t *testing.T) {
	api := newFakeAPI()
	w := loaded(t, api, vote.None, counts(3, 0))

	w.Vote(context.Background(), vote.Up)
	first := api.next(t)
	w.Vote(context.Background(), vote.Up)
	second := api.next(t)

	assert.Equal(t, "cast", first.op)
	assert.Equal(t, "remove", second.op)
	st := w.State()
	assert.Equal(t, vote.None, st.Direction)
	assert.Equal(t, counts(3, 0), st.Counts)
	assert.Equal(t, 2, st.Pending)

	// the later click settles first; the earlier one settles last and wins
	second.settle <- outcome{counts: counts(3, 0)}
	require.Eventually(t, func() bool { return w.State().Pending == 1 }, time.Second, time.Millisecond)
	first.settle <- outcome{counts: counts(4, 0)}
	w.Wait()

	st = w.State()
	assert.Equal(t, vote.Up, st.Direction)
	assert.Equal(t, counts(4, 0), st.Counts)
	assert.Equal(t, 0, st.Pending)
}

func TestFailureAfterLaterSuccessRollsBackItsOwnClick(t *testing.T) {
	api := newFakeAPI()
	var n notices
	w := loaded(t, api, vote.None, counts(0, 0), WithNotifier(n.add))

	w.Vote(context.Background(), vote.Up)
	first := api.next(t)
	w.Vote(context.Background(), vote.Down)
	second := api.next(t)

	second.settle <- outcome{counts: counts(0, 1)}
	require.Eventually(t, func() bool { return w.State().Pending == 1 }, time.Second, time.Millisecond)
	first.settle <- outcome{err: errors.New("connection reset")}
	w.Wait()

	st := w.State()
	assert.Equal(t, vote.None, st.Direction)
	assert.Equal(t, counts(0, 0), st.Counts)
	assert.Equal(t, []string{NoticeFailed}, n.all())
}

func TestLoadRunsOnceWithIdentity(t *testing.T) {
	api := newFakeAPI()
	api.current = vote.Down
	w := New(api, vote.Challenge(2), counts(0, 1), WithIdentity(true))

	require.NoError(t, w.Load(context.Background()))
	require.NoError(t, w.Load(context.Background()))

	assert.Equal(t, 1, api.loads)
	assert.Equal(t, vote.Down, w.State().Direction)
	assert.Equal(t, counts(0, 1), w.State().Counts)
}

func TestLoadSkippedWithoutIdentity(t *testing.T) {
	api := newFakeAPI()
	api.current = vote.Up
	w := New(api, vote.Challenge(2), counts(7, 0))

	require.NoError(t, w.Load(context.Background()))

	assert.Equal(t, 0, api.loads)
	assert.Equal(t, vote.None, w.State().Direction)
	assert.Equal(t, counts(7, 0), w.State().Counts)
}

func TestClickBeforeLoadTakesPrecedence(t *testing.T) {
	api := newFakeAPI()
	api.current = vote.Down
	w := New(api, vote.Solution(1), counts(0, 1), WithIdentity(true))

	w.Vote(context.Background(), vote.Up)
	require.NoError(t, w.Load(context.Background()))
	assert.Equal(t, vote.Up, w.State().Direction)

	api.next(t).settle <- outcome{counts: counts(1, 0)}
	w.Wait()
}

func TestObserverSeesEveryChange(t *testing.T) {
	api := newFakeAPI()
	var mu sync.Mutex
	var seen []State
	w := New(api, vote.Solution(1), counts(0, 0), WithObserver(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	}))

	w.Vote(context.Background(), vote.Up)
	api.next(t).settle <- outcome{counts: counts(1, 0)}
	w.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[0].Pending)
	assert.Equal(t, 0, seen[1].Pending)
	assert.Equal(t, counts(1, 0), seen[1].Counts)
}
