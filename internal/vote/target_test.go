package vote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("solution", "12")
	require.NoError(t, err)
	assert.Equal(t, Solution(12), target)

	_, err = ParseTarget("post", "12")
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = ParseTarget("comment", "abc")
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = ParseTarget("challenge", "0")
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestTransition(t *testing.T) {
	cases := []struct {
		cur, dir, want Direction
	}{
		{None, Up, Up},
		{None, Down, Down},
		{Up, Up, None},
		{Up, Down, Down},
		{Down, Down, None},
		{Down, Up, Up},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Transition(tc.cur, tc.dir), "%q x %q", tc.cur, tc.dir)
	}
}

func TestCountDelta(t *testing.T) {
	up, down := countDelta(Up, Down)
	assert.Equal(t, -1, up)
	assert.Equal(t, 1, down)

	up, down = countDelta(None, Up)
	assert.Equal(t, 1, up)
	assert.Zero(t, down)

	up, down = countDelta(Down, None)
	assert.Zero(t, up)
	assert.Equal(t, -1, down)
}

func TestCountsAddFloorsAtZero(t *testing.T) {
	assert.Equal(t, Counts{Upvotes: 0, Downvotes: 1}, Counts{}.Add(-1, 1))
	assert.Equal(t, Counts{Upvotes: 2, Downvotes: 0}, Counts{Upvotes: 3}.Add(-1, -4))
}

func TestCountsMove(t *testing.T) {
	start := Counts{Upvotes: 5, Downvotes: 2}
	assert.Equal(t, Counts{Upvotes: 4, Downvotes: 3}, start.Move(Up, Down))
	assert.Equal(t, Counts{Upvotes: 5, Downvotes: 3}, start.Move(None, Down))
	assert.Equal(t, Counts{Upvotes: 0, Downvotes: 0}, Counts{}.Move(Up, None))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("downvote")
	require.NoError(t, err)
	assert.Equal(t, Down, d)

	_, err = ParseDirection("")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}
