// Package score derives the leaderboard ranking from user activity.
//
// A user's score is a pure function of three counters kept on their
// UserStats row, so the row can always be discarded and rebuilt from the
// solutions, comments and votes tables.
package score

import (
	"sort"

	"github.com/emilythestrangee/designarena/backend/internal/models"
)

const (
	SolutionWeight = 10
	CommentWeight  = 3
	UpvoteWeight   = 1
)

// Compute returns the ranking score for the given activity counters.
func Compute(solutions, comments, upvotesReceived int) int {
	return SolutionWeight*solutions + CommentWeight*comments + UpvoteWeight*upvotesReceived
}

// Delta is an incremental change to a user's activity counters.
type Delta struct {
	Solutions       int
	Comments        int
	UpvotesGiven    int
	UpvotesReceived int
}

func (d Delta) IsZero() bool {
	return d == Delta{}
}

func (d Delta) Add(o Delta) Delta {
	return Delta{
		Solutions:       d.Solutions + o.Solutions,
		Comments:        d.Comments + o.Comments,
		UpvotesGiven:    d.UpvotesGiven + o.UpvotesGiven,
		UpvotesReceived: d.UpvotesReceived + o.UpvotesReceived,
	}
}

// ApplyDelta adds d to s, flooring every counter at zero, and recomputes the
// score.
func ApplyDelta(s *models.UserStats, d Delta) {
	s.SolutionsCount = floor(s.SolutionsCount + d.Solutions)
	s.CommentsCount = floor(s.CommentsCount + d.Comments)
	s.UpvotesGiven = floor(s.UpvotesGiven + d.UpvotesGiven)
	s.UpvotesReceived = floor(s.UpvotesReceived + d.UpvotesReceived)
	Refresh(s)
}

// Refresh sets s.Score from its counters.
func Refresh(s *models.UserStats) {
	s.Score = Compute(s.SolutionsCount, s.CommentsCount, s.UpvotesReceived)
}

// Less reports whether a ranks ahead of b: higher score first, then more
// solutions, then the lower user id.
func Less(a, b models.UserStats) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.SolutionsCount != b.SolutionsCount {
		return a.SolutionsCount > b.SolutionsCount
	}
	return a.UserID < b.UserID
}

// Rank sorts stats into leaderboard order in place.
func Rank(stats []models.UserStats) {
	sort.Slice(stats, func(i, j int) bool { return Less(stats[i], stats[j]) })
}

func floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
