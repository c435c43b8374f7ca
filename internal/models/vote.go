package models

import "time"

// Vote is one row of the vote ledger. Exactly one of ChallengeID, SolutionID
// and CommentID is set; the vote package converts to and from vote.Target so
// nothing above the storage layer inspects these columns directly.
type Vote struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	UserID      int       `gorm:"not null;uniqueIndex:idx_votes_user_challenge;uniqueIndex:idx_votes_user_solution;uniqueIndex:idx_votes_user_comment" json:"user_id"`
	ChallengeID *int      `gorm:"uniqueIndex:idx_votes_user_challenge;check:votes_single_target,num_nonnulls(challenge_id, solution_id, comment_id) = 1" json:"challenge_id,omitempty"`
	SolutionID  *int      `gorm:"uniqueIndex:idx_votes_user_solution" json:"solution_id,omitempty"`
	CommentID   *int      `gorm:"uniqueIndex:idx_votes_user_comment" json:"comment_id,omitempty"`
	VoteType    string    `gorm:"size:8;not null;check:votes_vote_type,vote_type IN ('upvote', 'downvote')" json:"vote_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
