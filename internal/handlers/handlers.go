package handlers

import (
	"gorm.io/gorm"

	"github.com/emilythestrangee/designarena/backend/internal/config"
	"github.com/emilythestrangee/designarena/backend/internal/score"
	"github.com/emilythestrangee/designarena/backend/internal/vote"
)

// Handler combines all handler types
type Handler struct {
	Auth        *AuthHandler
	Challenge   *ChallengeHandler
	Solution    *SolutionHandler
	Comment     *CommentHandler
	User        *UserHandler
	Vote        *VoteHandler
	Leaderboard *LeaderboardHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(db *gorm.DB, votes *vote.Service, board *score.Board, auth config.AuthConfig) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(db, auth),
		Challenge:   NewChallengeHandler(db),
		Solution:    NewSolutionHandler(db, board),
		Comment:     NewCommentHandler(db, board),
		User:        NewUserHandler(db, board),
		Vote:        NewVoteHandler(votes),
		Leaderboard: NewLeaderboardHandler(board),
	}
}
