package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/designarena/backend/internal/score"
)

type LeaderboardHandler struct {
	board *score.Board
}

func NewLeaderboardHandler(board *score.Board) *LeaderboardHandler {
	return &LeaderboardHandler{board: board}
}

// GetLeaderboard returns the top users by score.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit := score.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := h.board.Top(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetUserStats returns one user's score and activity counters.
func (h *LeaderboardHandler) GetUserStats(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	stats, err := h.board.Stats(c.Request.Context(), userID)
	if errors.Is(err, score.ErrNoStats) {
		// no scored activity yet
		c.JSON(http.StatusOK, gin.H{"userId": userID, "score": 0, "solutionsCount": 0, "commentsCount": 0, "upvotesGiven": 0, "upvotesReceived": 0})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
