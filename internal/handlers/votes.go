package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/designarena/backend/internal/middleware"
	"github.com/emilythestrangee/designarena/backend/internal/vote"
)

type VoteHandler struct {
	votes *vote.Service
}

func NewVoteHandler(votes *vote.Service) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// GetUserVote returns the caller's vote on an entity; anonymous callers get null.
func (h *VoteHandler) GetUserVote(c *gin.Context) {
	target, err := vote.ParseTarget(c.Param("entityType"), c.Param("entityId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.UserID(c)
	dir, err := h.votes.CurrentVote(c.Request.Context(), target, userID)
	if err != nil {
		log.Printf("failed to fetch vote on %s for user %d: %v", target, userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vote"})
		return
	}

	var userVote interface{}
	if dir != vote.None {
		userVote = string(dir)
	}
	c.JSON(http.StatusOK, gin.H{"userVote": userVote})
}

// CastVote casts or switches the caller's vote. Repeating the held direction
// is a no-op that returns the current counts.
func (h *VoteHandler) CastVote(c *gin.Context) {
	var input struct {
		EntityType string `json:"entityType" binding:"required"`
		EntityID   int    `json:"entityId" binding:"required"`
		VoteType   string `json:"voteType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entityType, entityId and voteType are required"})
		return
	}

	target, err := vote.ParseTarget(input.EntityType, strconv.Itoa(input.EntityID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dir, err := vote.ParseDirection(input.VoteType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "voteType must be upvote or downvote"})
		return
	}

	userID, _ := middleware.UserID(c)
	res, err := h.votes.CastOrSwitch(c.Request.Context(), target, userID, dir)
	if err != nil {
		writeVoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res.Counts)
}

// RemoveVote clears the caller's vote on an entity.
func (h *VoteHandler) RemoveVote(c *gin.Context) {
	target, err := vote.ParseTarget(c.Param("entityType"), c.Param("entityId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.UserID(c)
	res, err := h.votes.Remove(c.Request.Context(), target, userID)
	if err != nil {
		writeVoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res.Counts)
}

func writeVoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, vote.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please sign in to vote"})
	case errors.Is(err, vote.ErrInvalidTarget), errors.Is(err, vote.ErrInvalidDirection):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, vote.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Failed to process vote"})
	case errors.Is(err, vote.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to process vote"})
	default:
		log.Printf("vote request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process vote"})
	}
}
