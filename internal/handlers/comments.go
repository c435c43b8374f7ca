package handlers

import (
	"context"
	"log"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/designarena/backend/internal/middleware"
	"github.com/emilythestrangee/designarena/backend/internal/models"
	"github.com/emilythestrangee/designarena/backend/internal/score"
)

type CommentHandler struct {
	db    *gorm.DB
	board *score.Board
}

func NewCommentHandler(db *gorm.DB, board *score.Board) *CommentHandler {
	return &CommentHandler{db: db, board: board}
}

// GetComments returns all comments on a solution
func (h *CommentHandler) GetComments(c *gin.Context) {
	var comments []models.Comment
	if err := h.db.Where("solution_id = ?", c.Param("id")).Preload("User").Order("created_at desc").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	c.JSON(http.StatusOK, comments)
}

// CreateComment creates a new comment on a solution and credits the author.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authorID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var solution models.Solution
	if err := h.db.First(&solution, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Solution not found"})
		return
	}

	comment := models.Comment{
		Body:       input.Body,
		SolutionID: solution.ID,
		AuthorID:   authorID,
	}

	ctx := c.Request.Context()
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(&comment).Error; err != nil {
			return err
		}
		_, err := score.Apply(ctx, tx, authorID, score.Delta{Comments: 1})
		return err
	})
	if err != nil {
		log.Printf("failed to create comment for user %d: %v", authorID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}
	h.board.Invalidate(ctx)

	h.db.Preload("User").First(&comment, comment.ID)
	c.JSON(http.StatusCreated, comment)
}

// UpdateComment updates a comment (owner only)
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	authorID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, c.Param("commentId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	if comment.AuthorID != authorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own comments"})
		return
	}

	if err := h.db.Model(&comment).Update("body", input.Body).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}
	h.db.Preload("User").First(&comment, comment.ID)
	c.JSON(http.StatusOK, comment)
}

// DeleteComment deletes a comment and its votes (owner only). The author
// loses the comment's credit and every upvote it had received; its upvoters
// lose the matching upvotes given.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	authorID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, c.Param("commentId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	if comment.AuthorID != authorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	}

	ctx := c.Request.Context()
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// concurrent votes on the comment wait for the delete
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&comment, comment.ID).Error; err != nil {
			return err
		}
		upvoters, err := retractVotes(tx, "comment_id", comment.ID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		return chargeRetraction(ctx, tx, comment.AuthorID, upvoters, score.Delta{Comments: -1})
	})
	if err != nil {
		log.Printf("failed to delete comment %d: %v", comment.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}
	h.board.Invalidate(ctx)

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

// retractVotes deletes every vote on the entity in column and returns the
// ids of the users who had upvoted it.
func retractVotes(tx *gorm.DB, column string, id int) ([]int, error) {
	var upvoters []int
	err := tx.Model(&models.Vote{}).
		Where(column+" = ? AND vote_type = ?", id, "upvote").
		Pluck("user_id", &upvoters).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Where(column+" = ?", id).Delete(&models.Vote{}).Error; err != nil {
		return nil, err
	}
	return upvoters, nil
}

// chargeRetraction reverses the stats effects of removed upvotes on top of
// the author's own delta. Stats rows are locked in ascending user id order.
func chargeRetraction(ctx context.Context, tx *gorm.DB, authorID int, upvoters []int, own score.Delta) error {
	deltas := map[int]score.Delta{authorID: own}
	for _, voterID := range upvoters {
		deltas[authorID] = deltas[authorID].Add(score.Delta{UpvotesReceived: -1})
		deltas[voterID] = deltas[voterID].Add(score.Delta{UpvotesGiven: -1})
	}

	ids := make([]int, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if _, err := score.Apply(ctx, tx, id, deltas[id]); err != nil {
			return err
		}
	}
	return nil
}
