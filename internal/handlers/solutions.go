package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/designarena/backend/internal/middleware"
	"github.com/emilythestrangee/designarena/backend/internal/models"
	"github.com/emilythestrangee/designarena/backend/internal/score"
)

type SolutionHandler struct {
	db    *gorm.DB
	board *score.Board
}

func NewSolutionHandler(db *gorm.DB, board *score.Board) *SolutionHandler {
	return &SolutionHandler{db: db, board: board}
}

// GetSolutions returns the solutions submitted to a challenge, best voted first
func (h *SolutionHandler) GetSolutions(c *gin.Context) {
	var solutions []models.Solution
	err := h.db.Where("challenge_id = ?", c.Param("id")).
		Preload("Author").
		Order("upvotes_count - downvotes_count desc, created_at desc").
		Find(&solutions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch solutions"})
		return
	}
	if solutions == nil {
		solutions = []models.Solution{}
	}
	c.JSON(http.StatusOK, solutions)
}

// GetSolution returns a single solution
func (h *SolutionHandler) GetSolution(c *gin.Context) {
	var solution models.Solution
	if err := h.db.Preload("Author").First(&solution, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Solution not found"})
		return
	}
	c.JSON(http.StatusOK, solution)
}

// CreateSolution submits a solution to a challenge and credits the author.
func (h *SolutionHandler) CreateSolution(c *gin.Context) {
	var input models.CreateSolutionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authorID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var challenge models.Challenge
	if err := h.db.First(&challenge, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Challenge not found"})
		return
	}

	solution := models.Solution{
		ChallengeID: challenge.ID,
		Title:       input.Title,
		Description: input.Description,
		Diagram:     input.Diagram,
		AuthorID:    authorID,
	}

	ctx := c.Request.Context()
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Challenge").Create(&solution).Error; err != nil {
			return err
		}
		_, err := score.Apply(ctx, tx, authorID, score.Delta{Solutions: 1})
		return err
	})
	if err != nil {
		log.Printf("failed to create solution for user %d: %v", authorID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create solution"})
		return
	}
	h.board.Invalidate(ctx)

	h.db.Preload("Author").First(&solution, solution.ID)
	c.JSON(http.StatusCreated, solution)
}
