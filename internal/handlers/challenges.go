package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/designarena/backend/internal/middleware"
	"github.com/emilythestrangee/designarena/backend/internal/models"
)

type ChallengeHandler struct {
	db *gorm.DB
}

func NewChallengeHandler(db *gorm.DB) *ChallengeHandler {
	return &ChallengeHandler{db: db}
}

// GetChallenges returns all challenges, newest first
func (h *ChallengeHandler) GetChallenges(c *gin.Context) {
	var challenges []models.Challenge
	if err := h.db.Preload("Author").Order("created_at desc").Find(&challenges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch challenges"})
		return
	}
	c.JSON(http.StatusOK, challenges)
}

// GetChallenge returns a single challenge
func (h *ChallengeHandler) GetChallenge(c *gin.Context) {
	var challenge models.Challenge
	if err := h.db.Preload("Author").First(&challenge, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Challenge not found"})
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// CreateChallenge creates a new challenge
func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	var input models.CreateChallengeRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authorID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	challenge := models.Challenge{
		Title:       input.Title,
		Description: input.Description,
		Difficulty:  input.Difficulty,
		AuthorID:    authorID,
	}
	if err := h.db.Omit("Author").Create(&challenge).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	h.db.Preload("Author").First(&challenge, challenge.ID)
	c.JSON(http.StatusCreated, challenge)
}
