package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/designarena/backend/internal/middleware"
	"github.com/emilythestrangee/designarena/backend/internal/models"
	"github.com/emilythestrangee/designarena/backend/internal/score"
)

type UserHandler struct {
	db    *gorm.DB
	board *score.Board
}

func NewUserHandler(db *gorm.DB, board *score.Board) *UserHandler {
	return &UserHandler{db: db, board: board}
}

// GetUserProfile returns a user's profile, their solutions and their stats
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var solutions []models.Solution
	h.db.Where("author_id = ?", userID).Order("created_at desc").Find(&solutions)
	if solutions == nil {
		solutions = []models.Solution{}
	}

	stats, err := h.board.Stats(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, score.ErrNoStats) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	stats.UserID = userID

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"bio":      user.Bio,
			"avatar":   user.Avatar,
		},
		"solutions": solutions,
		"stats":     stats,
	})
}

func (h *UserHandler) UpdateUserProfile(c *gin.Context) {
	authUserID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	// Check if user is updating their own profile
	if strconv.Itoa(authUserID) != c.Param("id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own profile"})
		return
	}

	var input struct {
		Bio    string `json:"bio"`
		Avatar string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, authUserID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if input.Bio != "" {
		user.Bio = input.Bio
	}
	if input.Avatar != "" {
		user.Avatar = input.Avatar
	}

	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}
