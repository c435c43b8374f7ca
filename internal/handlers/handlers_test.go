package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/designarena/backend/internal/config"
	"github.com/emilythestrangee/designarena/backend/internal/database/dbtest"
	"github.com/emilythestrangee/designarena/backend/internal/middleware"
	"github.com/emilythestrangee/designarena/backend/internal/models"
	"github.com/emilythestrangee/designarena/backend/internal/score"
	"github.com/emilythestrangee/designarena/backend/internal/vote"
)

const testSecret = "test-secret"

type app struct {
	db     *gorm.DB
	router *gin.Engine
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.New(t)
	board := score.NewBoard(score.NewGormSource(db), nil)
	votes := vote.NewService(vote.NewGormLedger(db), vote.WithInvalidator(board))
	h := NewHandler(db, votes, board, config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour})
	auth := middleware.NewAuth(testSecret)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/register", h.Auth.Register)
	api.POST("/login", h.Auth.Login)
	api.GET("/challenges", h.Challenge.GetChallenges)
	api.GET("/challenges/:id/solutions", h.Solution.GetSolutions)
	api.GET("/solutions/:id/comments", h.Comment.GetComments)
	api.GET("/users/:id", h.User.GetUserProfile)
	api.GET("/users/:id/stats", h.Leaderboard.GetUserStats)
	api.GET("/leaderboard", h.Leaderboard.GetLeaderboard)
	api.POST("/votes", auth.OptionalAuth(), h.Vote.CastVote)

	protected := api.Group("", auth.RequireAuth())
	protected.GET("/me", h.Auth.GetMe)
	protected.POST("/challenges", h.Challenge.CreateChallenge)
	protected.POST("/challenges/:id/solutions", h.Solution.CreateSolution)
	protected.POST("/solutions/:id/comments", h.Comment.CreateComment)
	protected.DELETE("/comments/:commentId", h.Comment.DeleteComment)

	return &app{db: db, router: r}
}

func (a *app) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *app) register(t *testing.T, name string) (string, models.User) {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/register", "", gin.H{
		"username": name,
		"email":    name + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

func decodeID(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var out struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotZero(t, out.ID)
	return out.ID
}

func (a *app) stats(t *testing.T, userID int) models.UserStats {
	t.Helper()
	w := a.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/stats", userID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var s models.UserStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	a := newApp(t)
	token, user := a.register(t, "ada")

	w := a.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"ada"`)
	assert.NotContains(t, w.Body.String(), "secret123")

	w = a.do(t, http.MethodPost, "/api/register", "", gin.H{"username": "ada", "email": "ada@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "ada@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.User.ID)
}

func TestActivityFeedsScore(t *testing.T) {
	a := newApp(t)
	adaToken, ada := a.register(t, "ada")
	bobToken, bob := a.register(t, "bob")

	w := a.do(t, http.MethodPost, "/api/challenges", adaToken, gin.H{"title": "Design a rate limiter", "difficulty": "medium"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	challengeID := decodeID(t, w)

	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/challenges/%d/solutions", challengeID), bobToken, gin.H{
		"title":   "Token bucket in Redis",
		"diagram": gin.H{"nodes": []string{"api", "redis"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	solutionID := decodeID(t, w)

	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/solutions/%d/comments", solutionID), adaToken, gin.H{"body": "Nice use of Lua"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	commentID := decodeID(t, w)

	w = a.do(t, http.MethodPost, "/api/votes", adaToken, gin.H{"entityType": "solution", "entityId": solutionID, "voteType": "upvote"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(t, http.MethodPost, "/api/votes", bobToken, gin.H{"entityType": "comment", "entityId": commentID, "voteType": "upvote"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	bobStats := a.stats(t, bob.ID)
	assert.Equal(t, 1, bobStats.SolutionsCount)
	assert.Equal(t, 1, bobStats.UpvotesReceived)
	assert.Equal(t, 1, bobStats.UpvotesGiven)
	assert.Equal(t, 11, bobStats.Score)

	adaStats := a.stats(t, ada.ID)
	assert.Equal(t, 1, adaStats.CommentsCount)
	assert.Equal(t, 1, adaStats.UpvotesReceived)
	assert.Equal(t, 4, adaStats.Score)

	w = a.do(t, http.MethodGet, "/api/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []score.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", entries[0].Username)
	assert.Equal(t, "ada", entries[1].Username)

	// deleting the comment takes back its credit and the upvote it received
	w = a.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), adaToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	adaStats = a.stats(t, ada.ID)
	assert.Equal(t, 0, adaStats.CommentsCount)
	assert.Equal(t, 0, adaStats.UpvotesReceived)
	assert.Equal(t, 0, adaStats.Score)
	assert.Equal(t, 0, a.stats(t, bob.ID).UpvotesGiven)

	rebuilt, err := score.Rebuild(t.Context(), a.db, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, adaStats.Score, rebuilt.Score)
}

func TestCreateRequiresExistingParent(t *testing.T) {
	a := newApp(t)
	token, _ := a.register(t, "ada")

	w := a.do(t, http.MethodPost, "/api/challenges/999/solutions", token, gin.H{"title": "orphan"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodPost, "/api/solutions/999/comments", token, gin.H{"body": "orphan"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodPost, "/api/challenges", token, gin.H{"title": "x", "difficulty": "impossible"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCommentsEmpty(t *testing.T) {
	a := newApp(t)

	w := a.do(t, http.MethodGet, "/api/solutions/1/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetSolutionsEmpty(t *testing.T) {
	a := newApp(t)

	w := a.do(t, http.MethodGet, "/api/challenges/999/solutions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDeleteCommentRetractsVotes(t *testing.T) {
	a := newApp(t)
	adaToken, ada := a.register(t, "ada")

	w := a.do(t, http.MethodPost, "/api/challenges", adaToken, gin.H{"title": "Design a URL shortener", "difficulty": "easy"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	challengeID := decodeID(t, w)

	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/challenges/%d/solutions", challengeID), adaToken, gin.H{"title": "Base62 ids"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	solutionID := decodeID(t, w)

	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/solutions/%d/comments", solutionID), adaToken, gin.H{"body": "Watch for collisions"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	commentID := decodeID(t, w)

	userIDs := []int{ada.ID}
	votes := map[string]string{"bob": "upvote", "cy": "upvote", "dee": "downvote", "eve": "upvote"}
	for _, name := range []string{"bob", "cy", "dee", "eve"} {
		token, user := a.register(t, name)
		userIDs = append(userIDs, user.ID)
		w = a.do(t, http.MethodPost, "/api/votes", token, gin.H{"entityType": "comment", "entityId": commentID, "voteType": votes[name]})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	// the author's own upvote is retracted too
	w = a.do(t, http.MethodPost, "/api/votes", adaToken, gin.H{"entityType": "comment", "entityId": commentID, "voteType": "upvote"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"upvotesCount":4,"downvotesCount":1}`, w.Body.String())

	w = a.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), adaToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var left int64
	require.NoError(t, a.db.Model(&models.Vote{}).Where("comment_id = ?", commentID).Count(&left).Error)
	assert.Zero(t, left)

	for _, id := range userIDs {
		got := a.stats(t, id)
		want, err := score.Rebuild(t.Context(), a.db, id)
		require.NoError(t, err)
		assert.Equal(t, want.Score, got.Score, "user %d", id)
		assert.Equal(t, want.CommentsCount, got.CommentsCount, "user %d", id)
		assert.Equal(t, want.UpvotesGiven, got.UpvotesGiven, "user %d", id)
		assert.Equal(t, want.UpvotesReceived, got.UpvotesReceived, "user %d", id)
		assert.Zero(t, got.UpvotesGiven, "user %d", id)
	}
	assert.Equal(t, 10, a.stats(t, ada.ID).Score)
}
