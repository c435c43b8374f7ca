package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

// Auth resolves the caller's identity from an HS256 bearer token carrying a
// numeric user_id claim.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// RequireAuth rejects requests without a valid token.
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := a.resolve(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalAuth sets the caller's identity when a valid token is present and
// lets anonymous requests through unchanged.
func (a *Auth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := a.resolve(c.GetHeader("Authorization")); err == nil {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

func (a *Auth) resolve(header string) (int, error) {
	if header == "" {
		return 0, errors.New("authorization header is required")
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid token claims")
	}
	// JSON numbers decode as float64
	raw, ok := claims["user_id"].(float64)
	if !ok || raw <= 0 {
		return 0, errors.New("invalid user ID in token")
	}
	return int(raw), nil
}

// UserID returns the identity resolved for this request, if any.
func UserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := raw.(int)
	return id, ok && id > 0
}
