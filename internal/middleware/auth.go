package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/thereayou/talk-signaling/pkg/auth"
)

const (
	UserIDKey = "userID"

	// SessionHeader carries the call session of users and guests alike.
	SessionHeader = "X-Session-Id"
)

// BlacklistKey is the Redis key marking a logged out token.
func BlacklistKey(token string) string {
	return "blacklist:" + token
}

// AuthMiddleware rejects requests without a valid, non revoked bearer token.
func AuthMiddleware(jwtManager *auth.JWTManager, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		userID, msg := authenticate(c, jwtManager, redisClient, token)
		if msg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// OptionalAuth lets anonymous callers through as guests. A bearer token that
// is present but invalid is still rejected.
func OptionalAuth(jwtManager *auth.JWTManager, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}

		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		userID, msg := authenticate(c, jwtManager, redisClient, token)
		if msg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func authenticate(c *gin.Context, jwtManager *auth.JWTManager, redisClient *redis.Client, token string) (uuid.UUID, string) {
	exists, err := redisClient.Exists(c.Request.Context(), BlacklistKey(token)).Result()
	if err != nil || exists > 0 {
		return uuid.Nil, "token is blacklisted"
	}

	claims, err := jwtManager.Verify(token)
	if err != nil {
		return uuid.Nil, "invalid token"
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "invalid user id"
	}
	return userID, ""
}

// UserID returns the authenticated user or "" for guests.
func UserID(c *gin.Context) string {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return ""
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return ""
	}
	return id.String()
}

func SessionID(c *gin.Context) string {
	return c.GetHeader(SessionHeader)
}
