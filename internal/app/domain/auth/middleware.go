package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain"
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
)

// UserEnsurer creates the local user row for a verified identity.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, identity models.Identity) error
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Middleware authenticates the bearer token and stores the caller identity
// under domain.IdentityKey. With optional set, anonymous requests pass
// through but a bad token is still rejected.
func (s *TokenService) Middleware(users UserEnsurer, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			if optional {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := s.ValidateToken(tokenString)
		if err != nil {
			s.logger.Debug("Rejected token", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		identity, err := claims.Identity()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		if users != nil {
			if err := users.EnsureUser(c.Request.Context(), identity); err != nil {
				s.logger.Error("Failed to register user", zap.String("userID", identity.UserID.String()), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
		}

		c.Set(domain.IdentityKey, identity)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin claim. It must run after
// Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(domain.IdentityKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if identity, _ := v.(models.Identity); !identity.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
