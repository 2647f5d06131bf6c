package middleware

import (
	"errors"
	"net/http"
	"strings"

	"skystore/config"
	"skystore/models"
	"skystore/repositories"
	"skystore/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const principalKey = "principal"

// AuthMiddleware resolves the bearer token into a Principal and stores it in
// the request context. The user row is re-read on every request so that role
// changes and deactivation take effect without waiting for token expiry.
func AuthMiddleware(cfg *config.Config, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(c, http.StatusUnauthorized, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1], cfg.JWT.Secret)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), nil, claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Error(c, http.StatusUnauthorized, "account no longer exists")
			} else {
				utils.Error(c, http.StatusInternalServerError, "failed to load account")
			}
			c.Abort()
			return
		}

		c.Set(principalKey, models.Principal{
			ID:       user.ID,
			Role:     user.Role,
			IsActive: user.IsActive,
		})
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if !principal.IsAdmin() {
			utils.Error(c, http.StatusForbidden, "admin privileges required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetPrincipal(c *gin.Context) models.Principal {
	value, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}
	}
	principal, _ := value.(models.Principal)
	return principal
}
