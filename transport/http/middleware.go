package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driftmail/walletauth/adapters/credentials"
	"github.com/driftmail/walletauth/core"
)

// AuthMiddleware creates middleware that validates access tokens
func AuthMiddleware(issuer *credentials.JWTIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		// Check if the Authorization header is present and in correct format
		if len(auth) < 8 || auth[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		token := auth[7:]

		identityID, err := issuer.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			if err == core.ErrTokenExpired {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		c.Set("identityID", identityID)

		c.Next()
	}
}
