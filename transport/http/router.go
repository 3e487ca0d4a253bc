package http

import (
	"github.com/gin-gonic/gin"

	"github.com/driftmail/walletauth/adapters/credentials"
	"github.com/driftmail/walletauth/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, issuer *credentials.JWTIssuer) *gin.Engine {
	router := gin.Default()

	// Create handlers
	handlers := NewAuthHandlers(authService, issuer)

	// The action-multiplexed wallet-auth endpoint
	router.POST("/wallet-auth", handlers.WalletAuth)

	// Credential and session routes
	auth := router.Group("/auth")
	{
		auth.POST("/redeem", handlers.Redeem)
		auth.POST("/link", handlers.LoginLink)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(issuer))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
