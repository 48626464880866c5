package auth

import (
	"sorso/internal/shared/config"
	"sorso/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// Router handles auth-related routes
type Router struct {
	controller *Controller
	config     *config.Config
	revoked    middleware.RevocationChecker
}

// NewRouter creates a new auth router
func NewRouter(controller *Controller, cfg *config.Config, revoked middleware.RevocationChecker) *Router {
	return &Router{
		controller: controller,
		config:     cfg,
		revoked:    revoked,
	}
}

// SetupRoutes registers all auth routes
func (authRouter *Router) SetupRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", authRouter.controller.Login)
		auth.POST("/refresh", authRouter.controller.RefreshToken)
		auth.POST("/logout", authRouter.controller.Logout)
		auth.GET("/session", authRouter.controller.Session)

		protected := auth.Group("")
		protected.Use(middleware.JWTAuth(authRouter.config, authRouter.revoked))
		{
			protected.PUT("/change-password", authRouter.controller.ChangePassword)
			protected.GET("/me", authRouter.controller.GetMe)
		}
	}
}
