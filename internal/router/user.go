package router

import (
	"comfycloud/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitAuthRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	// No route group has permission
	noAuthRouter := r.Group("/auth")
	{
		noAuthRouter.POST("/register", deps.UserHandler.Register)
		noAuthRouter.POST("/login", deps.UserHandler.Login)
	}

	// Strict permission routing group (requires authentication)
	strictAuthRouter := r.Group("/auth").Use(middleware.StrictAuth(deps.JWT, deps.Tokens, deps.Logger))
	{
		strictAuthRouter.POST("/logout", deps.UserHandler.Logout)
		strictAuthRouter.GET("/me", deps.UserHandler.GetProfile)
	}
}
