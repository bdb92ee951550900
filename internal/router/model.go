package router

import (
	"comfycloud/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitModelRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	strictAuthRouter := r.Group("/models").Use(middleware.StrictAuth(deps.JWT, deps.Tokens, deps.Logger))
	{
		strictAuthRouter.GET("/private", deps.ModelHandler.ListPrivate)
		strictAuthRouter.POST("/private", deps.ModelHandler.Upload)
		strictAuthRouter.DELETE("/private/:id", deps.ModelHandler.Delete)
	}
}
