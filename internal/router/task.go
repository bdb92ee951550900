package router

import (
	"comfycloud/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitTaskRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	strictAuthRouter := r.Group("/tasks").Use(middleware.StrictAuth(deps.JWT, deps.Tokens, deps.Logger))
	{
		strictAuthRouter.POST("", deps.TaskHandler.Submit)
	}
}
