package router

import (
	"comfycloud/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitTierRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	// The pricing page renders before login.
	r.GET("/tiers", deps.TierHandler.ListTiers)

	strictAuthRouter := r.Group("/subscription").Use(middleware.StrictAuth(deps.JWT, deps.Tokens, deps.Logger))
	{
		strictAuthRouter.GET("", deps.TierHandler.GetSubscription)
		strictAuthRouter.POST("/upgrade", deps.TierHandler.Upgrade)
	}
}
