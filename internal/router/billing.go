package router

import (
	"comfycloud/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitBillingRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	// The payment provider calls back without a user token.
	r.POST("/recharge/notify", deps.RechargeHandler.Notify)

	strictAuth := middleware.StrictAuth(deps.JWT, deps.Tokens, deps.Logger)

	userRouter := r.Group("/user").Use(strictAuth)
	{
		userRouter.GET("/balance", deps.UserHandler.GetBalance)
	}

	usageRouter := r.Group("/usage").Use(strictAuth)
	{
		usageRouter.GET("/records", deps.UsageHandler.ListRecords)
		usageRouter.GET("/stats", deps.UsageHandler.Stats)
	}

	r.POST("/recharge", strictAuth, deps.RechargeHandler.Create)
}
