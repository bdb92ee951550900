package router

import (
	"comfycloud/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitAdminRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	adminRouter := r.Group("/admin").Use(middleware.AdminAuth(deps.JWT, deps.Tokens, deps.Logger))
	{
		adminRouter.GET("/stats", deps.AdminHandler.Stats)

		adminRouter.GET("/users", deps.AdminHandler.ListUsers)
		adminRouter.PATCH("/users/:id", deps.AdminHandler.UpdateUser)

		adminRouter.GET("/instances", deps.AdminHandler.ListInstances)
		adminRouter.POST("/instances", deps.AdminHandler.RegisterInstance)
		adminRouter.DELETE("/instances/:id", deps.AdminHandler.DeregisterInstance)

		adminRouter.GET("/finance/stats", deps.AdminHandler.FinanceStats)
		adminRouter.GET("/finance/recharges", deps.AdminHandler.ListRecharges)

		adminRouter.GET("/config", deps.AdminHandler.GetConfig)
		adminRouter.PATCH("/config", deps.AdminHandler.UpdateConfig)

		adminRouter.GET("/logs", deps.AdminHandler.ListLogs)

		adminRouter.GET("/models", deps.AdminHandler.ListModels)
		adminRouter.PATCH("/models/:id", deps.AdminHandler.UpdateModel)
		adminRouter.DELETE("/models/:id", deps.AdminHandler.DeleteModel)
	}
}
