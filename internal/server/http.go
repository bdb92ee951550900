package server

import (
	apiV1 "comfycloud/api/v1"
	"comfycloud/docs"
	"comfycloud/internal/middleware"
	"comfycloud/internal/router"
	"comfycloud/pkg/server/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewHTTPServer(
	deps router.RouterDeps,
) *http.Server {
	if deps.Config.GetString("env") == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := http.NewServer(
		gin.Default(),
		deps.Logger,
		http.WithServerHost(deps.Config.GetString("http.host")),
		http.WithServerPort(deps.Config.GetInt("http.port")),
	)

	// swagger doc
	docs.SwaggerInfo.BasePath = "/"
	s.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerfiles.Handler,
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	s.Use(
		middleware.CORSMiddleware(),
		middleware.ResponseLogMiddleware(deps.Logger),
		middleware.RequestLogMiddleware(deps.Logger),
	)
	s.GET("/", func(ctx *gin.Context) {
		deps.Logger.WithContext(ctx).Info("hello")
		apiV1.HandleSuccess(ctx, map[string]interface{}{
			":)": "Thank you for using Comfy Cloud!",
		})
	})

	// The dashboard calls everything under /api without a version
	// segment; keep that contract.
	api := s.Group("/api")
	router.InitAuthRouter(deps, api)
	router.InitBillingRouter(deps, api)
	router.InitTierRouter(deps, api)
	router.InitTaskRouter(deps, api)
	router.InitModelRouter(deps, api)
	router.InitAdminRouter(deps, api)

	return s
}
