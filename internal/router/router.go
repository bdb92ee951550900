package router

import (
	"comfycloud/internal/handler"
	"comfycloud/internal/repository"
	"comfycloud/pkg/jwt"
	"comfycloud/pkg/log"

	"github.com/spf13/viper"
)

type RouterDeps struct {
	Logger          *log.Logger
	Config          *viper.Viper
	JWT             *jwt.JWT
	Tokens          repository.TokenCacheRepository
	UserHandler     *handler.UserHandler
	UsageHandler    *handler.UsageHandler
	TierHandler     *handler.TierHandler
	RechargeHandler *handler.RechargeHandler
	TaskHandler     *handler.TaskHandler
	ModelHandler    *handler.ModelHandler
	AdminHandler    *handler.AdminHandler
}
