//go:build wireinject
// +build wireinject

package wire

import (
	"comfycloud/internal/handler"
	"comfycloud/internal/job"
	"comfycloud/internal/ledger"
	"comfycloud/internal/metering"
	"comfycloud/internal/pool"
	"comfycloud/internal/repository"
	"comfycloud/internal/router"
	"comfycloud/internal/server"
	"comfycloud/internal/service"
	"comfycloud/pkg/app"
	"comfycloud/pkg/jwt"
	"comfycloud/pkg/log"
	"comfycloud/pkg/server/http"
	"comfycloud/pkg/sid"

	"github.com/google/wire"
	"github.com/spf13/viper"
)

var repositorySet = wire.NewSet(
	repository.NewDB,
	repository.NewRedis,
	//repository.NewMongo,
	repository.NewRepository,
	repository.NewTransaction,
	repository.NewUserRepository,
	repository.NewInstanceRepository,
	repository.NewTaskRepository,
	repository.NewUsageRecordRepository,
	repository.NewSubscriptionRepository,
	repository.NewRechargeRepository,
	repository.NewTierConfigRepository,
	repository.NewModelFileRepository,
	repository.NewSystemConfigRepository,
	repository.NewSystemLogRepository,
	repository.NewTokenCacheRepository,
)

var poolSet = wire.NewSet(
	pool.NewRegistry,
	pool.NewScheduler,
	pool.NewComfyProberFactory,
	pool.NewMonitor,
)

var billingSet = wire.NewSet(
	ledger.New,
	metering.NewEngine,
	wire.Bind(new(metering.Payer), new(*ledger.Ledger)),
)

var serviceSet = wire.NewSet(
	service.NewService,
	service.NewSystemConfigService,
	wire.Bind(new(metering.RatesProvider), new(service.SystemConfigService)),
	service.NewSystemLogService,
	service.NewTierService,
	service.NewSubscriptionService,
	service.NewUserService,
	service.NewUsageService,
	service.NewRechargeService,
	service.NewModelService,
	service.NewComfyClientFactory,
	service.NewTaskService,
	service.NewInstanceService,
	service.NewAdminService,
)

var handlerSet = wire.NewSet(
	handler.NewHandler,
	handler.NewUserHandler,
	handler.NewUsageHandler,
	handler.NewTierHandler,
	handler.NewRechargeHandler,
	handler.NewTaskHandler,
	handler.NewModelHandler,
	handler.NewAdminHandler,
)

var jobSet = wire.NewSet(
	job.NewJob,
	job.NewPoolJob,
	job.NewMeteringJob,
	job.NewSubscriptionJob,
)
var serverSet = wire.NewSet(
	server.NewHTTPServer,
	server.NewJobServer,
)

// build App
func newApp(
	httpServer *http.Server,
	jobServer *server.JobServer,
) *app.App {
	return app.NewApp(
		app.WithServer(httpServer, jobServer),
		app.WithName("comfycloud-server"),
	)
}

func NewWire(*viper.Viper, *log.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		repositorySet,
		poolSet,
		billingSet,
		serviceSet,
		handlerSet,
		jobSet,
		serverSet,
		wire.Struct(new(router.RouterDeps), "*"),
		sid.NewSid,
		jwt.NewJwt,
		newApp,
	))
}
